package menu

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blackpanther093/manage/cache"
	"github.com/blackpanther093/manage/logger"
	"github.com/blackpanther093/manage/mealtime"
	"github.com/blackpanther093/manage/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, clock *fakeClock, st *fakeStore) (*Service, *cache.Manager) {
	t.Helper()
	oracle := mealtime.New(clock, ist)
	mgr, err := cache.NewManager(oracle, nil)
	require.NoError(t, err)
	s, err := NewService(logger.Nop(), oracle, st, mgr, nil)
	require.NoError(t, err)
	return s, mgr
}

func TestPollStats_DefaultsBothMesses(t *testing.T) {
	st := newFakeStore()
	s, _ := newTestService(t, &fakeClock{now: mondayAt(12, 0)}, st)

	got := s.PollStats(context.Background(), "")
	assert.Equal(t, PollStats{"mess1": {}, "mess2": {}}, got)
}

func TestPollStats_Tallies(t *testing.T) {
	st := newFakeStore()
	st.polls = []store.VoteCount{
		{Mess: "mess1", Vote: VoteLike, Count: 5},
		{Mess: "mess1", Vote: VoteDislike, Count: 1},
		{Mess: "mess2", Vote: VoteDislike, Count: 3},
		{Mess: "mess2", Vote: "Meh", Count: 9},
	}
	s, _ := newTestService(t, &fakeClock{now: mondayAt(12, 0)}, st)

	got := s.PollStats(context.Background(), mealtime.Lunch)
	assert.Equal(t, PollStats{
		"mess1": {Like: 5, Dislike: 1},
		"mess2": {Dislike: 3},
	}, got)

	// cached per meal and day
	got["mess1"] = VoteTally{}
	again := s.PollStats(context.Background(), mealtime.Lunch)
	assert.Equal(t, 5, again["mess1"].Like)
	assert.Equal(t, 1, st.Calls("poll"))
}

func TestPollStats_ClearedByKey(t *testing.T) {
	st := newFakeStore()
	s, mgr := newTestService(t, &fakeClock{now: mondayAt(12, 0)}, st)

	s.PollStats(context.Background(), mealtime.Lunch)
	mgr.Clear(cache.Poll, PollKey(mondayAt(0, 0), mealtime.Lunch))
	s.PollStats(context.Background(), mealtime.Lunch)
	assert.Equal(t, 2, st.Calls("poll"))
}

func TestPollStats_ErrorDegrades(t *testing.T) {
	st := newFakeStore()
	st.readErr = errors.New("gone")
	s, mgr := newTestService(t, &fakeClock{now: mondayAt(12, 0)}, st)

	got := s.PollStats(context.Background(), mealtime.Lunch)
	assert.Equal(t, PollStats{"mess1": {}, "mess2": {}}, got)
	assert.Zero(t, mgr.Len(cache.Poll))
}

func TestAverageRatings_FillsMissingMess(t *testing.T) {
	st := newFakeStore()
	st.ratings = []store.MessRating{{Mess: "mess2", AvgRating: 3.75, Count: 8}}
	s, _ := newTestService(t, &fakeClock{now: mondayAt(12, 0)}, st)

	got := s.AverageRatings(context.Background())
	assert.Equal(t, []RatingSummary{
		{Mess: "mess1"},
		{Mess: "mess2", AvgRating: 3.75, Count: 8},
	}, got)
}

func TestAverageRatings_CallerEditsDoNotLeak(t *testing.T) {
	st := newFakeStore()
	st.ratings = []store.MessRating{{Mess: "mess2", AvgRating: 3.75, Count: 8}}
	s, _ := newTestService(t, &fakeClock{now: mondayAt(12, 0)}, st)
	ctx := context.Background()

	got := s.AverageRatings(ctx)
	require.Len(t, got, 2)
	got[1].AvgRating = 0

	again := s.AverageRatings(ctx)
	require.Len(t, again, 2)
	assert.Equal(t, 3.75, again[1].AvgRating)
	assert.Equal(t, 1, st.Calls("ratings"))
}

func TestReads_ReturnCopies(t *testing.T) {
	st := newFakeStore()
	st.payments = []store.PaymentDay{{Meal: "Lunch", FoodItems: "Egg Curry"}}
	s, _ := newTestService(t, &fakeClock{now: mondayAt(12, 0)}, st)
	ctx := context.Background()

	s.NonVegMenu(ctx, "mess1", time.Time{}, "")[0].FoodItem = "x"
	s.PaymentSummary(ctx, "mess1")[0].Meal = "x"
	s.Notifications(ctx, store.AdminRecipient)[0].Message = "x"
	s.WasteSummary(ctx)[0].Floor = "x"
	s.FeedbackSummary(ctx, "mess2")[0].Meal = "x"

	assert.Equal(t, "Chicken Curry", s.NonVegMenu(ctx, "mess1", time.Time{}, "")[0].FoodItem)
	assert.Equal(t, "Lunch", s.PaymentSummary(ctx, "mess1")[0].Meal)
	assert.Equal(t, "hello", s.Notifications(ctx, store.AdminRecipient)[0].Message)
	assert.Equal(t, "Ground", s.WasteSummary(ctx)[0].Floor)
	assert.Equal(t, "Lunch", s.FeedbackSummary(ctx, "mess2")[0].Meal)
	for _, op := range []string{"non_veg", "payment", "notifications", "waste", "feedback"} {
		assert.Equal(t, 1, st.Calls(op), op)
	}
}

func TestPaymentSummary_WindowAndCache(t *testing.T) {
	st := newFakeStore()
	st.payments = []store.PaymentDay{{Meal: "Lunch", FoodItems: "Egg Curry, Omelette"}}
	s, mgr := newTestService(t, &fakeClock{now: mondayAt(12, 0)}, st)

	got := s.PaymentSummary(context.Background(), "mess1")
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2025, time.June, 28, 0, 0, 0, 0, ist), st.lastSince)

	s.PaymentSummary(context.Background(), "mess1")
	assert.Equal(t, 1, st.Calls("payment"))

	mgr.Clear(cache.Payment, PaymentKey("mess1"))
	s.PaymentSummary(context.Background(), "mess1")
	assert.Equal(t, 2, st.Calls("payment"))
}

func TestFeatureToggle_MissingRowIsDisabled(t *testing.T) {
	st := newFakeStore()
	s, _ := newTestService(t, &fakeClock{now: mondayAt(12, 0)}, st)

	assert.False(t, s.FeatureToggle(context.Background()).IsEnabled)

	st.toggle = &store.FeatureToggle{IsEnabled: true}
	assert.False(t, s.FeatureToggle(context.Background()).IsEnabled, "cached for a day")
}

func TestReads_CacheAside(t *testing.T) {
	st := newFakeStore()
	s, mgr := newTestService(t, &fakeClock{now: mondayAt(12, 0)}, st)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		assert.Len(t, s.NonVegMenu(ctx, "mess1", time.Time{}, ""), 1)
		assert.Len(t, s.Notifications(ctx, store.AdminRecipient), 1)
		assert.Len(t, s.WasteSummary(ctx), 1)
		assert.Len(t, s.FeedbackSummary(ctx, "mess2"), 1)
	}
	for _, op := range []string{"non_veg", "notifications", "waste", "feedback"} {
		assert.Equal(t, 1, st.Calls(op), op)
	}

	mgr.Clear(cache.Notification, NotificationKey(store.AdminRecipient))
	s.Notifications(ctx, store.AdminRecipient)
	assert.Equal(t, 2, st.Calls("notifications"))
}

func TestNewService_BindsDistinctTypes(t *testing.T) {
	oracle := mealtime.New(&fakeClock{now: mondayAt(12, 0)}, ist)
	mgr, err := cache.NewManager(oracle, nil)
	require.NoError(t, err)

	_, err = cache.Bind[string](mgr, cache.Poll)
	require.NoError(t, err)
	_, err = NewService(nil, oracle, newFakeStore(), mgr, nil)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.ErrorIs(t, (&Config{Messes: []store.Mess{{Name: "a"}, {Name: "a"}}}).MergeDefaults().Validate(), ErrInvalidMess)
	assert.Error(t, (&Config{PaymentWindowDays: -1}).MergeDefaults().Validate())
}

package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/blackpanther093/manage/cache"
	"github.com/blackpanther093/manage/cron"
	"github.com/blackpanther093/manage/logger"
	"github.com/blackpanther093/manage/mealtime"
	"github.com/blackpanther093/manage/menu"
	"github.com/blackpanther093/manage/scheduler"
	"github.com/blackpanther093/manage/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ist = mealtime.DefaultLocation()

// Monday 2025-08-04 12:30 IST, Lunch of an Even week
var now = time.Date(2025, time.August, 4, 12, 30, 0, 0, ist)

// fakeStore answers every query with fixed rows and counts the calls per query
type fakeStore struct {
	mu    sync.Mutex
	calls map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{calls: map[string]int{}}
}

func (f *fakeStore) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeStore) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeStore) OverrideItems(context.Context, store.MenuKey) ([]string, error) {
	f.hit("override")
	return nil, nil
}

func (f *fakeStore) DefaultItems(_ context.Context, key store.MenuKey) ([]string, error) {
	f.hit("default")
	return []string{string(key.Meal) + " thali"}, nil
}

func (f *fakeStore) TopRatedItem(context.Context, store.MenuKey) (store.ItemRating, bool, error) {
	return store.ItemRating{}, false, nil
}

func (f *fakeStore) WasteAbove(context.Context, []string, time.Time, decimal.Decimal) ([]store.FloorWaste, error) {
	return nil, nil
}

func (f *fakeStore) RatingsBelow(_ context.Context, mess string, _ time.Time, _ float64) ([]store.MealRating, error) {
	if mess != "mess1" {
		return nil, nil
	}
	day := time.Date(2025, time.August, 3, 0, 0, 0, 0, ist)
	return []store.MealRating{{Meal: mealtime.Dinner, FeedbackDate: day, AvgRating: 2.5}}, nil
}

func (f *fakeStore) PurgeBefore(context.Context, time.Time) (store.PurgeResult, error) {
	return store.PurgeResult{}, nil
}

func (f *fakeStore) FeedbackComments(context.Context, string, time.Time, mealtime.MealPeriod, time.Time) ([]store.FeedbackComment, error) {
	return nil, nil
}

func (f *fakeStore) InsertNotification(context.Context, *store.Notification) error {
	return nil
}

func (f *fakeStore) PollCounts(context.Context, time.Time, mealtime.MealPeriod) ([]store.VoteCount, error) {
	f.hit("poll")
	return []store.VoteCount{{Mess: "mess1", Vote: menu.VoteLike, Count: 4}}, nil
}

func (f *fakeStore) MealRatings(context.Context, mealtime.MealPeriod, time.Time) ([]store.MessRating, error) {
	f.hit("rating")
	return []store.MessRating{{Mess: "mess1", AvgRating: 4.2, Count: 10}}, nil
}

func (f *fakeStore) NonVegItems(context.Context, string, time.Time, mealtime.MealPeriod) ([]store.NonVegItem, error) {
	f.hit("non_veg")
	return []store.NonVegItem{{FoodItem: "Chicken Curry", Cost: decimal.NewFromInt(80)}}, nil
}

func (f *fakeStore) PaymentSummary(context.Context, string, time.Time) ([]store.PaymentDay, error) {
	f.hit("payment")
	return []store.PaymentDay{{FoodItems: "Egg Curry", TotalAmount: decimal.NewFromInt(40)}}, nil
}

func (f *fakeStore) Notifications(context.Context, string, time.Time) ([]store.Notification, error) {
	f.hit("notifications")
	return []store.Notification{{ID: 1, Message: "hello"}}, nil
}

func (f *fakeStore) FeatureToggle(context.Context) (store.FeatureToggle, bool, error) {
	f.hit("feature_toggle")
	return store.FeatureToggle{IsEnabled: true}, true, nil
}

func (f *fakeStore) WasteByFloor(context.Context, time.Time) ([]store.FloorTotal, error) {
	f.hit("waste")
	return []store.FloorTotal{{Floor: "Ground", TotalWaste: decimal.RequireFromString("12.5")}}, nil
}

func (f *fakeStore) FeedbackSummary(_ context.Context, mess string, _ time.Time) ([]store.FeedbackDay, error) {
	f.hit("feedback:" + mess)
	return []store.FeedbackDay{{Meal: "Lunch", TotalStudents: 3, AvgRating: 4}}, nil
}

func newTestCore(t *testing.T, st *fakeStore) (*Core, *scheduler.Scheduler) {
	t.Helper()
	log := logger.Nop()
	oracle := mealtime.New(mealtime.ClockFunc(func() time.Time { return now }), ist)
	mgr, err := cache.NewManager(oracle, nil)
	require.NoError(t, err)

	resolver, err := menu.NewResolver(log, oracle, st, mgr, nil)
	require.NoError(t, err)
	reads, err := menu.NewService(log, oracle, st, mgr, nil)
	require.NoError(t, err)

	cr, err := cron.New(log, nil)
	require.NoError(t, err)
	sched, err := scheduler.New(log, oracle, cr, st, mgr, nil)
	require.NoError(t, err)
	t.Cleanup(sched.Close)

	c, err := New(oracle, mgr, resolver, reads, sched)
	require.NoError(t, err)
	return c, sched
}

func TestNew_NilDependency(t *testing.T) {
	_, err := New(nil, nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestCore_ServingContext(t *testing.T) {
	c, _ := newTestCore(t, newFakeStore())

	assert.Equal(t, mealtime.Lunch, c.ActiveMeal())
	assert.Equal(t, mealtime.Even, c.WeekParity(now))
}

func TestCore_ResolveMenuIsCachedUntilCleared(t *testing.T) {
	st := newFakeStore()
	c, _ := newTestCore(t, st)
	ctx := context.Background()

	res := c.ResolveMenu(ctx, time.Time{}, mealtime.None)
	assert.Equal(t, mealtime.Lunch, res.Meal)
	assert.Equal(t, []string{"Lunch thali"}, res.Items[mealtime.Lunch])
	loads := st.count("default")

	c.ResolveMenu(ctx, time.Time{}, mealtime.None)
	assert.Equal(t, loads, st.count("default"), "second resolve should hit the cache")

	c.ClearMenuCache()
	c.ResolveMenu(ctx, time.Time{}, mealtime.None)
	assert.Greater(t, st.count("default"), loads)
}

func TestCore_ClearPaymentCacheByMess(t *testing.T) {
	st := newFakeStore()
	c, _ := newTestCore(t, st)
	ctx := context.Background()

	c.PaymentSummary(ctx, "mess1")
	c.PaymentSummary(ctx, "mess2")
	c.PaymentSummary(ctx, "mess1")
	require.Equal(t, 2, st.count("payment"))

	c.ClearPaymentCache("mess1")
	c.PaymentSummary(ctx, "mess1")
	c.PaymentSummary(ctx, "mess2")
	assert.Equal(t, 3, st.count("payment"), "only mess1 should reload")

	c.ClearPaymentCache()
	c.PaymentSummary(ctx, "mess2")
	assert.Equal(t, 4, st.count("payment"))
}

func TestCore_ClearFeedbackCacheDropsRatings(t *testing.T) {
	st := newFakeStore()
	c, _ := newTestCore(t, st)
	ctx := context.Background()

	c.FeedbackSummary(ctx, "mess1")
	c.FeedbackSummary(ctx, "mess2")
	c.AverageRatings(ctx)
	ratingLoads := st.count("rating")

	c.ClearFeedbackCache("mess1")
	c.FeedbackSummary(ctx, "mess1")
	c.FeedbackSummary(ctx, "mess2")
	c.AverageRatings(ctx)

	assert.Equal(t, 2, st.count("feedback:mess1"))
	assert.Equal(t, 1, st.count("feedback:mess2"))
	assert.Greater(t, st.count("rating"), ratingLoads)
}

func TestCore_ClearHooks(t *testing.T) {
	st := newFakeStore()
	c, _ := newTestCore(t, st)
	ctx := context.Background()

	read := map[string]func(){
		"poll":           func() { c.PollStats(ctx, mealtime.Lunch) },
		"non_veg":        func() { c.NonVegMenu(ctx, "mess1", now, mealtime.Lunch) },
		"notifications":  func() { c.Notifications(ctx, store.AdminRecipient) },
		"feature_toggle": func() { c.FeatureToggle(ctx) },
		"waste":          func() { c.WasteSummary(ctx) },
		"rating":         func() { c.AverageRatings(ctx) },
	}
	clear := map[string]func(){
		"poll":           func() { c.ClearPollCache(mealtime.Lunch) },
		"non_veg":        c.ClearNonVegCache,
		"notifications":  func() { c.ClearNotificationCache(store.AdminRecipient) },
		"feature_toggle": c.ClearFeatureToggleCache,
		"waste":          c.ClearWasteCache,
		"rating":         c.ClearRatingCache,
	}

	for name, fn := range read {
		fn()
		fn()
		before := st.count(name)
		clear[name]()
		fn()
		assert.Equal(t, before+1, st.count(name), name)
	}
}

func TestCore_ClearAll(t *testing.T) {
	st := newFakeStore()
	c, _ := newTestCore(t, st)
	ctx := context.Background()

	c.WasteSummary(ctx)
	c.FeatureToggle(ctx)
	c.ClearAll()
	c.WasteSummary(ctx)
	c.FeatureToggle(ctx)

	assert.Equal(t, 2, st.count("waste"))
	assert.Equal(t, 2, st.count("feature_toggle"))
}

func TestCore_AggregateAlerts(t *testing.T) {
	c, sched := newTestCore(t, newFakeStore())
	assert.Empty(t, c.AggregateAlerts("mess1"), "no alerts before the first recompute")

	require.NoError(t, sched.RunNow(context.Background(), scheduler.ChainAggregate))

	alerts := c.AggregateAlerts("mess1")
	require.Len(t, alerts, 1)
	assert.Equal(t, "Low feedback detected for Dinner on 2025-08-03 with Avg. Rating 2.5", alerts[0].Message)
	assert.Empty(t, c.AggregateAlerts("mess2"))
}

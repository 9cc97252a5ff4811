package menu

import (
	"context"
	"slices"
	"time"

	"github.com/blackpanther093/manage/cache"
	"github.com/blackpanther093/manage/logger"
	"github.com/blackpanther093/manage/mealtime"
	"github.com/blackpanther093/manage/store"
	"go.uber.org/zap"
)

// Vote values recorded by the meal poll
const (
	VoteLike    = "Like"
	VoteDislike = "Dislike"
)

// VoteTally counts the poll votes of one mess
type VoteTally struct {
	Like    int
	Dislike int
}

// PollStats maps each mess to its tally for one meal
type PollStats map[string]VoteTally

// RatingSummary is the average rating a mess receives for the current meal slot
type RatingSummary struct {
	Mess      string
	AvgRating float64
	Count     int
}

type (
	NonVegItem     = store.NonVegItem
	PaymentSummary = []store.PaymentDay
	WasteSummary   = []store.FloorTotal
)

// Service serves the cached read-only datasets
type Service struct {
	log    logger.Logger
	oracle *mealtime.Oracle
	store  store.ReadStore
	mgr    *cache.Manager
	cfg    *Config

	poll          *cache.TTLCache[PollStats]
	rating        *cache.TTLCache[[]RatingSummary]
	nonVeg        *cache.TTLCache[[]NonVegItem]
	payment       *cache.TTLCache[PaymentSummary]
	notification  *cache.TTLCache[[]store.Notification]
	featureToggle *cache.TTLCache[store.FeatureToggle]
	waste         *cache.TTLCache[WasteSummary]
	feedback      *cache.TTLCache[[]store.FeedbackDay]
}

// NewService binds the read slots of mgr
func NewService(log logger.Logger, oracle *mealtime.Oracle, st store.ReadStore, mgr *cache.Manager, cfg *Config) (*Service, error) {
	if oracle == nil || st == nil || mgr == nil {
		return nil, ErrNilDependency
	}
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &Service{log: log, oracle: oracle, store: st, mgr: mgr, cfg: cfg}
	var err error
	if s.poll, err = cache.Bind[PollStats](mgr, cache.Poll); err != nil {
		return nil, err
	}
	if s.rating, err = cache.Bind[[]RatingSummary](mgr, cache.Rating); err != nil {
		return nil, err
	}
	if s.nonVeg, err = cache.Bind[[]NonVegItem](mgr, cache.NonVegMenu); err != nil {
		return nil, err
	}
	if s.payment, err = cache.Bind[PaymentSummary](mgr, cache.Payment); err != nil {
		return nil, err
	}
	if s.notification, err = cache.Bind[[]store.Notification](mgr, cache.Notification); err != nil {
		return nil, err
	}
	if s.featureToggle, err = cache.Bind[store.FeatureToggle](mgr, cache.FeatureToggle); err != nil {
		return nil, err
	}
	if s.waste, err = cache.Bind[WasteSummary](mgr, cache.Waste); err != nil {
		return nil, err
	}
	if s.feedback, err = cache.Bind[[]store.FeedbackDay](mgr, cache.Feedback); err != nil {
		return nil, err
	}
	return s, nil
}

// cached is the cache-aside read shared by every dataset. On a load error it
// logs, caches nothing and returns fallback.
func cached[T any](s *Service, c *cache.TTLCache[T], slot cache.Slot, key string, fallback T, load func() (T, error)) T {
	if v, ok := c.Get(key, s.mgr.TTL(slot)); ok {
		return v
	}
	v, err := load()
	if err != nil {
		s.log.Error("cached read failed",
			zap.String("slot", string(slot)),
			zap.String("key", key),
			zap.Error(err),
		)
		return fallback
	}
	c.Set(key, v)
	return v
}

// cachedSlice is cached for list datasets. Callers get their own copy of the
// cached slice.
func cachedSlice[E any](s *Service, c *cache.TTLCache[[]E], slot cache.Slot, key string, load func() ([]E, error)) []E {
	return slices.Clone(cached(s, c, slot, key, nil, load))
}

func (s *Service) daysAgo(n int) time.Time {
	return s.oracle.Today().AddDate(0, 0, -n)
}

// PollKey is the poll cache key for meal on date
func PollKey(date time.Time, meal mealtime.MealPeriod) string {
	return "poll:" + date.Format(dateLayout) + ":" + string(meal)
}

func (s *Service) emptyPoll() PollStats {
	out := make(PollStats, len(s.cfg.Messes))
	for _, m := range s.cfg.Messes {
		out[m.Name] = VoteTally{}
	}
	return out
}

// PollStats returns today's like and dislike counts for meal. An empty meal
// means the current one; each configured mess is always present.
func (s *Service) PollStats(ctx context.Context, meal mealtime.MealPeriod) PollStats {
	if meal == mealtime.None {
		meal = s.oracle.CurrentMeal()
	}
	if meal == mealtime.None {
		return s.emptyPoll()
	}
	today := s.oracle.Today()
	stats := cached(s, s.poll, cache.Poll, PollKey(today, meal), s.emptyPoll(), func() (PollStats, error) {
		rows, err := s.store.PollCounts(ctx, today, meal)
		if err != nil {
			return nil, err
		}
		out := s.emptyPoll()
		for _, r := range rows {
			t := out[r.Mess]
			switch r.Vote {
			case VoteLike:
				t.Like += r.Count
			case VoteDislike:
				t.Dislike += r.Count
			default:
				continue
			}
			out[r.Mess] = t
		}
		return out, nil
	})
	out := make(PollStats, len(stats))
	for k, v := range stats {
		out[k] = v
	}
	return out
}

// AverageRatings returns each mess's average rating for the current meal
// over past days that served the same menu slot. Nothing is returned
// outside meal hours.
func (s *Service) AverageRatings(ctx context.Context) []RatingSummary {
	meal := s.oracle.CurrentMeal()
	if meal == mealtime.None {
		return nil
	}
	today := s.oracle.Today()
	key := "rating:" + today.Format(dateLayout) + ":" + string(meal)
	return cachedSlice(s, s.rating, cache.Rating, key, func() ([]RatingSummary, error) {
		rows, err := s.store.MealRatings(ctx, meal, today)
		if err != nil {
			return nil, err
		}
		byMess := make(map[string]store.MessRating, len(rows))
		for _, r := range rows {
			byMess[r.Mess] = r
		}
		out := make([]RatingSummary, 0, len(s.cfg.Messes))
		for _, m := range s.cfg.Messes {
			r := byMess[m.Name]
			out = append(out, RatingSummary{Mess: m.Name, AvgRating: r.AvgRating, Count: r.Count})
		}
		return out, nil
	})
}

// NonVegMenu returns the priced non-veg items of mess for meal on date.
// Zero date and empty meal mean today and the current meal.
func (s *Service) NonVegMenu(ctx context.Context, mess string, date time.Time, meal mealtime.MealPeriod) []NonVegItem {
	if date.IsZero() {
		date = s.oracle.Now()
	}
	date = s.oracle.StartOfDay(date)
	if meal == mealtime.None {
		meal = s.oracle.CurrentMeal()
	}
	if meal == mealtime.None {
		return nil
	}
	key := "non_veg:" + mess + ":" + date.Format(dateLayout) + ":" + string(meal)
	return cachedSlice(s, s.nonVeg, cache.NonVegMenu, key, func() ([]NonVegItem, error) {
		return s.store.NonVegItems(ctx, mess, date, meal)
	})
}

// PaymentKey is the payment cache key of mess
func PaymentKey(mess string) string {
	return "payment:" + mess
}

// PaymentSummary returns mess's daily non-veg payment totals, newest first
func (s *Service) PaymentSummary(ctx context.Context, mess string) PaymentSummary {
	return cachedSlice(s, s.payment, cache.Payment, PaymentKey(mess), func() (PaymentSummary, error) {
		return s.store.PaymentSummary(ctx, mess, s.daysAgo(s.cfg.PaymentWindowDays))
	})
}

// NotificationKey is the notification cache key of recipient
func NotificationKey(recipient string) string {
	return "notifications:" + recipient
}

// Notifications returns the recent notifications of recipient, newest first
func (s *Service) Notifications(ctx context.Context, recipient string) []store.Notification {
	return cachedSlice(s, s.notification, cache.Notification, NotificationKey(recipient), func() ([]store.Notification, error) {
		return s.store.Notifications(ctx, recipient, s.daysAgo(s.cfg.NotificationWindowDays))
	})
}

const featureToggleKey = "feature_toggle"

// FeatureToggle returns the mess switching flag. A missing row reads as disabled.
func (s *Service) FeatureToggle(ctx context.Context) store.FeatureToggle {
	return cached(s, s.featureToggle, cache.FeatureToggle, featureToggleKey, store.FeatureToggle{}, func() (store.FeatureToggle, error) {
		t, _, err := s.store.FeatureToggle(ctx)
		return t, err
	})
}

const wasteSummaryKey = "waste_summary"

// WasteSummary returns total waste per floor over the summary window
func (s *Service) WasteSummary(ctx context.Context) WasteSummary {
	return cachedSlice(s, s.waste, cache.Waste, wasteSummaryKey, func() (WasteSummary, error) {
		return s.store.WasteByFloor(ctx, s.daysAgo(s.cfg.SummaryWindowDays))
	})
}

// FeedbackKey is the feedback cache key of mess
func FeedbackKey(mess string) string {
	return "feedback_summary:" + mess
}

// FeedbackSummary returns mess's per day and meal feedback over the summary window
func (s *Service) FeedbackSummary(ctx context.Context, mess string) []store.FeedbackDay {
	return cachedSlice(s, s.feedback, cache.Feedback, FeedbackKey(mess), func() ([]store.FeedbackDay, error) {
		return s.store.FeedbackSummary(ctx, mess, s.daysAgo(s.cfg.SummaryWindowDays))
	})
}

// Package menu answers "what is being served" for the mess core.
//
// Resolver overlays today's admin overrides on the two-week recurring menu
// and pre-fetches the meals that follow. Service fronts the remaining
// read-only datasets. Both are cache-aside over a cache.Manager and never
// surface store errors to their callers: a failed lookup is logged and
// degrades to an empty value.
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
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const dateLayout = "2006-01-02"

// Resolution is the effective menu for one meal and the meals after it
type Resolution struct {
	// Meal is the meal the resolution was made for, None when nothing is served
	Meal mealtime.MealPeriod
	// Date is midnight of the civil date of Meal
	Date time.Time
	// Items holds the resolved items per meal. A meal whose lookup failed is absent.
	Items map[mealtime.MealPeriod][]string
	// TopRated is the best rated item historically served in Meal's slot, if any
	TopRated string
}

// Empty reports whether no meal was resolved
func (r Resolution) Empty() bool {
	return r.Meal == mealtime.None
}

func (r Resolution) clone() Resolution {
	out := r
	if r.Items != nil {
		out.Items = make(map[mealtime.MealPeriod][]string, len(r.Items))
		for k, v := range r.Items {
			out.Items[k] = slices.Clone(v)
		}
	}
	return out
}

// Resolver computes and caches menus
type Resolver struct {
	log       logger.Logger
	oracle    *mealtime.Oracle
	store     store.MenuStore
	cache     *cache.TTLCache[Resolution]
	ttl       time.Duration
	lookahead bool

	// collapses concurrent misses on the same key into one store round
	group singleflight.Group
}

// NewResolver creates a Resolver that caches in mgr's menu slot
func NewResolver(log logger.Logger, oracle *mealtime.Oracle, st store.MenuStore, mgr *cache.Manager, cfg *Config) (*Resolver, error) {
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
	c, err := cache.Bind[Resolution](mgr, cache.Menu)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		log:       log,
		oracle:    oracle,
		store:     st,
		cache:     c,
		ttl:       mgr.TTL(cache.Menu),
		lookahead: !cfg.DisableLookahead,
	}, nil
}

// Key returns the cache key of the resolution for meal on date
func Key(meal mealtime.MealPeriod, date time.Time) string {
	return "menu:" + string(meal) + ":" + date.Format(dateLayout)
}

// Resolve returns the menu for meal on date. A zero date means today and an
// empty meal means the meal being served now. When no meal is being served
// the result is empty.
func (r *Resolver) Resolve(ctx context.Context, date time.Time, meal mealtime.MealPeriod) Resolution {
	if date.IsZero() {
		date = r.oracle.Now()
	}
	date = r.oracle.StartOfDay(date)
	if meal == mealtime.None {
		meal = r.oracle.CurrentMeal()
	}
	if meal == mealtime.None {
		return Resolution{Date: date}
	}

	key := Key(meal, date)
	if res, ok := r.cache.Get(key, r.ttl); ok {
		return res.clone()
	}

	// the shared round outlives any one caller's cancellation
	shared := context.WithoutCancel(ctx)
	v, _, _ := r.group.Do(key, func() (any, error) {
		if res, ok := r.cache.Get(key, r.ttl); ok {
			return res, nil
		}
		res, ok := r.resolve(shared, date, meal)
		if ok {
			r.cache.Set(key, res)
		}
		return res, nil
	})
	return v.(Resolution).clone()
}

type target struct {
	meal mealtime.MealPeriod
	date time.Time
}

// plan lists the meals resolved together with meal, meal first
func (r *Resolver) plan(date time.Time, meal mealtime.MealPeriod) []target {
	if !r.lookahead {
		return []target{{meal, date}}
	}
	if mealtime.IsLast(meal) {
		return []target{{meal, date}, {mealtime.Meals[0], date.AddDate(0, 0, 1)}}
	}
	var out []target
	for _, m := range mealtime.MealsFrom(meal) {
		out = append(out, target{m, date})
	}
	return out
}

// resolve reports ok when the requested meal itself resolved
func (r *Resolver) resolve(ctx context.Context, date time.Time, meal mealtime.MealPeriod) (Resolution, bool) {
	res := Resolution{
		Meal:  meal,
		Date:  date,
		Items: make(map[mealtime.MealPeriod][]string),
	}
	plan := r.plan(date, meal)
	found := make([][]string, len(plan))
	resolved := make([]bool, len(plan))

	var g errgroup.Group
	for i, t := range plan {
		i, t := i, t
		g.Go(func() error {
			items, err := r.items(ctx, r.key(t), i == 0)
			if err != nil {
				r.log.Error("menu lookup failed",
					zap.String("meal", string(t.meal)),
					zap.String("date", t.date.Format(dateLayout)),
					zap.Error(err),
				)
				return nil
			}
			found[i], resolved[i] = items, true
			return nil
		})
	}
	_ = g.Wait()

	for i, t := range plan {
		if resolved[i] {
			res.Items[t.meal] = found[i]
		}
	}

	top, hasTop, err := r.store.TopRatedItem(ctx, r.key(target{meal, date}))
	switch {
	case err != nil:
		r.log.Warn("top rated lookup failed", zap.String("meal", string(meal)), zap.Error(err))
	case hasTop:
		res.TopRated = top.FoodItem
	}
	return res, resolved[0]
}

func (r *Resolver) key(t target) store.MenuKey {
	return store.MenuKey{
		Parity:  r.oracle.WeekParity(t.date),
		Weekday: r.oracle.Weekday(t.date),
		Meal:    t.meal,
	}
}

// items consults the override table first for the active meal only
func (r *Resolver) items(ctx context.Context, key store.MenuKey, withOverride bool) ([]string, error) {
	if withOverride {
		override, err := r.store.OverrideItems(ctx, key)
		if err != nil {
			r.log.Warn("override lookup failed, using default menu",
				zap.String("meal", string(key.Meal)),
				zap.Error(err),
			)
		} else if len(override) > 0 {
			return override, nil
		}
	}
	return r.store.DefaultItems(ctx, key)
}

// Invalidate drops every cached resolution
func (r *Resolver) Invalidate() {
	r.cache.Clear()
}

// Cached returns the keys of the cached resolutions, sorted
func (r *Resolver) Cached() []string {
	return r.cache.Keys()
}

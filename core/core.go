// Package core is the surface the web layer calls: menu and alert queries
// plus the invalidation hooks that every external write must trigger.
package core

import (
	"context"
	"time"

	"github.com/blackpanther093/manage/cache"
	"github.com/blackpanther093/manage/mealtime"
	"github.com/blackpanther093/manage/menu"
	"github.com/blackpanther093/manage/scheduler"
	"github.com/blackpanther093/manage/store"
)

// Core answers read queries from caches and exposes invalidation hooks
type Core struct {
	oracle   *mealtime.Oracle
	cache    *cache.Manager
	resolver *menu.Resolver
	reads    *menu.Service
	sched    *scheduler.Scheduler
}

// New creates a Core over already built components
func New(oracle *mealtime.Oracle, mgr *cache.Manager, resolver *menu.Resolver, reads *menu.Service, sched *scheduler.Scheduler) (*Core, error) {
	if oracle == nil || mgr == nil || resolver == nil || reads == nil || sched == nil {
		return nil, ErrNilDependency
	}
	return &Core{oracle: oracle, cache: mgr, resolver: resolver, reads: reads, sched: sched}, nil
}

// ResolveMenu returns the menu for meal on date; zero values mean now
func (c *Core) ResolveMenu(ctx context.Context, date time.Time, meal mealtime.MealPeriod) menu.Resolution {
	return c.resolver.Resolve(ctx, date, meal)
}

// ActiveMeal returns the meal being served now
func (c *Core) ActiveMeal() mealtime.MealPeriod {
	return c.oracle.CurrentMeal()
}

// WeekParity returns the menu week of date; a zero date means today
func (c *Core) WeekParity(date time.Time) mealtime.WeekParity {
	return c.oracle.WeekParity(date)
}

// PollStats returns today's votes for meal; an empty meal means the current one
func (c *Core) PollStats(ctx context.Context, meal mealtime.MealPeriod) menu.PollStats {
	return c.reads.PollStats(ctx, meal)
}

// AggregateAlerts returns the current alerts of mess
func (c *Core) AggregateAlerts(mess string) []scheduler.Alert {
	return c.sched.Alerts(mess)
}

func (c *Core) AverageRatings(ctx context.Context) []menu.RatingSummary {
	return c.reads.AverageRatings(ctx)
}

func (c *Core) NonVegMenu(ctx context.Context, mess string, date time.Time, meal mealtime.MealPeriod) []menu.NonVegItem {
	return c.reads.NonVegMenu(ctx, mess, date, meal)
}

func (c *Core) PaymentSummary(ctx context.Context, mess string) menu.PaymentSummary {
	return c.reads.PaymentSummary(ctx, mess)
}

func (c *Core) Notifications(ctx context.Context, recipient string) []store.Notification {
	return c.reads.Notifications(ctx, recipient)
}

func (c *Core) FeatureToggle(ctx context.Context) store.FeatureToggle {
	return c.reads.FeatureToggle(ctx)
}

func (c *Core) WasteSummary(ctx context.Context) menu.WasteSummary {
	return c.reads.WasteSummary(ctx)
}

func (c *Core) FeedbackSummary(ctx context.Context, mess string) []store.FeedbackDay {
	return c.reads.FeedbackSummary(ctx, mess)
}

// ClearMenuCache drops every resolved menu. Call it after writing an override.
func (c *Core) ClearMenuCache() {
	c.cache.Clear(cache.Menu)
}

// ClearNonVegCache drops the non-veg menus
func (c *Core) ClearNonVegCache() {
	c.cache.Clear(cache.NonVegMenu)
}

// ClearPaymentCache drops the payment summaries of messes, or all of them
func (c *Core) ClearPaymentCache(messes ...string) {
	c.clearKeys(cache.Payment, menu.PaymentKey, messes)
}

// ClearNotificationCache drops the notification lists of recipients, or all of them
func (c *Core) ClearNotificationCache(recipients ...string) {
	c.clearKeys(cache.Notification, menu.NotificationKey, recipients)
}

// ClearPollCache drops today's poll result for meal, or every poll result
// when meal is empty
func (c *Core) ClearPollCache(meal mealtime.MealPeriod) {
	if meal == mealtime.None {
		c.cache.Clear(cache.Poll)
		return
	}
	c.cache.Clear(cache.Poll, menu.PollKey(c.oracle.Today(), meal))
}

// ClearFeedbackCache drops the feedback summaries of messes, or all of them.
// Ratings derive from the same rows and are dropped too.
func (c *Core) ClearFeedbackCache(messes ...string) {
	c.cache.Clear(cache.Rating)
	c.clearKeys(cache.Feedback, menu.FeedbackKey, messes)
}

func (c *Core) ClearWasteCache() {
	c.cache.Clear(cache.Waste)
}

func (c *Core) ClearRatingCache() {
	c.cache.Clear(cache.Rating)
}

func (c *Core) ClearFeatureToggleCache() {
	c.cache.Clear(cache.FeatureToggle)
}

// ClearAll empties every cache
func (c *Core) ClearAll() {
	c.cache.ClearAll()
}

func (c *Core) clearKeys(s cache.Slot, key func(string) string, ids []string) {
	if len(ids) == 0 {
		c.cache.Clear(s)
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}
	c.cache.Clear(s, keys...)
}

// Package store is the mess database as seen by the serving core.
//
// The interfaces are split by consumer: the menu resolver, the alert
// recomputation, the critical-feedback digest and the cached read services
// each depend on the narrowest one they need. Gorm implements all of them
// against the MySQL schema owned by the web application.
package store

import (
	"context"
	"time"

	"github.com/blackpanther093/manage/mealtime"
	"github.com/shopspring/decimal"
)

// MenuKey addresses one slot of the two-week menu
type MenuKey struct {
	Parity  mealtime.WeekParity
	Weekday string
	Meal    mealtime.MealPeriod
}

// ItemRating is the average rating of one food item
type ItemRating struct {
	FoodItem  string
	AvgRating float64
}

// FloorWaste is the waste recorded on one floor on one day
type FloorWaste struct {
	Floor      string
	WasteDate  time.Time
	TotalWaste decimal.Decimal
}

// MealRating is the average rating of one meal on one day
type MealRating struct {
	Meal         mealtime.MealPeriod
	FeedbackDate time.Time
	AvgRating    float64
}

// FeedbackComment is one free-text comment left on a food item
type FeedbackComment struct {
	DetailID  int64
	FoodItem  string
	Rating    int
	Comments  string
	CreatedAt time.Time
}

// PurgeResult counts rows removed by PurgeBefore
type PurgeResult struct {
	Overrides   int64
	NonVegItems int64
	NonVegMenus int64
}

// VoteCount is the number of votes of one kind for one mess
type VoteCount struct {
	Mess  string
	Vote  string
	Count int
}

// MessRating is the average rating and submission count of one mess
type MessRating struct {
	Mess      string
	AvgRating float64
	Count     int
}

// NonVegItem is a priced non-veg item on a mess menu
type NonVegItem struct {
	FoodItem string
	Cost     decimal.Decimal
}

// PaymentDay totals the payments of one meal on one day
type PaymentDay struct {
	PaymentDate time.Time
	Meal        string
	FoodItems   string
	TotalAmount decimal.Decimal
}

// FloorTotal is the waste of one floor over a period
type FloorTotal struct {
	Floor      string
	TotalWaste decimal.Decimal
}

// FeedbackDay summarises the feedback of one meal on one day
type FeedbackDay struct {
	FeedbackDate  time.Time
	Meal          string
	TotalStudents int
	AvgRating     float64
}

// MenuStore reads the menu tables
type MenuStore interface {
	// OverrideItems returns today's substitute items for key
	OverrideItems(ctx context.Context, key MenuKey) ([]string, error)
	// DefaultItems returns the recurring items for key
	DefaultItems(ctx context.Context, key MenuKey) ([]string, error)
	// TopRatedItem returns the best average-rated item served in key's slot.
	// ok is false when no item has feedback.
	TopRatedItem(ctx context.Context, key MenuKey) (item ItemRating, ok bool, err error)
}

// AlertStore reads the aggregates behind waste and feedback alerts
type AlertStore interface {
	// WasteAbove returns per floor and day waste totals above threshold
	// since the given day, newest first
	WasteAbove(ctx context.Context, floors []string, since time.Time, threshold decimal.Decimal) ([]FloorWaste, error)
	// RatingsBelow returns per meal and day averages below threshold for mess
	// since the given day, newest first
	RatingsBelow(ctx context.Context, mess string, since time.Time, threshold float64) ([]MealRating, error)
}

// CleanupStore removes records that only live for one day
type CleanupStore interface {
	// PurgeBefore deletes overrides created before day and non-veg menus
	// dated before day
	PurgeBefore(ctx context.Context, day time.Time) (PurgeResult, error)
}

// DigestStore feeds and records the critical-feedback digest
type DigestStore interface {
	// FeedbackComments returns non-empty comments for mess and meal made on
	// day and strictly after the given instant, oldest first
	FeedbackComments(ctx context.Context, mess string, day time.Time, meal mealtime.MealPeriod, after time.Time) ([]FeedbackComment, error)
	// InsertNotification stores n and fills its ID
	InsertNotification(ctx context.Context, n *Notification) error
}

// ReadStore backs the cached read services
type ReadStore interface {
	PollCounts(ctx context.Context, day time.Time, meal mealtime.MealPeriod) ([]VoteCount, error)
	// MealRatings averages meal ratings per mess over days of the same parity week as day
	MealRatings(ctx context.Context, meal mealtime.MealPeriod, day time.Time) ([]MessRating, error)
	NonVegItems(ctx context.Context, mess string, day time.Time, meal mealtime.MealPeriod) ([]NonVegItem, error)
	PaymentSummary(ctx context.Context, mess string, since time.Time) ([]PaymentDay, error)
	Notifications(ctx context.Context, recipient string, since time.Time) ([]Notification, error)
	// FeatureToggle returns the single toggle row; ok is false when the table is empty
	FeatureToggle(ctx context.Context) (toggle FeatureToggle, ok bool, err error)
	WasteByFloor(ctx context.Context, since time.Time) ([]FloorTotal, error)
	FeedbackSummary(ctx context.Context, mess string, since time.Time) ([]FeedbackDay, error)
}

// DataStore is everything the core reads or writes
type DataStore interface {
	MenuStore
	AlertStore
	CleanupStore
	DigestStore
	ReadStore
}

// Package mealtime turns wall-clock time into the mess serving context:
// which meal is being served and which week of the two-week menu applies.
//
// Everything here is pure arithmetic on a time.Time in the civil zone of the
// mess. Nothing returns an error.
package mealtime

import (
	"strings"
	"time"
	_ "time/tzdata"
)

// MealPeriod is one of the four daily serving windows, or None
type MealPeriod string

const (
	None      MealPeriod = ""
	Breakfast MealPeriod = "Breakfast"
	Lunch     MealPeriod = "Lunch"
	Snacks    MealPeriod = "Snacks"
	Dinner    MealPeriod = "Dinner"
)

// Meals lists the serving windows in daily order
var Meals = []MealPeriod{Breakfast, Lunch, Snacks, Dinner}

// ParseMeal matches s against the meal names ignoring case
func ParseMeal(s string) (MealPeriod, bool) {
	for _, m := range Meals {
		if strings.EqualFold(s, string(m)) {
			return m, true
		}
	}
	return None, false
}

// WeekParity selects one half of the alternating two-week menu
type WeekParity string

const (
	Odd  WeekParity = "Odd"
	Even WeekParity = "Even"
)

// Boundary minutes of the serving day.
const (
	lunchStart  = 11 * 60    // 660
	snacksStart = 16 * 60    // 960
	dinnerStart = 18*60 + 30 // 1110
	lastMinute  = 23*60 + 59 // 1439
	dayMinutes  = 24 * 60    // 1440
	fallbackTTL = 3600       // seconds
)

var boundaries = []int{0, lunchStart, snacksStart, dinnerStart, dayMinutes}

// DefaultZone is the civil zone the mess operates in
const DefaultZone = "Asia/Kolkata"

// epoch is the first day of an Odd week
var epoch = civilDate{2025, time.July, 27}

// Clock supplies the current instant
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads time.Now
var SystemClock Clock = ClockFunc(time.Now)

// Oracle derives serving context from a clock in a fixed zone
type Oracle struct {
	clock Clock
	loc   *time.Location
}

// New creates an Oracle. A nil clock means SystemClock, a nil loc means
// DefaultZone (falling back to a fixed +05:30 offset when tzdata is missing).
func New(clock Clock, loc *time.Location) *Oracle {
	if clock == nil {
		clock = SystemClock
	}
	if loc == nil {
		loc = DefaultLocation()
	}
	return &Oracle{clock: clock, loc: loc}
}

// DefaultLocation loads DefaultZone
func DefaultLocation() *time.Location {
	loc, err := time.LoadLocation(DefaultZone)
	if err != nil {
		return time.FixedZone("IST", 5*60*60+30*60)
	}
	return loc
}

// Location returns the civil zone of the oracle
func (o *Oracle) Location() *time.Location {
	return o.loc
}

// Now returns the current instant in the civil zone
func (o *Oracle) Now() time.Time {
	return o.clock.Now().In(o.loc)
}

// Today returns midnight of the current civil date
func (o *Oracle) Today() time.Time {
	return o.StartOfDay(o.Now())
}

// StartOfDay returns midnight of t's civil date
func (o *Oracle) StartOfDay(t time.Time) time.Time {
	t = t.In(o.loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, o.loc)
}

// CurrentMeal returns the meal active right now
func (o *Oracle) CurrentMeal() MealPeriod {
	return o.ActiveMeal(o.Now())
}

// ActiveMeal returns the meal being served at t.
//
// The ranges are checked in daily order, so minute 1110 (18:30) is Snacks:
// Snacks ends inclusively at 1110 and Dinner starts exclusively after it.
// The inclusive Snacks end is likely an off-by-one against the 18:30 Dinner
// start, kept so existing clients see the same meal at 18:30.
func (o *Oracle) ActiveMeal(t time.Time) MealPeriod {
	return MealAt(minuteOfDay(t.In(o.loc)))
}

// MealAt classifies a minute of the day
func MealAt(m int) MealPeriod {
	switch {
	case 0 <= m && m < lunchStart:
		return Breakfast
	case lunchStart <= m && m < snacksStart:
		return Lunch
	// 18:30 is still Snacks; Dinner starts at 18:31.
	case snacksStart <= m && m <= dinnerStart:
		return Snacks
	case dinnerStart < m && m <= lastMinute:
		return Dinner
	}
	return None
}

// WeekParity returns the parity of t's civil date. A zero t means today.
func (o *Oracle) WeekParity(t time.Time) WeekParity {
	if t.IsZero() {
		t = o.Now()
	}
	days := daysBetween(epoch, dateOf(t.In(o.loc)))
	if floorDiv(days, 7)%2 == 0 {
		return Odd
	}
	return Even
}

// Weekday returns the weekday name of t's civil date, as the menu tables store it
func (o *Oracle) Weekday(t time.Time) string {
	return t.In(o.loc).Weekday().String()
}

// SecondsUntilNextBoundary returns the whole-minute distance, in seconds,
// from t to the next meal boundary.
func (o *Oracle) SecondsUntilNextBoundary(t time.Time) int {
	m := minuteOfDay(t.In(o.loc))
	for _, b := range boundaries {
		if b > m {
			return (b - m) * 60
		}
	}
	return fallbackTTL
}

// MealTTL is SecondsUntilNextBoundary(Now()) as a duration
func (o *Oracle) MealTTL() time.Duration {
	return time.Duration(o.SecondsUntilNextBoundary(o.Now())) * time.Second
}

// MealsFrom returns meal and every later meal of the same day
func MealsFrom(meal MealPeriod) []MealPeriod {
	for i, m := range Meals {
		if m == meal {
			return append([]MealPeriod(nil), Meals[i:]...)
		}
	}
	return nil
}

// IsLast reports whether meal is the final serving of the day
func IsLast(meal MealPeriod) bool {
	return meal == Meals[len(Meals)-1]
}

// EndMinute returns the minute of the day at which meal stops being served.
// Dinner ends at midnight (1440).
func EndMinute(meal MealPeriod) int {
	switch meal {
	case Breakfast:
		return lunchStart
	case Lunch:
		return snacksStart
	case Snacks:
		return dinnerStart
	case Dinner:
		return dayMinutes
	}
	return -1
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

type civilDate struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{y, m, d}
}

// daysBetween counts calendar days from a to b, independent of zone offsets
func daysBetween(a, b civilDate) int {
	ta := time.Date(a.year, a.month, a.day, 0, 0, 0, 0, time.UTC)
	tb := time.Date(b.year, b.month, b.day, 0, 0, 0, 0, time.UTC)
	return int(tb.Sub(ta).Hours() / 24)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

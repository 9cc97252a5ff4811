package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/blackpanther093/manage/mealtime"
)

// Slot names one dataset cached by the Manager
type Slot string

const (
	Menu          Slot = "menu"
	NonVegMenu    Slot = "non_veg_menu"
	Rating        Slot = "rating"
	Payment       Slot = "payment"
	Feedback      Slot = "feedback"
	Waste         Slot = "waste"
	Notification  Slot = "notification"
	FeatureToggle Slot = "feature_toggle"
	Poll          Slot = "poll"
)

// Slots lists every slot a Manager owns
var Slots = []Slot{Menu, NonVegMenu, Rating, Payment, Feedback, Waste, Notification, FeatureToggle, Poll}

// store is the type-erased view of a TTLCache the Manager needs
type store interface {
	Clear(keys ...string)
	ClearFunc(match func(string) bool) int
	SweepExpired(ttl time.Duration) int
	Len() int
}

type slot struct {
	ttl   time.Duration
	cache store
	kind  string
}

// Manager owns one TTLCache per Slot, each with a fixed TTL.
// Build one per process and pass it to every consumer.
type Manager struct {
	opts []Option

	mu    sync.Mutex
	slots map[Slot]*slot
}

// NewManager creates a Manager. A zero cfg.MenuTTL is replaced by the time
// left until the oracle's next meal boundary.
func NewManager(oracle *mealtime.Oracle, cfg *Config, opts ...Option) (*Manager, error) {
	if oracle == nil {
		return nil, ErrInvalidConfig
	}
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	menuTTL := cfg.MenuTTL
	if menuTTL == 0 {
		menuTTL = oracle.MealTTL()
	}

	// the caches age entries on the oracle's clock unless told otherwise
	opts = append([]Option{WithClock(mealtime.ClockFunc(oracle.Now))}, opts...)

	m := &Manager{
		opts: opts,
		slots: map[Slot]*slot{
			Menu:          {ttl: menuTTL},
			NonVegMenu:    {ttl: cfg.NonVegMenuTTL},
			Rating:        {ttl: cfg.RatingTTL},
			Payment:       {ttl: cfg.PaymentTTL},
			Feedback:      {ttl: cfg.FeedbackTTL},
			Waste:         {ttl: cfg.WasteTTL},
			Notification:  {ttl: cfg.NotificationTTL},
			FeatureToggle: {ttl: cfg.FeatureToggleTTL},
			Poll:          {ttl: cfg.PollTTL},
		},
	}
	return m, nil
}

// Bind returns the typed cache behind s, creating it on first use.
// Every caller of the same slot must use the same T.
func Bind[T any](m *Manager, s Slot) (*TTLCache[T], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sl, ok := m.slots[s]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSlot, s)
	}
	kind := fmt.Sprintf("%T", *new(T))
	if sl.cache == nil {
		c := NewTTLCache[T](string(s), m.opts...)
		sl.cache = c
		sl.kind = kind
		return c, nil
	}
	c, ok := sl.cache.(*TTLCache[T])
	if !ok {
		return nil, ErrSlotType(s, sl.kind, kind)
	}
	return c, nil
}

// MustBind is Bind for wiring code that cannot recover from a type clash
func MustBind[T any](m *Manager, s Slot) *TTLCache[T] {
	c, err := Bind[T](m, s)
	if err != nil {
		panic(err)
	}
	return c
}

// TTL returns the TTL of s, or zero for an unknown slot
func (m *Manager) TTL(s Slot) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sl, ok := m.slots[s]; ok {
		return sl.ttl
	}
	return 0
}

// Clear removes keys from s, or every entry of s when no key is given
func (m *Manager) Clear(s Slot, keys ...string) {
	if c := m.cache(s); c != nil {
		c.Clear(keys...)
	}
}

// ClearFunc removes the keys of s that match and reports how many were removed
func (m *Manager) ClearFunc(s Slot, match func(string) bool) int {
	if c := m.cache(s); c != nil {
		return c.ClearFunc(match)
	}
	return 0
}

// ClearAll empties every slot
func (m *Manager) ClearAll() {
	for _, c := range m.bound() {
		c.cache.Clear()
	}
}

// SweepAll drops expired entries from every slot using each slot's TTL and
// returns the number removed per slot
func (m *Manager) SweepAll() map[Slot]int {
	out := make(map[Slot]int)
	for name, sl := range m.bound() {
		out[name] = sl.cache.SweepExpired(sl.ttl)
	}
	return out
}

// Len returns the number of entries stored in s
func (m *Manager) Len(s Slot) int {
	if c := m.cache(s); c != nil {
		return c.Len()
	}
	return 0
}

func (m *Manager) cache(s Slot) store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sl, ok := m.slots[s]; ok {
		return sl.cache
	}
	return nil
}

// bound copies the slots that have a cache so callers can work without m.mu
func (m *Manager) bound() map[Slot]slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Slot]slot, len(m.slots))
	for name, sl := range m.slots {
		if sl.cache != nil {
			out[name] = *sl
		}
	}
	return out
}

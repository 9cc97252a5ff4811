// Package scheduler runs the background jobs of the mess core on civil-time
// triggers: the midnight purge, the hourly alert recomputation and the
// per-meal critical feedback digest.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/blackpanther093/manage/cache"
	"github.com/blackpanther093/manage/ch"
	"github.com/blackpanther093/manage/cron"
	"github.com/blackpanther093/manage/digest"
	"github.com/blackpanther093/manage/logger"
	"github.com/blackpanther093/manage/mealtime"
	"github.com/blackpanther093/manage/store"
	"go.uber.org/zap"
)

// Chain names
const (
	ChainCleanup   = "cleanup"
	ChainAggregate = "aggregate_recompute"
)

// NotifyChain is the chain name of meal's digest
func NotifyChain(meal mealtime.MealPeriod) string {
	return "notify_" + strings.ToLower(string(meal))
}

// Store is the part of the data store the jobs use
type Store interface {
	store.AlertStore
	store.CleanupStore
	store.DigestStore
}

// Publisher emits notification events, typically a *kafka.Publisher
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, event any) error
}

// AlertSink records alert snapshots, typically a ch.Writer
type AlertSink interface {
	Write(ctx context.Context, rows []ch.AlertRow) error
}

// Option configures optional collaborators
type Option func(*Scheduler)

// WithDigest sets the classifier and summarizer of the notification chains.
// Without it every comment is classified by digest.DefaultCriticalTerms and
// digests carry raw text.
func WithDigest(c digest.Classifier, s digest.Summarizer) Option {
	return func(sc *Scheduler) {
		if c != nil {
			sc.classifier = c
		}
		sc.summarizer = s
	}
}

// WithPublisher publishes every persisted digest
func WithPublisher(p Publisher) Option {
	return func(s *Scheduler) { s.publisher = p }
}

// WithAlertHistory forwards every fresh alert snapshot to sink
func WithAlertHistory(sink AlertSink) Option {
	return func(s *Scheduler) { s.history = sink }
}

// Scheduler owns the job chains and the in-memory alert snapshots
type Scheduler struct {
	log    logger.Logger
	oracle *mealtime.Oracle
	cron   cron.Cron
	store  Store
	cache  *cache.Manager
	cfg    *Config

	classifier digest.Classifier
	summarizer digest.Summarizer
	publisher  Publisher
	history    AlertSink

	messes    map[string]store.Mess
	snapshots map[string]*cache.Snapshot[[]Alert]

	mu        sync.Mutex
	watermark map[string]map[mealtime.MealPeriod]watermark
}

// New registers the job chains on cr. Call Start to begin triggering them.
func New(log logger.Logger, oracle *mealtime.Oracle, cr cron.Cron, st Store, mgr *cache.Manager, cfg *Config, opts ...Option) (*Scheduler, error) {
	if oracle == nil || cr == nil || st == nil || mgr == nil {
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

	s := &Scheduler{
		log:        log,
		oracle:     oracle,
		cron:       cr,
		store:      st,
		cache:      mgr,
		cfg:        cfg,
		classifier: digest.NewKeywordClassifier(),
		messes:     make(map[string]store.Mess, len(cfg.Messes)),
		snapshots:  make(map[string]*cache.Snapshot[[]Alert], len(cfg.Messes)),
		watermark:  make(map[string]map[mealtime.MealPeriod]watermark),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, m := range cfg.Messes {
		snapCfg := cfg.Snapshot
		snapCfg.Name = cfg.Snapshot.Name + ":" + m.Name
		snap, err := cache.NewSnapshot(log, &snapCfg, s.alertLoader(m), cache.WithClock(mealtime.ClockFunc(oracle.Now)))
		if err != nil {
			return nil, err
		}
		s.messes[m.Name] = m
		s.snapshots[m.Name] = snap
	}

	if err := s.register(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) register() error {
	if err := s.cron.AddTasks(ChainCleanup, s.cfg.CleanupSpec,
		cron.TaskFunc{TaskName: "purge", Fn: s.cleanup},
	); err != nil {
		return err
	}
	if err := s.cron.AddTasks(ChainAggregate, s.cfg.AggregateSpec,
		cron.TaskFunc{TaskName: "recompute", Fn: s.recompute},
	); err != nil {
		return err
	}
	if s.cfg.DisableNotifications {
		return nil
	}
	for _, meal := range mealtime.Meals {
		spec, err := NotifySpec(meal, s.cfg.NotifyLead)
		if err != nil {
			return err
		}
		n := &notifier{s: s, meal: meal}
		if err := s.cron.AddTasks(NotifyChain(meal), spec,
			cron.TaskFunc{TaskName: "collect", Fn: n.collect},
			cron.TaskFunc{TaskName: "summarize", Fn: n.summarize},
			cron.TaskFunc{TaskName: "persist", Fn: n.persist},
		); err != nil {
			return err
		}
	}
	return nil
}

// NotifySpec returns the six-field cron spec firing lead before meal ends
func NotifySpec(meal mealtime.MealPeriod, lead time.Duration) (string, error) {
	end := mealtime.EndMinute(meal)
	if end < 0 {
		return "", ErrInvalidField("meal", meal)
	}
	at := end - int(lead/time.Minute)
	return fmt.Sprintf("0 %d %d * * *", at%60, at/60), nil
}

// Start recomputes alerts once, then starts the triggers
func (s *Scheduler) Start(ctx context.Context) {
	if err := s.RunNow(ctx, ChainAggregate); err != nil {
		s.log.Warn("initial alert recomputation failed", zap.Error(err))
	}
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("chains", len(s.cron.Entries())))
}

// Close stops the triggers and waits for running chains
func (s *Scheduler) Close() {
	s.cron.Close()
	s.log.Info("scheduler stopped")
}

// RunNow runs the named chain synchronously
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	return s.cron.RunNow(ctx, name)
}

// Entries lists the registered chains
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// cleanup purges records that expired at midnight and drops menu caches
// derived from them. Running it twice on one day deletes nothing the second time.
func (s *Scheduler) cleanup(ctx context.Context) error {
	today := s.oracle.Today()
	res, err := s.store.PurgeBefore(ctx, today)
	if err != nil {
		return err
	}
	s.cache.Clear(cache.Menu)
	s.cache.Clear(cache.NonVegMenu)
	swept := s.cache.SweepAll()

	total := 0
	for _, n := range swept {
		total += n
	}
	s.log.Info("daily cleanup finished",
		zap.Int64("overrides", res.Overrides),
		zap.Int64("non_veg_items", res.NonVegItems),
		zap.Int64("non_veg_menus", res.NonVegMenus),
		zap.Int("swept_entries", total),
	)
	return nil
}

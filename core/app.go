package core

import (
	"context"
	"errors"

	"github.com/blackpanther093/manage/cache"
	"github.com/blackpanther093/manage/ch"
	"github.com/blackpanther093/manage/config"
	"github.com/blackpanther093/manage/cron"
	"github.com/blackpanther093/manage/db"
	"github.com/blackpanther093/manage/digest"
	"github.com/blackpanther093/manage/kafka"
	"github.com/blackpanther093/manage/logger"
	"github.com/blackpanther093/manage/mealtime"
	"github.com/blackpanther093/manage/menu"
	"github.com/blackpanther093/manage/scheduler"
	"github.com/blackpanther093/manage/store"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// App is a fully wired process: Core plus the resources behind it
type App struct {
	Core      *Core
	Scheduler *scheduler.Scheduler
	Store     *store.GormStore
	History   ch.Client

	db      db.Database
	log     logger.Logger
	closers []func() error
}

// Build opens every configured resource and wires the components.
// reg receives the cache and job metrics; nil skips them.
func Build(log logger.Logger, cfg *config.Config, reg prometheus.Registerer) (_ *App, err error) {
	if log == nil {
		log = logger.Nop()
	}
	app := &App{log: log}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	database, err := db.NewMySQL(log, &cfg.Database)
	if err != nil {
		return nil, err
	}
	app.db = database
	app.closers = append(app.closers, database.Close)

	st, err := store.New(log, database)
	if err != nil {
		return nil, err
	}
	app.Store = st

	var mws []cron.Middleware
	if reg != nil {
		mws = append(mws, cron.MetricsMiddleware(cron.NewMetrics(reg)))
	}
	cr, err := cron.New(log, &cfg.Cron, mws...)
	if err != nil {
		return nil, err
	}
	// meals and triggers share one civil zone
	oracle := mealtime.New(nil, cr.Location())
	var opts []cache.Option
	if reg != nil {
		opts = append(opts, cache.WithMetrics(cache.NewMetrics(reg)))
	}
	mgr, err := cache.NewManager(oracle, &cfg.Cache, opts...)
	if err != nil {
		return nil, err
	}

	resolver, err := menu.NewResolver(log, oracle, st, mgr, &cfg.Menu)
	if err != nil {
		return nil, err
	}
	reads, err := menu.NewService(log, oracle, st, mgr, &cfg.Menu)
	if err != nil {
		return nil, err
	}

	classifier, summarizer, err := digest.New(log, &cfg.Digest)
	if err != nil {
		return nil, err
	}
	schedOpts := []scheduler.Option{scheduler.WithDigest(classifier, summarizer)}

	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(log, &cfg.Kafka)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, producer.Close)
		schedOpts = append(schedOpts, scheduler.WithPublisher(kafka.NewPublisher(producer, cfg.Kafka.Topic)))
	}

	if cfg.ClickHouse.Enabled {
		client, err := ch.NewClient(&cfg.ClickHouse, log)
		if err != nil {
			return nil, err
		}
		app.History = client
		app.closers = append(app.closers, client.Close)

		writer, err := client.Writer()
		switch {
		case errors.Is(err, ch.ErrWriterDisabled):
			log.Info("alert history writer disabled, history is read-only")
		case err != nil:
			return nil, err
		default:
			if err := writer.Start(); err != nil {
				return nil, err
			}
			schedOpts = append(schedOpts, scheduler.WithAlertHistory(writer))
		}
	}

	sched, err := scheduler.New(log, oracle, cr, st, mgr, &cfg.Scheduler, schedOpts...)
	if err != nil {
		return nil, err
	}
	app.Scheduler = sched

	c, err := New(oracle, mgr, resolver, reads, sched)
	if err != nil {
		return nil, err
	}
	app.Core = c
	return app, nil
}

// Start begins the scheduler
func (a *App) Start(ctx context.Context) {
	a.Scheduler.Start(ctx)
}

// Ping checks the database connection
func (a *App) Ping(ctx context.Context) error {
	return a.db.Ping(ctx)
}

// Close stops the scheduler and releases resources in reverse order of acquisition
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}

package cron

import (
	"context"
	"time"

	"github.com/blackpanther093/manage/logger"
	"github.com/blackpanther093/manage/routine"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Middleware wraps a Task with additional behavior
type Middleware func(Task) Task

// applyMiddlewares applies mws so that the first one is outermost:
// applyMiddlewares(task, mw1, mw2) is mw1(mw2(task))
func applyMiddlewares(t Task, mws ...Middleware) Task {
	for i := len(mws) - 1; i >= 0; i-- {
		t = mws[i](t)
	}
	return t
}

// wrap builds a Task that keeps next's name
func wrap(next Task, exec func(ctx context.Context) error) Task {
	return &wrappedTask{name: next.Name(), exec: exec}
}

// recoveryMiddleware turns a task panic into an error
func recoveryMiddleware(log logger.Logger) Middleware {
	return func(next Task) Task {
		return wrap(next, func(ctx context.Context) (err error) {
			defer routine.Recover(log, next.Name(), &err)
			return next.Run(ctx)
		})
	}
}

// loggingMiddleware logs the outcome of a task with its duration
func loggingMiddleware(log logger.Logger) Middleware {
	return func(next Task) Task {
		return wrap(next, func(ctx context.Context) error {
			start := time.Now()
			log.Debug("task started", zap.String("task", next.Name()))

			err := next.Run(ctx)
			fields := []zap.Field{zap.String("task", next.Name()), zap.Duration("duration", time.Since(start))}
			if err != nil {
				log.Error("task failed", append(fields, zap.Error(err))...)
			} else {
				log.Info("task completed", fields...)
			}
			return err
		})
	}
}

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomePanic   = "panic"
)

// Metrics counts task runs by outcome and observes their duration
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when reg is not nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mess",
			Subsystem: "cron",
			Name:      "task_runs_total",
			Help:      "Scheduled task runs by outcome.",
		}, []string{"task", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mess",
			Subsystem: "cron",
			Name:      "task_duration_seconds",
			Help:      "Wall time of scheduled task runs.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60},
		}, []string{"task"}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.duration)
	}
	return m
}

// MetricsMiddleware records every run of a task in m. A panic is counted
// before it unwinds to the recovery middleware.
func MetricsMiddleware(m *Metrics) Middleware {
	return func(next Task) Task {
		return wrap(next, func(ctx context.Context) error {
			start := time.Now()
			outcome := outcomePanic
			defer func() {
				m.runs.WithLabelValues(next.Name(), outcome).Inc()
				m.duration.WithLabelValues(next.Name()).Observe(time.Since(start).Seconds())
			}()

			err := next.Run(ctx)
			if err != nil {
				outcome = outcomeFailure
			} else {
				outcome = outcomeSuccess
			}
			return err
		})
	}
}

type wrappedTask struct {
	name string
	exec func(ctx context.Context) error
}

func (w *wrappedTask) Name() string {
	return w.name
}

func (w *wrappedTask) Run(ctx context.Context) error {
	return w.exec(ctx)
}

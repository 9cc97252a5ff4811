// Package cron runs named chains of tasks on wall-clock triggers in a fixed
// civil timezone.
//
// A chain never overlaps itself: a trigger that fires while the previous run
// is still going is skipped. Every task runs behind recovery and logging
// middleware, so a failing or panicking task only aborts its own chain run.
package cron

import (
	"context"
	"time"

	"github.com/blackpanther093/manage/logger"
)

// Task is the interface for a cron task
// Each task must have a unique name and implement the Run method
type Task interface {
	// Name returns the unique identifier for this task
	Name() string
	// Run executes the task with the given context
	// The context carries the chain's SharedData
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to Task
type TaskFunc struct {
	TaskName string
	Fn       func(ctx context.Context) error
}

func (t TaskFunc) Name() string                  { return t.TaskName }
func (t TaskFunc) Run(ctx context.Context) error { return t.Fn(ctx) }

// Chain is a named, scheduled sequence of tasks
type Chain struct {
	Name  string
	Spec  string
	Tasks []Task
}

// Entry describes a registered chain
type Entry struct {
	Name string
	Spec string
	Next time.Time
	Prev time.Time
}

// Cron is the interface for managing cron jobs
type Cron interface {
	// Start begins the scheduler
	Start()
	// Close stops the scheduler and waits for running chains to complete
	Close()
	// AddTasks schedules tasks as one chain. Spec uses six fields
	// (seconds first) or a descriptor such as "@every 1h".
	// Tasks run in order; the first failure aborts the run.
	AddTasks(name string, spec string, tasks ...Task) error
	// AddChain is alias for AddTasks
	AddChain(chain Chain) error
	// RunNow runs the named chain synchronously and returns its error
	RunNow(ctx context.Context, name string) error
	// Entries lists registered chains ordered by name
	Entries() []Entry
	// Location returns the zone triggers are evaluated in
	Location() *time.Location
}

// New creates a cron manager
// Middlewares are applied to all tasks after the built-in recovery and
// logging middlewares
func New(log logger.Logger, cfg *Config, mws ...Middleware) (Cron, error) {
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

	// Validate already proved the zone loads
	loc, _ := time.LoadLocation(cfg.TimeZone)

	defaultMws := []Middleware{
		recoveryMiddleware(log),
		loggingMiddleware(log),
	}
	return newCronManager(log, loc, cfg.RunTimeout, append(defaultMws, mws...)...), nil
}

// Package routine runs goroutines that cannot take the process down.
//
// Background loops in the mess core (scheduler warm-up, writer flush loops,
// kafka delivery reports) start through this package so a panic is logged
// instead of crashing request handling.
package routine

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/blackpanther093/manage/logger"
	"go.uber.org/zap"
)

// Runner starts named goroutines with panic recovery and can wait for them
type Runner interface {
	// GoNamed executes fn in a new goroutine; name is used for logging
	GoNamed(name string, fn func())

	// GoNamedWithContext executes fn with ctx in a new goroutine
	GoNamedWithContext(ctx context.Context, name string, fn func(ctx context.Context))

	// Wait waits for all goroutines started by this runner to complete
	Wait()
}

type defaultRunner struct {
	log logger.Logger
	wg  sync.WaitGroup
}

// New creates a new Runner with the given logger
func New(log logger.Logger) Runner {
	return &defaultRunner{log: log}
}

func (r *defaultRunner) GoNamed(name string, fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer recoverWithLog(r.log, name)
		fn()
	}()
}

func (r *defaultRunner) GoNamedWithContext(ctx context.Context, name string, fn func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer recoverWithLog(r.log, name)
		fn(ctx)
	}()
}

func (r *defaultRunner) Wait() {
	r.wg.Wait()
}

// GoNamedWithContext runs fn in a fire-and-forget goroutine with panic recovery
func GoNamedWithContext(ctx context.Context, log logger.Logger, name string, fn func(ctx context.Context)) {
	go func() {
		defer recoverWithLog(log, name)
		fn(ctx)
	}()
}

// Recover logs a recovered panic and returns it as an error.
// Use it as `defer routine.Recover(log, name, &err)`.
func Recover(log logger.Logger, name string, err *error) {
	if rec := recover(); rec != nil {
		logPanic(log, name, rec)
		if err != nil {
			*err = ErrPanic(rec)
		}
	}
}

func recoverWithLog(log logger.Logger, name string) {
	if rec := recover(); rec != nil {
		logPanic(log, name, rec)
	}
}

func logPanic(log logger.Logger, name string, rec any) {
	fields := []zap.Field{
		zap.Any("panic", rec),
		zap.String("stack", string(debug.Stack())),
	}
	if name != "" {
		fields = append([]zap.Field{zap.String("routine", name)}, fields...)
	}
	log.Error("goroutine panicked", fields...)
}

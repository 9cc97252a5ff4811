package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/blackpanther093/manage/logger"
	"github.com/blackpanther093/manage/mealtime"
	"go.uber.org/zap"
)

// LoadFunc computes a fresh snapshot value.
// The context carries the per-attempt timeout.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Snapshot holds one value that is recomputed wholesale by Load.
// Readers see either the previous value or the new one, never a mix.
// A failed Load leaves the previous value in place.
//
// IMPORTANT: for reference types Get returns the stored value itself.
// Callers MUST treat it as read-only.
type Snapshot[T any] struct {
	logger logger.Logger
	load   LoadFunc[T]
	clock  mealtime.Clock

	name         string
	loadTimeout  time.Duration
	maxRetries   int
	retryBackoff time.Duration

	mu       sync.RWMutex
	value    T
	loadedAt time.Time
}

// NewSnapshot creates an empty snapshot. Call Load to fill it.
// WithClock sets the clock that stamps LoadedAt; other options are ignored.
func NewSnapshot[T any](log logger.Logger, cfg *SnapshotConfig, load LoadFunc[T], opts ...Option) (*Snapshot[T], error) {
	if cfg == nil {
		cfg = DefaultSnapshotConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if load == nil {
		return nil, ErrInvalidConfig
	}
	if log == nil {
		log = logger.Nop()
	}
	o := options{clock: mealtime.SystemClock}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = mealtime.SystemClock
	}

	return &Snapshot[T]{
		logger:       log,
		load:         load,
		clock:        o.clock,
		name:         cfg.Name,
		loadTimeout:  cfg.LoadTimeout,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
	}, nil
}

// Get returns the current value
func (s *Snapshot[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// LoadedAt returns when the current value was stored, or the zero time
func (s *Snapshot[T]) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Load recomputes the value, retrying transient failures with exponential
// backoff, and swaps it in on success
func (s *Snapshot[T]) Load(ctx context.Context) error {
	var lastErr error

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := s.retryBackoff << (attempt - 1)
			s.logger.Warn("retrying load after backoff",
				zap.String("snapshot", s.name),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ErrLoad(ctx.Err())
			}
		}

		loadCtx, cancel := context.WithTimeout(ctx, s.loadTimeout)
		data, err := s.load(loadCtx)
		cancel()

		if err == nil {
			s.mu.Lock()
			s.value = data
			s.loadedAt = s.clock.Now()
			s.mu.Unlock()
			s.logger.Debug("snapshot loaded",
				zap.String("snapshot", s.name),
				zap.Int("attempt", attempt+1),
			)
			return nil
		}

		lastErr = err
		if !isRetryableError(err) {
			s.logger.Error("non-retryable load error",
				zap.String("snapshot", s.name),
				zap.Error(err),
			)
			return ErrLoad(err)
		}

		s.logger.Warn("load failed, will retry",
			zap.String("snapshot", s.name),
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", s.maxRetries),
		)
	}

	return ErrLoad(lastErr)
}

// isRetryableError reports whether err looks like a transient database or
// network failure
func isRetryableError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := err.Error()
	retryableErrors := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"timeout",
		"too many connections",
		"invalid connection",
		"bad connection",
		"network is unreachable",
	}
	for _, retryable := range retryableErrors {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}
	return false
}

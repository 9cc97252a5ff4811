package cron

import (
	"context"
	"sync"
)

type contextKey string

const sharedDataKey contextKey = "cron:shared_data"

// SharedData carries values between the tasks of one chain run
type SharedData struct {
	data sync.Map
}

func withSharedData(ctx context.Context, s *SharedData) context.Context {
	return context.WithValue(ctx, sharedDataKey, s)
}

// GetSharedData returns the SharedData of the current run, or nil outside a chain
func GetSharedData(ctx context.Context) *SharedData {
	if val, ok := ctx.Value(sharedDataKey).(*SharedData); ok {
		return val
	}
	return nil
}

// Set stores value under key
func (s *SharedData) Set(key string, value any) {
	s.data.Store(key, value)
}

// Get returns the value stored under key
func (s *SharedData) Get(key string) (any, bool) {
	return s.data.Load(key)
}

// Delete removes key
func (s *SharedData) Delete(key string) {
	s.data.Delete(key)
}

// Value returns the value under key as a T. It reports false when the key is
// missing or holds another type.
func Value[T any](s *SharedData, key string) (T, bool) {
	var zero T
	if s == nil {
		return zero, false
	}
	v, ok := s.data.Load(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

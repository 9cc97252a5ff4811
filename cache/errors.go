package cache

import (
	"fmt"
	"time"
)

// Predefined errors
var (
	// ErrInvalidConfig is returned when a constructor argument is missing
	ErrInvalidConfig = fmt.Errorf("cache: invalid config")
	// ErrUnknownSlot is returned for a slot the Manager does not own
	ErrUnknownSlot = fmt.Errorf("cache: unknown slot")
)

// ErrLoad wraps a snapshot load error
func ErrLoad(err error) error {
	return fmt.Errorf("cache: load failed: %w", err)
}

// ErrSlotType is returned when a slot is bound with two different value types
func ErrSlotType(slot Slot, want, got string) error {
	return fmt.Errorf("cache: slot %s holds %s, requested %s", slot, want, got)
}

// ErrInvalidTTL returns an error for a negative slot TTL
func ErrInvalidTTL(slot Slot, ttl time.Duration) error {
	return fmt.Errorf("cache: invalid ttl for slot %s: %v (must be >= 0)", slot, ttl)
}

// ErrInvalidName returns an error for invalid name
func ErrInvalidName(name string) error {
	return fmt.Errorf("cache: invalid name: %s (must be non-empty)", name)
}

// ErrInvalidLoadTimeout returns an error for invalid load timeout
func ErrInvalidLoadTimeout(timeout time.Duration) error {
	return fmt.Errorf("cache: invalid load timeout: %v (must be > 0)", timeout)
}

// ErrInvalidMaxRetries returns an error for invalid max retries
func ErrInvalidMaxRetries(retries int) error {
	return fmt.Errorf("cache: invalid max retries: %d (must be >= 1)", retries)
}

// ErrInvalidRetryBackoff returns an error for invalid retry backoff
func ErrInvalidRetryBackoff(backoff time.Duration) error {
	return fmt.Errorf("cache: invalid retry backoff: %v (must be >= 0)", backoff)
}

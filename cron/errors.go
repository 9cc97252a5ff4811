package cron

import (
	"fmt"
	"time"
)

var (
	// ErrNoTasks is returned when attempting to add a chain job with no tasks
	ErrNoTasks = fmt.Errorf("cron: no tasks provided")

	// ErrDuplicateChain is returned when a chain name is registered twice
	ErrDuplicateChain = fmt.Errorf("cron: duplicate chain name")

	// ErrUnknownChain is returned by RunNow for an unregistered name
	ErrUnknownChain = fmt.Errorf("cron: unknown chain")

	// ErrChainRunning is returned when a chain is triggered while it is still running
	ErrChainRunning = fmt.Errorf("cron: chain is still running")
)

// ErrInvalidSpec wraps a spec the parser rejected
func ErrInvalidSpec(name, spec string, err error) error {
	return fmt.Errorf("cron: invalid spec %q for chain %s: %w", spec, name, err)
}

// ErrInvalidTimeZone returns an error for an unknown zone
func ErrInvalidTimeZone(zone string, err error) error {
	return fmt.Errorf("cron: invalid time zone %q: %w", zone, err)
}

// ErrInvalidRunTimeout returns an error for a negative run timeout
func ErrInvalidRunTimeout(d time.Duration) error {
	return fmt.Errorf("cron: invalid run timeout: %v (must be >= 0)", d)
}

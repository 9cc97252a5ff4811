package scheduler

import (
	"errors"
	"fmt"
)

// ErrNilDependency is returned when the scheduler is built without a collaborator
var ErrNilDependency = errors.New("scheduler: nil dependency")

// ErrInvalidField returns an error for an out-of-range config value
func ErrInvalidField(name string, v any) error {
	return fmt.Errorf("scheduler: invalid %s: %v", name, v)
}

// ErrRecompute wraps the failure of one mess's alert recomputation
func ErrRecompute(mess string, err error) error {
	return fmt.Errorf("scheduler: recompute alerts for %s: %w", mess, err)
}

// ErrPersist wraps a failed digest insert
func ErrPersist(mess string, err error) error {
	return fmt.Errorf("scheduler: persist digest for %s: %w", mess, err)
}

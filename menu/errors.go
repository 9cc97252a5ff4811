package menu

import (
	"errors"
	"fmt"
)

var (
	// ErrNilDependency is returned when a constructor is missing a collaborator
	ErrNilDependency = errors.New("menu: nil dependency")
	// ErrInvalidMess is returned for an empty or duplicate mess name
	ErrInvalidMess = errors.New("menu: invalid mess")
)

// ErrInvalidWindow returns an error for a negative look-back window
func ErrInvalidWindow(name string, days int) error {
	return fmt.Errorf("menu: invalid %s: %d (must be >= 0)", name, days)
}

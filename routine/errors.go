package routine

import "fmt"

// ErrPanic returns an error wrapping the recovered panic value
func ErrPanic(recovered any) error {
	return fmt.Errorf("routine: panic recovered: %v", recovered)
}

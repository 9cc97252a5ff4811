package store

import (
	"errors"
	"fmt"
)

// ErrNilDB is returned when the store is built without a connection
var ErrNilDB = errors.New("store: nil database")

// ErrQuery wraps a failed database operation with the operation name
func ErrQuery(op string, err error) error {
	return fmt.Errorf("store: %s failed: %w", op, err)
}

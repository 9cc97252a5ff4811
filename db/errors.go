package db

import (
	"errors"
	"fmt"
)

// ErrConnectionNotEstablished is returned by DB before a successful Open
var ErrConnectionNotEstablished = errors.New("db: connection not established")

// ErrInvalidConfig reports a rejected Config field
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("db: invalid config: %s", msg)
}

// ErrConnection wraps a failure to open, ping or close the pool
func ErrConnection(err error) error {
	return fmt.Errorf("db: connection failed: %w", err)
}

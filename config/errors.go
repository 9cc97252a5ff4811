package config

import "fmt"

// ErrRead wraps a failure to read the config file
func ErrRead(path string, err error) error {
	return fmt.Errorf("config: read %s: %w", path, err)
}

// ErrDecode wraps a failure to decode settings into Config
func ErrDecode(err error) error {
	return fmt.Errorf("config: decode: %w", err)
}

// ErrInvalid wraps the validation failures of one or more sections
func ErrInvalid(err error) error {
	return fmt.Errorf("config: invalid: %w", err)
}

// ErrInvalidField returns an error for an out-of-range value
func ErrInvalidField(name string, v any) error {
	return fmt.Errorf("config: invalid %s: %v", name, v)
}

package ch

import "fmt"

var (
	// ErrWriterClosed when writer is closed
	ErrWriterClosed = fmt.Errorf("ch: writer is closed")

	// ErrConnectionClosed when connection is closed
	ErrConnectionClosed = fmt.Errorf("ch: connection is closed")

	// ErrWriterDisabled when writer is not enabled (WriterConfig is nil)
	ErrWriterDisabled = fmt.Errorf("ch: writer is disabled, please set WriterConfig to enable")
)

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("ch: invalid config: %s", msg)
}

// ErrConnection ClickHouse connection error
func ErrConnection(err error) error {
	return fmt.Errorf("ch: connection failed: %w", err)
}

// ErrInsert insert error
func ErrInsert(table string, err error) error {
	return fmt.Errorf("ch: insert to table %s failed: %w", table, err)
}

// ErrQuery query error
func ErrQuery(table string, err error) error {
	return fmt.Errorf("ch: query on table %s failed: %w", table, err)
}

// Package ch keeps a history of aggregate alerts in ClickHouse.
//
// Each alert recomputation produces a fresh list per mess; the list is held in
// memory for readers and, when history is enabled, appended here so trends can
// be queried after the in-memory snapshot has been replaced.
package ch

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AlertTable is the history table
const AlertTable = "mess_alert_history"

// AlertKind tells which threshold an alert crossed
type AlertKind string

const (
	HighWaste   AlertKind = "high_waste"
	LowFeedback AlertKind = "low_feedback"
)

// AlertRow is one alert as recorded by one recomputation run
type AlertRow struct {
	Mess       string
	Kind       AlertKind
	Message    string
	AlertDate  time.Time
	Value      decimal.Decimal
	RecordedAt time.Time
}

// Writer buffers alert rows and inserts them in batches
type Writer interface {
	Start() error
	Close() error
	Write(ctx context.Context, rows []AlertRow) error
}

// Client is the ClickHouse entry point for alert history
type Client interface {
	// Writer returns the batch writer, or ErrWriterDisabled
	Writer() (Writer, error)
	// RecentAlerts returns alerts of mess recorded at or after since, newest first
	RecentAlerts(ctx context.Context, mess string, since time.Time) ([]AlertRow, error)
	// Close closes the writer and the connection
	Close() error
}

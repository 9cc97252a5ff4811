package ch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/blackpanther093/manage/logger"
	"github.com/blackpanther093/manage/routine"
	"github.com/smallnest/chanx"
	"go.uber.org/zap"
)

const insertAlertsQuery = "INSERT INTO `" + AlertTable + "` (mess, kind, message, alert_date, value, recorded_at)"

// insertFunc sends one batch
type insertFunc func(ctx context.Context, rows []AlertRow) error

type defaultWriter struct {
	config *WriterConfig
	logger logger.Logger
	insert insertFunc

	// unbounded so a slow ClickHouse never blocks alert recomputation
	dataChan *chanx.UnboundedChan[AlertRow]
	cancel   context.CancelFunc

	runner routine.Runner
	done   chan struct{}
	closed atomic.Bool
}

// newWriterWithConn creates a writer that inserts through conn
func newWriterWithConn(conn driver.Conn, config *WriterConfig, log logger.Logger) *defaultWriter {
	w := newWriter(config, log, nil)
	w.insert = func(ctx context.Context, rows []AlertRow) error {
		return batchInsert(ctx, conn, rows)
	}
	return w
}

func newWriter(config *WriterConfig, log logger.Logger, insert insertFunc) *defaultWriter {
	if config == nil {
		config = DefaultWriterConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &defaultWriter{
		config:   config,
		logger:   log,
		insert:   insert,
		dataChan: chanx.NewUnboundedChan[AlertRow](ctx, config.FlushSize),
		cancel:   cancel,
		runner:   routine.New(log),
		done:     make(chan struct{}),
	}
	log.Info("clickhouse alert writer initialized",
		zap.Duration("flush_interval", config.FlushInterval),
		zap.Int("flush_size", config.FlushSize),
		zap.Int("min_flush_size", config.MinFlushSize),
		zap.Duration("max_wait_time", config.MaxWaitTime),
	)
	return w
}

func (w *defaultWriter) Start() error {
	if w.closed.Load() {
		return ErrWriterClosed
	}
	w.runner.GoNamed("ch-alert-writer", w.processLoop)
	w.logger.Info("clickhouse alert writer started")
	return nil
}

// Write queues rows. It only fails when the writer is closed or ctx is done.
func (w *defaultWriter) Write(ctx context.Context, rows []AlertRow) error {
	if len(rows) == 0 {
		return nil
	}
	if w.closed.Load() {
		return ErrWriterClosed
	}
	for _, row := range rows {
		select {
		case w.dataChan.In <- row:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (w *defaultWriter) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	w.logger.Info("clickhouse alert writer shutting down")
	close(w.done)
	w.runner.Wait()
	w.cancel()
	w.logger.Info("clickhouse alert writer shutdown complete")
	return nil
}

func (w *defaultWriter) processLoop() {
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	var buffer []AlertRow
	var firstDataTime time.Time

	reset := func() {
		buffer = nil
		firstDataTime = time.Time{}
	}

	for {
		select {
		case row, ok := <-w.dataChan.Out:
			if !ok {
				w.logger.Warn("alert channel closed unexpectedly")
				return
			}
			if len(buffer) == 0 {
				firstDataTime = time.Now()
			}
			buffer = append(buffer, row)
			if len(buffer) >= w.config.FlushSize {
				w.flush(buffer)
				reset()
			}

		case <-ticker.C:
			if len(buffer) > 0 && w.shouldFlush(len(buffer), firstDataTime) {
				w.flush(buffer)
				reset()
			}

		case <-w.done:
			buffer = w.drain(buffer)
			if len(buffer) > 0 {
				w.flush(buffer)
			}
			w.logger.Info("alert writer loop stopped")
			return
		}
	}
}

// shouldFlush applies the MinFlushSize and MaxWaitTime policy to a timed flush
func (w *defaultWriter) shouldFlush(rows int, firstDataTime time.Time) bool {
	if w.config.MinFlushSize == 0 || rows >= w.config.MinFlushSize {
		return true
	}
	return w.config.MaxWaitTime > 0 && time.Since(firstDataTime) >= w.config.MaxWaitTime
}

// drain moves whatever is already queued into buffer
func (w *defaultWriter) drain(buffer []AlertRow) []AlertRow {
	for w.dataChan.Len() > 0 {
		select {
		case row, ok := <-w.dataChan.Out:
			if !ok {
				return buffer
			}
			buffer = append(buffer, row)
		case <-time.After(100 * time.Millisecond):
			return buffer
		}
	}
	return buffer
}

func (w *defaultWriter) flush(rows []AlertRow) {
	if err := w.insert(context.Background(), rows); err != nil {
		w.logger.Error("failed to insert alert history",
			zap.Int("rows", len(rows)),
			zap.Error(err),
		)
		return
	}
	w.logger.Debug("alert history flushed", zap.Int("rows", len(rows)))
}

func batchInsert(ctx context.Context, conn driver.Conn, rows []AlertRow) error {
	batch, err := conn.PrepareBatch(ctx, insertAlertsQuery)
	if err != nil {
		return ErrInsert(AlertTable, err)
	}
	for _, r := range rows {
		if err := batch.Append(
			r.Mess,
			string(r.Kind),
			r.Message,
			r.AlertDate,
			r.Value,
			r.RecordedAt,
		); err != nil {
			return ErrInsert(AlertTable, fmt.Errorf("append %s/%s: %w", r.Mess, r.Kind, err))
		}
	}
	if err := batch.Send(); err != nil {
		return ErrInsert(AlertTable, err)
	}
	return nil
}

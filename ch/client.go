package ch

import (
	"context"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/blackpanther093/manage/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const recentAlertsQuery = "SELECT mess, kind, message, alert_date, value, recorded_at FROM `" + AlertTable +
	"` WHERE mess = ? AND recorded_at >= ? ORDER BY recorded_at DESC, alert_date DESC"

type defaultClient struct {
	config *Config
	logger logger.Logger

	conn driver.Conn

	writer     *defaultWriter
	writerOnce sync.Once

	closed bool
	mu     sync.RWMutex
}

// NewClient connects to ClickHouse and checks the connection
func NewClient(config *Config, log logger.Logger) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	} else {
		config = config.MergeDefaults()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: config.Hosts,
		Auth: clickhouse.Auth{
			Database: config.Database,
			Username: config.Username,
			Password: config.Password,
		},
		DialTimeout: config.DialTimeout,
		Debug:       config.Debug,
		Settings:    config.Settings,
	})
	if err != nil {
		return nil, ErrConnection(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, ErrConnection(err)
	}

	log.Info("clickhouse client initialized",
		zap.Strings("hosts", config.Hosts),
		zap.String("database", config.Database),
	)
	return &defaultClient{config: config, logger: log, conn: conn}, nil
}

// Writer returns the lazily built writer. The caller starts it.
func (c *defaultClient) Writer() (Writer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrWriterClosed
	}
	if c.config.WriterConfig == nil {
		return nil, ErrWriterDisabled
	}

	c.writerOnce.Do(func() {
		c.writer = newWriterWithConn(c.conn, c.config.WriterConfig, c.logger)
	})
	return c.writer, nil
}

func (c *defaultClient) RecentAlerts(ctx context.Context, mess string, since time.Time) ([]AlertRow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrConnectionClosed
	}

	rows, err := c.conn.Query(ctx, recentAlertsQuery, mess, since)
	if err != nil {
		return nil, ErrQuery(AlertTable, err)
	}
	defer rows.Close()

	var out []AlertRow
	for rows.Next() {
		var (
			r    AlertRow
			kind string
			val  decimal.Decimal
		)
		if err := rows.Scan(&r.Mess, &kind, &r.Message, &r.AlertDate, &val, &r.RecordedAt); err != nil {
			return nil, ErrQuery(AlertTable, err)
		}
		r.Kind = AlertKind(kind)
		r.Value = val
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrQuery(AlertTable, err)
	}
	return out, nil
}

func (c *defaultClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if c.writer != nil {
		if err := c.writer.Close(); err != nil {
			c.logger.Error("failed to close writer", zap.Error(err))
		}
	}
	if err := c.conn.Close(); err != nil {
		c.logger.Error("failed to close clickhouse connection", zap.Error(err))
		return err
	}
	c.logger.Info("clickhouse client shutdown complete")
	return nil
}

package db

import (
	"github.com/blackpanther093/manage/logger"
	"gorm.io/driver/mysql"
)

// NewMySQL connects to the MySQL server described by cfg
func NewMySQL(log logger.Logger, cfg *Config) (Database, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialector := mysql.New(mysql.Config{
		DSN:                       cfg.DSN(),
		DefaultStringSize:         255,
		SkipInitializeWithVersion: false,
	})
	return Open(log, dialector, cfg)
}

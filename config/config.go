// Package config loads the process configuration of the mess core from an
// optional YAML file and MESS_ prefixed environment variables.
package config

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/blackpanther093/manage/cache"
	"github.com/blackpanther093/manage/ch"
	"github.com/blackpanther093/manage/cron"
	"github.com/blackpanther093/manage/db"
	"github.com/blackpanther093/manage/digest"
	"github.com/blackpanther093/manage/kafka"
	"github.com/blackpanther093/manage/logger"
	"github.com/blackpanther093/manage/menu"
	"github.com/blackpanther093/manage/scheduler"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MESS_DATABASE_HOST
const EnvPrefix = "MESS"

// HTTPConfig is the configuration of the metrics and health listener
type HTTPConfig struct {
	// Addr is the listen address; empty disables the listener
	// default: ":9090"
	Addr string `mapstructure:"addr"`
	// ShutdownTimeout bounds graceful shutdown
	// default: 10s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Config is the root configuration
type Config struct {
	Logger     logger.Config        `mapstructure:"logger"`
	Database   db.Config            `mapstructure:"database"`
	Cache      cache.Config         `mapstructure:"cache"`
	Cron       cron.Config          `mapstructure:"cron"`
	Menu       menu.Config          `mapstructure:"menu"`
	Scheduler  scheduler.Config     `mapstructure:"scheduler"`
	Digest     digest.Config        `mapstructure:"digest"`
	Kafka      kafka.ProducerConfig `mapstructure:"kafka"`
	ClickHouse ch.Config            `mapstructure:"clickhouse"`
	HTTP       HTTPConfig           `mapstructure:"http"`
}

// Load reads path, when given, then applies environment overrides, fills
// defaults and validates every section
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, reflect.TypeOf(Config{}))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, ErrRead(path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, ErrDecode(err)
	}
	cfg.MergeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeDefaults fills every section's defaults and returns the config
func (c *Config) MergeDefaults() *Config {
	c.Logger.MergeDefaults()
	c.Database.MergeDefaults()
	c.Cache.MergeDefaults()
	c.Cron.MergeDefaults()
	c.Menu.MergeDefaults()
	// alerts and poll results cover the same halls unless told otherwise
	if len(c.Scheduler.Messes) == 0 {
		c.Scheduler.Messes = c.Menu.Messes
	}
	c.Scheduler.MergeDefaults()
	c.Digest.MergeDefaults()
	c.Kafka.MergeDefaults()
	c.ClickHouse.MergeDefaults()
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":9090"
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	return c
}

// Validate validates every section, skipping disabled optional ones
func (c *Config) Validate() error {
	errs := []error{
		c.Logger.Validate(),
		c.Database.Validate(),
		c.Cache.Validate(),
		c.Cron.Validate(),
		c.Menu.Validate(),
		c.Scheduler.Validate(),
		c.Digest.Validate(),
	}
	if c.Kafka.Enabled {
		errs = append(errs, c.Kafka.Validate())
	}
	if c.ClickHouse.Enabled {
		errs = append(errs, c.ClickHouse.Validate())
	}
	if c.HTTP.ShutdownTimeout < 0 {
		errs = append(errs, ErrInvalidField("http.shutdown_timeout", c.HTTP.ShutdownTimeout))
	}
	if err := errors.Join(errs...); err != nil {
		return ErrInvalid(err)
	}
	return nil
}

// bindEnvs registers every mapstructure key of t so AutomaticEnv overrides
// reach Unmarshal even when the file does not mention them
func bindEnvs(v *viper.Viper, t reflect.Type, parts ...string) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		path := append(append([]string(nil), parts...), tag)
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft != reflect.TypeOf(time.Time{}) {
			bindEnvs(v, ft, path...)
			continue
		}
		_ = v.BindEnv(strings.Join(path, "."))
	}
}

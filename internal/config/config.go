// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Archive ArchiveConfig `yaml:"archive" mapstructure:"archive"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Probe   ProbeConfig   `yaml:"probe" mapstructure:"probe"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite | postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ArchiveConfig configures the web archive collaborators and the sampling
// range.
type ArchiveConfig struct {
	CDXBaseURL          string  `yaml:"cdx_base_url" mapstructure:"cdx_base_url"`
	WebBaseURL          string  `yaml:"web_base_url" mapstructure:"web_base_url"`
	AvailabilityBaseURL string  `yaml:"availability_base_url" mapstructure:"availability_base_url"`
	TimeoutSecs         int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec          float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst           int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	StartDate           string  `yaml:"start_date" mapstructure:"start_date"`
	EndDate             string  `yaml:"end_date" mapstructure:"end_date"`
	WeekAnchor          string  `yaml:"week_anchor" mapstructure:"week_anchor"`
}

// ExtractConfig configures the price extractor's heuristic radii. The
// shipped values have no documented derivation; they are configuration so
// they can be calibrated against labeled data.
type ExtractConfig struct {
	WindowRadius         int `yaml:"window_radius" mapstructure:"window_radius"`
	AnnualOverrideRadius int `yaml:"annual_override_radius" mapstructure:"annual_override_radius"`
}

// ProbeConfig configures live publisher-site probing.
type ProbeConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries     int    `yaml:"retries" mapstructure:"retries"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentDomains int `yaml:"max_concurrent_domains" mapstructure:"max_concurrent_domains"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PRICING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "pricing.db")
	v.SetDefault("archive.cdx_base_url", "https://web.archive.org/cdx/search/cdx")
	v.SetDefault("archive.web_base_url", "https://web.archive.org/web")
	v.SetDefault("archive.availability_base_url", "https://archive.org/wayback/available")
	v.SetDefault("archive.timeout_secs", 10)
	v.SetDefault("archive.rate_per_sec", 5)
	v.SetDefault("archive.rate_burst", 5)
	v.SetDefault("archive.start_date", "2021-01-01")
	v.SetDefault("archive.end_date", "2026-02-01")
	v.SetDefault("archive.week_anchor", "Sunday")
	v.SetDefault("extract.window_radius", 140)
	v.SetDefault("extract.annual_override_radius", 120)
	v.SetDefault("probe.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("probe.timeout_secs", 10)
	v.SetDefault("probe.retries", 2)
	v.SetDefault("batch.max_concurrent_domains", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// DateRange parses the configured inclusive sampling range.
func (c ArchiveConfig) DateRange() (time.Time, time.Time, error) {
	from, err := time.ParseInLocation("2006-01-02", c.StartDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, eris.Wrapf(err, "config: parse start_date %q", c.StartDate)
	}
	to, err := time.ParseInLocation("2006-01-02", c.EndDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, eris.Wrapf(err, "config: parse end_date %q", c.EndDate)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, eris.Errorf("config: end_date %s before start_date %s", c.EndDate, c.StartDate)
	}
	return from, to, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// WeekAnchorDay parses the configured week anchor weekday.
func (c ArchiveConfig) WeekAnchorDay() (time.Weekday, error) {
	d, ok := weekdays[strings.ToLower(c.WeekAnchor)]
	if !ok {
		return time.Sunday, eris.Errorf("config: invalid week_anchor %q", c.WeekAnchor)
	}
	return d, nil
}

// Timeout converts the configured archive timeout to a duration.
func (c ArchiveConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Timeout converts the configured probe timeout to a duration.
func (c ProbeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/turtacn/activetext/internal/application/annotation"
	"github.com/turtacn/activetext/internal/intelligence/pattern_registry"
	"github.com/turtacn/activetext/pkg/types/entity"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"

	DefaultMetricsNamespace = "activetext"

	DefaultBatchConcurrency = annotation.DefaultBatchConcurrency
	DefaultMatchTimeout     = pattern_registry.DefaultMatchTimeout
)

// DefaultEnabledTypes lists every built-in category.
func DefaultEnabledTypes() []string {
	return []string{
		string(entity.KindHashtag),
		string(entity.KindMention),
		string(entity.KindEmail),
		string(entity.KindURL),
	}
}

// ApplyDefaults fills every zero-value field in cfg with its default.  Fields
// already set by the caller are left unchanged so that explicit
// configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stderr"}
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// ── Extractor ─────────────────────────────────────────────────────────────
	// An empty type list means every built-in; url_max_length 0 is a valid
	// explicit "no truncation" so it is left alone.
	if len(cfg.Extractor.EnabledTypes) == 0 {
		cfg.Extractor.EnabledTypes = DefaultEnabledTypes()
	}
	if cfg.Extractor.BatchConcurrency == 0 {
		cfg.Extractor.BatchConcurrency = DefaultBatchConcurrency
	}
	if cfg.Extractor.MatchTimeout == 0 {
		cfg.Extractor.MatchTimeout = DefaultMatchTimeout
	}
}

// Default returns a Config holding only defaults.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// registerKeys makes every leaf key known to v so that AutomaticEnv
// overrides reach Unmarshal even when the file omits the key.
func registerKeys(v *viper.Viper) {
	v.SetDefault("log.level", "")
	v.SetDefault("log.format", "")
	v.SetDefault("log.output_paths", []string{})
	v.SetDefault("log.rotation.filename", "")
	v.SetDefault("log.rotation.max_size_mb", 0)
	v.SetDefault("log.rotation.max_backups", 0)
	v.SetDefault("log.rotation.max_age_days", 0)
	v.SetDefault("log.rotation.compress", false)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "")
	v.SetDefault("metrics.enable_go_metrics", false)
	v.SetDefault("extractor.enabled_types", []string{})
	v.SetDefault("extractor.url_max_length", 0)
	v.SetDefault("extractor.custom_patterns", []string{})
	v.SetDefault("extractor.batch_concurrency", 0)
	v.SetDefault("extractor.match_timeout", time.Duration(0))
}

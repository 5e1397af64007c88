// Package config defines the configuration structures for activetext.  No
// I/O or parsing logic lives here, only plain data types, validation and the
// mapping onto engine options.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/activetext/internal/application/annotation"
	"github.com/turtacn/activetext/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/activetext/internal/intelligence/entity_extractor"
	"github.com/turtacn/activetext/internal/intelligence/pattern_registry"
	"github.com/turtacn/activetext/pkg/errors"
	"github.com/turtacn/activetext/pkg/types/entity"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// MetricsConfig controls the in-process Prometheus registry.
type MetricsConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	Namespace       string `mapstructure:"namespace" yaml:"namespace"`
	EnableGoMetrics bool   `mapstructure:"enable_go_metrics" yaml:"enable_go_metrics"`
}

// ExtractorConfig holds the extraction tunables.
type ExtractorConfig struct {
	// EnabledTypes names the built-in categories to run: hashtag, mention,
	// email, url.
	EnabledTypes []string `mapstructure:"enabled_types" yaml:"enabled_types"`
	// URLMaxLength is the URL display limit; 0 disables truncation.
	URLMaxLength int `mapstructure:"url_max_length" yaml:"url_max_length"`
	// MinLengths overrides the per-kind match length thresholds.
	MinLengths map[string]int `mapstructure:"min_lengths" yaml:"min_lengths"`
	// CustomPatterns are extra regular expressions, each its own category.
	CustomPatterns   []string      `mapstructure:"custom_patterns" yaml:"custom_patterns"`
	BatchConcurrency int           `mapstructure:"batch_concurrency" yaml:"batch_concurrency"`
	MatchTimeout     time.Duration `mapstructure:"match_timeout" yaml:"match_timeout"`
}

// Config is the root configuration object.
type Config struct {
	Log       logging.LogConfig `mapstructure:"log" yaml:"log"`
	Metrics   MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	Extractor ExtractorConfig   `mapstructure:"extractor" yaml:"extractor"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config and
// returns the first problem found as an ErrCodeConfigInvalid AppError.
func (c *Config) Validate() error {
	// Log
	switch c.Log.Level {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return invalid("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalid("log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if r := c.Log.Rotation; r.MaxSizeMB < 0 || r.MaxBackups < 0 || r.MaxAgeDays < 0 {
		return invalid("log.rotation limits must be ≥ 0")
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return invalid("metrics.namespace is required when metrics are enabled")
	}

	// Extractor
	x := c.Extractor
	if x.URLMaxLength < 0 {
		return invalid("extractor.url_max_length must be ≥ 0, got %d", x.URLMaxLength)
	}
	if x.BatchConcurrency < 1 {
		return invalid("extractor.batch_concurrency must be ≥ 1, got %d", x.BatchConcurrency)
	}
	if x.MatchTimeout < 0 {
		return invalid("extractor.match_timeout must be ≥ 0, got %s", x.MatchTimeout)
	}
	if _, err := x.Categories(); err != nil {
		return err
	}
	if _, err := x.MinLengthTable(); err != nil {
		return err
	}
	for _, p := range x.CustomPatterns {
		if err := pattern_registry.Validate(p); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigInvalid, "extractor.custom_patterns contains an invalid pattern").WithDetail(p)
		}
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return errors.New(errors.ErrCodeConfigInvalid, "config: "+fmt.Sprintf(format, args...))
}

// ─────────────────────────────────────────────────────────────────────────────
// Engine options
// ─────────────────────────────────────────────────────────────────────────────

// Categories returns the enabled built-in categories followed by one custom
// category per pattern.
func (x ExtractorConfig) Categories() ([]entity.Category, error) {
	out := make([]entity.Category, 0, len(x.EnabledTypes)+len(x.CustomPatterns))
	for _, name := range x.EnabledTypes {
		c, err := entity.ParseCategory(name)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "extractor.enabled_types contains an unknown type").WithDetail(name)
		}
		if c.IsCustom() {
			return nil, invalid("extractor.enabled_types may not hold custom patterns; use extractor.custom_patterns")
		}
		out = append(out, c)
	}
	for _, p := range x.CustomPatterns {
		out = append(out, entity.Custom(p))
	}
	return out, nil
}

// MinLengthTable converts the configured thresholds.
func (x ExtractorConfig) MinLengthTable() (entity_extractor.MinLengths, error) {
	out := make(entity_extractor.MinLengths, len(x.MinLengths))
	for name, v := range x.MinLengths {
		kind := entity.Kind(name)
		switch kind {
		case entity.KindHashtag, entity.KindMention, entity.KindEmail, entity.KindURL, entity.KindCustom:
		default:
			return nil, invalid("extractor.min_lengths has unknown kind %q", name)
		}
		if v < 0 {
			return nil, invalid("extractor.min_lengths.%s must be ≥ 0, got %d", name, v)
		}
		out[kind] = v
	}
	return out, nil
}

// AnnotationOptions maps the extractor section onto annotation options.
// Filters are left to the caller.
func (x ExtractorConfig) AnnotationOptions() (annotation.Options, error) {
	categories, err := x.Categories()
	if err != nil {
		return annotation.Options{}, err
	}
	minLengths, err := x.MinLengthTable()
	if err != nil {
		return annotation.Options{}, err
	}
	return annotation.Options{
		EnabledCategories: categories,
		URLMaxLength:      x.URLMaxLength,
		MinLengths:        minLengths,
		BatchConcurrency:  x.BatchConcurrency,
		MatchTimeout:      x.MatchTimeout,
	}, nil
}

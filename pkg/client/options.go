package client

import (
	"time"

	"go.uber.org/zap"

	"github.com/turtacn/activetext/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/activetext/pkg/types/entity"
)

// Option is a functional option for configuring the Client
type Option func(*Client)

// WithZapLogger routes engine logs to logger
func WithZapLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewLoggerFromCore(logger.Core())
		}
	}
}

// WithCategories replaces the enabled categories.  A call without
// categories is ignored; it never disables extraction.
func WithCategories(categories ...entity.Category) Option {
	return func(c *Client) {
		if len(categories) > 0 {
			c.opts.EnabledCategories = append([]entity.Category(nil), categories...)
		}
	}
}

// WithFilter sets the predicate a cleaned word of category must satisfy
func WithFilter(category entity.Category, filter entity.Filter) Option {
	return func(c *Client) {
		if c.opts.Filters == nil {
			c.opts.Filters = make(map[string]entity.Filter)
		}
		c.opts.Filters[category.Key()] = filter
	}
}

// WithURLMaxLength sets the URL display limit; 0 keeps URLs whole
func WithURLMaxLength(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.opts.URLMaxLength = n
		}
	}
}

// WithMinLength sets the length a raw match of kind must exceed
func WithMinLength(kind entity.Kind, n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.opts.MinLengths[kind] = n
		}
	}
}

// WithBatchConcurrency bounds AnnotateBatch
func WithBatchConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.opts.BatchConcurrency = n
		}
	}
}

// WithMatchTimeout bounds each pattern match attempt
func WithMatchTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.opts.MatchTimeout = d
		}
	}
}

// WithMetrics enables in-process Prometheus metrics under namespace
func WithMetrics(namespace string) Option {
	return func(c *Client) {
		c.metricsNamespace = namespace
	}
}

// WithConfigFile takes the extractor settings from a YAML config file and
// keeps them current while the file changes.  Other options still win over
// the file.
func WithConfigFile(path string) Option {
	return func(c *Client) {
		c.configPath = path
	}
}

// Package client is the embeddable activetext API: configure a Client once
// with functional options, then annotate texts from any goroutine.
package client

import (
	"context"
	"io"
	"sync"

	"github.com/turtacn/activetext/internal/application/annotation"
	"github.com/turtacn/activetext/internal/config"
	"github.com/turtacn/activetext/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/activetext/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/activetext/internal/intelligence/entity_extractor"
	"github.com/turtacn/activetext/internal/intelligence/pattern_registry"
	"github.com/turtacn/activetext/pkg/errors"
	"github.com/turtacn/activetext/pkg/types/entity"
)

const Version = "0.1.0"

// Client annotates text.  It is safe for concurrent use.
type Client struct {
	mu sync.RWMutex

	opts             annotation.Options
	applied          []Option
	logger           logging.Logger
	metricsNamespace string
	configPath       string

	collector prometheus.MetricsCollector
	metrics   annotation.Metrics
	svc       annotation.Service
}

func defaultOptions() annotation.Options {
	return annotation.Options{
		EnabledCategories: []entity.Category{entity.Hashtag, entity.Mention, entity.Email, entity.URL},
		MinLengths:        entity_extractor.MinLengths{},
	}
}

// New creates a Client.  Without WithCategories every built-in category is
// enabled.  Custom patterns are checked here so that a bad pattern fails
// fast instead of matching nothing.
//
// With WithConfigFile the file's extractor section is the base and the other
// options override it; the file is then watched and every valid revision
// replaces the options for later calls.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		opts:    defaultOptions(),
		applied: opts,
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.configPath != "" {
		cfg, err := config.Load(config.WithConfigPath(c.configPath))
		if err != nil {
			return nil, err
		}
		if err := c.rebase(cfg); err != nil {
			return nil, err
		}
	}
	if err := validateCategories(c.opts.EnabledCategories); err != nil {
		return nil, err
	}

	if c.metricsNamespace != "" {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: c.metricsNamespace}, c.logger)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "client: metrics setup failed")
		}
		c.collector = collector
		c.metrics = prometheus.NewExtractionMetrics(collector)
	}

	c.svc = annotation.NewService(c.opts, c.logger, c.metrics)

	if c.configPath != "" {
		if err := config.Watch(c.configPath, c.logger.Named("config"), c.reload); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func validateCategories(categories []entity.Category) error {
	for _, cat := range categories {
		if !cat.IsCustom() {
			continue
		}
		if err := pattern_registry.Validate(cat.Pattern); err != nil {
			return errors.Wrap(err, errors.ErrCodeInvalidInput, "client: invalid custom category").WithDetail(cat.Pattern)
		}
	}
	return nil
}

// rebase replaces the options with the extractor section of cfg and applies
// the explicit options over it.
func (c *Client) rebase(cfg *config.Config) error {
	base, err := cfg.Extractor.AnnotationOptions()
	if err != nil {
		return err
	}
	if base.MinLengths == nil {
		base.MinLengths = entity_extractor.MinLengths{}
	}
	c.opts = base
	for _, opt := range c.applied {
		opt(c)
	}
	return nil
}

// reload swaps in a service built from a new config revision.  A revision
// that does not produce valid options leaves the current service in place.
func (c *Client) reload(cfg *config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.opts
	err := c.rebase(cfg)
	if err == nil {
		err = validateCategories(c.opts.EnabledCategories)
	}
	if err != nil {
		c.opts = prev
		c.logger.Warn("client reload rejected", logging.String("file", c.configPath), logging.Err(err))
		return
	}

	c.svc = annotation.NewService(c.opts, c.logger, c.metrics)
	c.logger.Info("client reloaded",
		logging.String("file", c.configPath),
		logging.Int("categories", len(c.opts.EnabledCategories)),
		logging.Int("url_max_length", c.opts.URLMaxLength))
}

func (c *Client) service() annotation.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.svc
}

// Annotate extracts every enabled category from text.
func (c *Client) Annotate(ctx context.Context, text string) (*entity.Result, error) {
	return c.service().Annotate(ctx, text)
}

// AnnotateBatch annotates texts concurrently, keeping their order.
func (c *Client) AnnotateBatch(ctx context.Context, texts []string) ([]*entity.Result, error) {
	return c.service().AnnotateBatch(ctx, texts)
}

// Categories returns the enabled categories in precedence order.
func (c *Client) Categories() []entity.Category {
	return c.service().Categories()
}

// WriteMetrics writes the Prometheus text exposition of the client's
// metrics.  It fails unless WithMetrics was given.
func (c *Client) WriteMetrics(w io.Writer) error {
	if c.collector == nil {
		return errors.NewValidationError("client: metrics are not enabled")
	}
	return c.collector.WriteText(w)
}

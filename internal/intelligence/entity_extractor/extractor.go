// Package entity_extractor turns pattern matches into typed, positioned
// entities.  It applies the per-category post-filters (minimum length,
// marker stripping, caller predicates) and owns the URL truncation path that
// rewrites the text while keeping every returned range valid against it.
//
// Extraction is best-effort decoration: a match that cannot be converted or
// cleaned is skipped and the call carries on.  No method returns an error.
package entity_extractor

import (
	"strings"
	"unicode/utf8"

	"github.com/turtacn/activetext/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/activetext/internal/intelligence/pattern_registry"
	"github.com/turtacn/activetext/pkg/errors"
	"github.com/turtacn/activetext/pkg/types/entity"
)

// MinLengths holds, per kind, the raw match length (in runes) that a match
// must strictly exceed to be kept.
type MinLengths map[entity.Kind]int

// DefaultMinLengths returns the thresholds used when none are configured.
// Hashtag, mention and email need more than the bare marker; URL-like hits
// of two runes or fewer are noise; custom patterns keep any non-empty hit.
func DefaultMinLengths() MinLengths {
	return MinLengths{
		entity.KindHashtag: 1,
		entity.KindMention: 1,
		entity.KindEmail:   1,
		entity.KindURL:     2,
		entity.KindCustom:  0,
	}
}

// For returns the threshold for kind, falling back to the default table.
func (m MinLengths) For(kind entity.Kind) int {
	if v, ok := m[kind]; ok {
		return v
	}
	return DefaultMinLengths()[kind]
}

// Metrics receives extraction telemetry.
type Metrics interface {
	RecordEntities(category string, count int)
	RecordTruncations(count int)
	RecordSkipped(reason string)
}

type noopMetrics struct{}

func (noopMetrics) RecordEntities(string, int) {}
func (noopMetrics) RecordTruncations(int)      {}
func (noopMetrics) RecordSkipped(string)       {}

// Extractor runs category patterns and builds entities.
type Extractor struct {
	registry   *pattern_registry.Registry
	minLengths MinLengths
	logger     logging.Logger
	metrics    Metrics
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMinLengths overrides thresholds for the kinds present in m.
func WithMinLengths(m MinLengths) Option {
	return func(e *Extractor) {
		for k, v := range m {
			e.minLengths[k] = v
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the telemetry sink.
func WithMetrics(m Metrics) Option {
	return func(e *Extractor) {
		if m != nil {
			e.metrics = m
		}
	}
}

// New builds an Extractor around registry.  A nil registry gets a private
// one.
func New(registry *pattern_registry.Registry, opts ...Option) *Extractor {
	if registry == nil {
		registry = pattern_registry.New()
	}
	e := &Extractor{
		registry:   registry,
		minLengths: DefaultMinLengths(),
		logger:     logging.NewNopLogger(),
		metrics:    noopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the pattern registry the extractor matches with.
func (e *Extractor) Registry() *pattern_registry.Registry { return e.registry }

// Extract finds the entities of category c inside searchRange of text.
//
// Each entity keeps the full range of its pattern match so that highlighting
// covers the marker, while its payload carries the cleaned word.  Entities
// come back in ascending position order.
func (e *Extractor) Extract(c entity.Category, text string, searchRange entity.Range, filter entity.Filter) []entity.Entity {
	matches := e.registry.MatchCategory(c, text, searchRange)
	if len(matches) == 0 {
		return nil
	}

	minLen := e.minLengths.For(c.Kind)
	out := make([]entity.Entity, 0, len(matches))
	for _, m := range matches {
		if m.Range.Len() <= minLen {
			continue
		}
		raw, ok := m.Range.Slice(text)
		if !ok {
			e.skip(errors.ErrCodeRangeConversion, c, m.Range)
			continue
		}

		word := cleanWord(c.Kind, raw)
		if !filter.Accept(word) {
			continue
		}

		payload := entity.Payload{Word: word}
		if c.Kind == entity.KindURL {
			payload = entity.Payload{Original: word, Trimmed: word}
		}
		out = append(out, entity.Entity{Category: c, Range: m.Range, Payload: payload})
	}

	e.metrics.RecordEntities(c.Key(), len(out))
	return out
}

// cleanWord strips the marker from hashtags and mentions and trims
// surrounding whitespace for every kind.
func cleanWord(kind entity.Kind, raw string) string {
	switch kind {
	case entity.KindHashtag, entity.KindMention:
		_, size := utf8.DecodeRuneInString(raw)
		word := raw[size:]
		if strings.HasPrefix(word, "@") || strings.HasPrefix(word, "#") {
			word = word[1:]
		}
		return strings.TrimSpace(word)
	default:
		return strings.TrimSpace(raw)
	}
}

// skip drops one match.  Expected per-match failures are logged at Debug;
// anything else points at a bug and is logged at Warn.
func (e *Extractor) skip(code errors.ErrorCode, c entity.Category, r entity.Range) {
	e.metrics.RecordSkipped(code.String())
	log := e.logger.Warn
	if errors.IsRecoverable(code) {
		log = e.logger.Debug
	}
	log("match skipped",
		logging.String("code", code.String()),
		logging.String("category", c.Key()),
		logging.Int("start", r.Start),
		logging.Int("end", r.End))
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

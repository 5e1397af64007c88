// Package annotation runs every enabled entity category over a text and
// returns one merged, ordered list of entities together with the final text.
package annotation

import (
	"context"
	"sort"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/activetext/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/activetext/internal/intelligence/entity_extractor"
	"github.com/turtacn/activetext/internal/intelligence/pattern_registry"
	"github.com/turtacn/activetext/pkg/errors"
	"github.com/turtacn/activetext/pkg/types/entity"
)

// DefaultBatchConcurrency bounds AnnotateBatch when no limit is configured.
const DefaultBatchConcurrency = 4

// SkipOverlap is the skipped-match reason for entities shadowed by a
// higher-precedence category.
const SkipOverlap = "overlap"

// Service defines the annotation operations.
type Service interface {
	Annotate(ctx context.Context, text string) (*entity.Result, error)
	AnnotateBatch(ctx context.Context, texts []string) ([]*entity.Result, error)
	Categories() []entity.Category
}

// Options selects what an annotation pass extracts.
type Options struct {
	// EnabledCategories lists the categories to run.  Duplicates are ignored.
	EnabledCategories []entity.Category
	// Filters holds an optional predicate per Category.Key().  For URLs the
	// predicate sees the original URL and only prunes the entity list.
	Filters map[string]entity.Filter
	// URLMaxLength is the display limit for URLs; <= 0 keeps them whole.
	URLMaxLength int
	// MinLengths overrides the per-kind match length thresholds.
	MinLengths entity_extractor.MinLengths
	// BatchConcurrency bounds AnnotateBatch.
	BatchConcurrency int
	// MatchTimeout bounds each pattern match attempt.
	MatchTimeout time.Duration
}

// Metrics is the telemetry the service and the engine below it report.
type Metrics interface {
	pattern_registry.Metrics
	entity_extractor.Metrics
	RecordAnnotate(duration time.Duration, textLength int, err error)
	// BatchStarted is called once per non-empty batch; the returned func
	// runs when the batch ends.
	BatchStarted() func()
	WorkerStarted()
	WorkerDone()
}

type noopMetrics struct{}

func (noopMetrics) RecordPatternCache(bool)                   {}
func (noopMetrics) RecordEntities(string, int)                {}
func (noopMetrics) RecordTruncations(int)                     {}
func (noopMetrics) RecordSkipped(string)                      {}
func (noopMetrics) RecordAnnotate(time.Duration, int, error) {}
func (noopMetrics) BatchStarted() func()                      { return func() {} }
func (noopMetrics) WorkerStarted()                            {}
func (noopMetrics) WorkerDone()                               {}

type annotationService struct {
	extractor   *entity_extractor.Extractor
	categories  []entity.Category
	filters     map[string]entity.Filter
	urlMax      int
	concurrency int
	logger      logging.Logger
	metrics     Metrics
}

// NewService builds a Service with its own pattern registry.  A nil logger
// or metrics sink falls back to a no-op.
func NewService(opts Options, logger logging.Logger, metrics Metrics) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	timeout := opts.MatchTimeout
	if timeout == 0 {
		timeout = pattern_registry.DefaultMatchTimeout
	}
	registry := pattern_registry.New(
		pattern_registry.WithLogger(logger.Named("patterns")),
		pattern_registry.WithMetrics(metrics),
		pattern_registry.WithMatchTimeout(timeout),
	)
	extractor := entity_extractor.New(registry,
		entity_extractor.WithMinLengths(opts.MinLengths),
		entity_extractor.WithLogger(logger.Named("extractor")),
		entity_extractor.WithMetrics(metrics),
	)

	concurrency := opts.BatchConcurrency
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}

	return &annotationService{
		extractor:   extractor,
		categories:  orderByPrecedence(opts.EnabledCategories),
		filters:     opts.Filters,
		urlMax:      opts.URLMaxLength,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

// Categories returns the enabled categories in precedence order.
func (s *annotationService) Categories() []entity.Category {
	out := make([]entity.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// Annotate runs the URL pass first, then every other enabled category over
// the rewritten text.  An entity overlapping one already accepted from a
// higher-precedence category is dropped.  The only error is cancellation.
func (s *annotationService) Annotate(ctx context.Context, text string) (result *entity.Result, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordAnnotate(time.Since(start), utf8.RuneCountInString(text), err)
	}()

	current := text
	var accepted []entity.Entity

	for _, c := range s.categories {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCanceled, "annotation canceled")
		}

		if c.Kind == entity.KindURL {
			urls, rewritten := s.extractor.ExtractURLs(current, wholeRange(current), s.urlMax)
			current = rewritten
			filter := s.filters[c.Key()]
			for _, u := range urls {
				if filter.Accept(u.Payload.Original) {
					accepted = append(accepted, u)
				}
			}
			continue
		}

		found := s.extractor.Extract(c, current, wholeRange(current), s.filters[c.Key()])
		for _, e := range found {
			if overlapsAny(e.Range, accepted) {
				s.metrics.RecordSkipped(SkipOverlap)
				s.logger.Debug("entity shadowed",
					logging.String("category", c.Key()),
					logging.Int("start", e.Range.Start),
					logging.Int("end", e.Range.End))
				continue
			}
			accepted = append(accepted, e)
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Range.Start < accepted[j].Range.Start
	})
	return &entity.Result{Text: current, Entities: accepted}, nil
}

// AnnotateBatch annotates texts concurrently.  Results keep the input order.
func (s *annotationService) AnnotateBatch(ctx context.Context, texts []string) ([]*entity.Result, error) {
	results := make([]*entity.Result, len(texts))
	if len(texts) == 0 {
		return results, nil
	}

	defer s.metrics.BatchStarted()()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			s.metrics.WorkerStarted()
			defer s.metrics.WorkerDone()

			res, err := s.Annotate(gCtx, text)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("batch annotation stopped", logging.Int("texts", len(texts)), logging.Err(err))
		return nil, err
	}
	return results, nil
}

// EntitiesOf returns the entities of category c held by result.
func EntitiesOf(result *entity.Result, c entity.Category) []entity.Entity {
	return result.Of(c)
}

// precedence ranks kinds; lower runs first and wins overlaps.
var precedence = map[entity.Kind]int{
	entity.KindURL:     0,
	entity.KindEmail:   1,
	entity.KindMention: 2,
	entity.KindHashtag: 3,
	entity.KindCustom:  4,
}

func orderByPrecedence(categories []entity.Category) []entity.Category {
	seen := make(map[string]struct{}, len(categories))
	out := make([]entity.Category, 0, len(categories))
	for _, c := range categories {
		if _, dup := seen[c.Key()]; dup {
			continue
		}
		seen[c.Key()] = struct{}{}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return precedence[out[i].Kind] < precedence[out[j].Kind]
	})
	return out
}

func overlapsAny(r entity.Range, accepted []entity.Entity) bool {
	for _, a := range accepted {
		if r.Overlaps(a.Range) {
			return true
		}
	}
	return false
}

func wholeRange(text string) entity.Range {
	return entity.Range{Start: 0, End: utf8.RuneCountInString(text)}
}

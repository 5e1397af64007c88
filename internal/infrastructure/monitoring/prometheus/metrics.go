package prometheus

import (
	"strings"
	"time"
)

// ExtractionMetrics holds the extraction engine metrics.
type ExtractionMetrics struct {
	// Pattern registry
	PatternCacheHitsTotal   CounterVec
	PatternCacheMissesTotal CounterVec

	// Extraction
	EntitiesExtractedTotal CounterVec
	URLTruncationsTotal    CounterVec
	MatchesSkippedTotal    CounterVec

	// Annotation
	AnnotateRequestsTotal CounterVec
	AnnotateDuration      HistogramVec
	AnnotateTextLength    HistogramVec
	BatchDuration         HistogramVec
	BatchActiveWorkers    GaugeVec
}

// Default Buckets
var (
	DefaultAnnotateDurationBuckets = []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, 1}
	DefaultTextLengthBuckets       = []float64{16, 64, 256, 1024, 4096, 16384, 65536}
)

// NewExtractionMetrics registers all metrics and returns ExtractionMetrics.
func NewExtractionMetrics(collector MetricsCollector) *ExtractionMetrics {
	m := &ExtractionMetrics{}

	m.PatternCacheHitsTotal = collector.RegisterCounter("pattern_cache_hits_total", "Compiled pattern cache hits")
	m.PatternCacheMissesTotal = collector.RegisterCounter("pattern_cache_misses_total", "Compiled pattern cache misses")

	m.EntitiesExtractedTotal = collector.RegisterCounter("entities_extracted_total", "Entities extracted", "category")
	m.URLTruncationsTotal = collector.RegisterCounter("url_truncations_total", "URLs shortened for display")
	m.MatchesSkippedTotal = collector.RegisterCounter("matches_skipped_total", "Matches dropped during extraction", "reason")

	m.AnnotateRequestsTotal = collector.RegisterCounter("annotate_requests_total", "Annotation calls", "status")
	m.AnnotateDuration = collector.RegisterHistogram("annotate_duration_seconds", "Annotation duration", DefaultAnnotateDurationBuckets)
	m.AnnotateTextLength = collector.RegisterHistogram("annotate_text_length_runes", "Annotated text length", DefaultTextLengthBuckets)
	m.BatchDuration = collector.RegisterHistogram("annotate_batch_duration_seconds", "Batch annotation duration", DefaultAnnotateDurationBuckets)
	m.BatchActiveWorkers = collector.RegisterGauge("batch_active_workers", "Batch annotation workers in flight")

	return m
}

// RecordPatternCache counts a compiled pattern lookup.
func (m *ExtractionMetrics) RecordPatternCache(hit bool) {
	if hit {
		m.PatternCacheHitsTotal.WithLabelValues().Inc()
	} else {
		m.PatternCacheMissesTotal.WithLabelValues().Inc()
	}
}

// RecordEntities counts entities of one category.  Custom categories share
// one label value.
func (m *ExtractionMetrics) RecordEntities(category string, count int) {
	m.EntitiesExtractedTotal.WithLabelValues(categoryLabel(category)).Add(float64(count))
}

func (m *ExtractionMetrics) RecordTruncations(count int) {
	m.URLTruncationsTotal.WithLabelValues().Add(float64(count))
}

func (m *ExtractionMetrics) RecordSkipped(reason string) {
	m.MatchesSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordAnnotate records one annotation call.
func (m *ExtractionMetrics) RecordAnnotate(duration time.Duration, textLength int, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.AnnotateRequestsTotal.WithLabelValues(status).Inc()
	m.AnnotateDuration.WithLabelValues().Observe(duration.Seconds())
	m.AnnotateTextLength.WithLabelValues().Observe(float64(textLength))
}

// BatchStarted starts timing one batch; the returned func stops the timer.
func (m *ExtractionMetrics) BatchStarted() func() {
	timer := NewTimer(m.BatchDuration.WithLabelValues())
	return func() { timer.ObserveDuration() }
}

// WorkerStarted and WorkerDone track batch concurrency.
func (m *ExtractionMetrics) WorkerStarted() { m.BatchActiveWorkers.WithLabelValues().Inc() }

func (m *ExtractionMetrics) WorkerDone() { m.BatchActiveWorkers.WithLabelValues().Dec() }

func categoryLabel(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// Package pattern_registry owns the regular expressions behind every entity
// category and a compile-once cache keyed by pattern source.
//
// Matching runs on runes, so every Match range is a rune offset pair into the
// searched text.  Patterns are compiled case-insensitively.  A malformed
// pattern never surfaces to callers: it matches nothing and is logged once.
package pattern_registry

import (
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"golang.org/x/net/publicsuffix"

	"github.com/turtacn/activetext/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/activetext/pkg/errors"
	"github.com/turtacn/activetext/pkg/types/entity"
)

// DefaultMatchTimeout bounds a single match attempt of a backtracking
// pattern.
const DefaultMatchTimeout = 250 * time.Millisecond

// Pattern is a compiled matcher and the source it was built from.
type Pattern struct {
	Source string
	re     *regexp2.Regexp
}

// Match is a located substring in rune coordinates of the searched text.
type Match struct {
	Range entity.Range
	Text  string
}

// Link is a URL-like span found by DetectLinks.
type Link struct {
	Range  entity.Range
	Text   string
	Scheme string
}

// Metrics receives cache telemetry.
type Metrics interface {
	RecordPatternCache(hit bool)
}

type noopMetrics struct{}

func (noopMetrics) RecordPatternCache(bool) {}

// Registry is the compiled-pattern cache.  It is safe for concurrent use;
// concurrent first use of one source compiles it once.
type Registry struct {
	mu      sync.RWMutex
	cache   map[string]*Pattern
	failed  map[string]error
	timeout time.Duration
	logger  logging.Logger
	metrics Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report rejected patterns.
func WithLogger(l logging.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the cache telemetry sink.
func WithMetrics(m Metrics) Option {
	return func(r *Registry) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithMatchTimeout bounds each match attempt; zero or negative disables the
// bound.
func WithMatchTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.timeout = d
	}
}

// New builds an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		cache:   make(map[string]*Pattern),
		failed:  make(map[string]error),
		timeout: DefaultMatchTimeout,
		logger:  logging.NewNopLogger(),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Validate reports whether source compiles, without caching it.
func Validate(source string) error {
	if _, err := regexp2.Compile(source, regexp2.IgnoreCase); err != nil {
		return errors.Wrap(err, errors.ErrCodePatternInvalid, "pattern does not compile").WithDetail(source)
	}
	return nil
}

// Compile returns the cached Pattern for source, compiling it on first use.
// A source that failed once keeps failing without recompiling.
func (r *Registry) Compile(source string) (*Pattern, error) {
	r.mu.RLock()
	p, ok := r.cache[source]
	failErr := r.failed[source]
	r.mu.RUnlock()
	if ok {
		r.metrics.RecordPatternCache(true)
		return p, nil
	}
	if failErr != nil {
		r.metrics.RecordPatternCache(true)
		return nil, failErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.cache[source]; ok {
		r.metrics.RecordPatternCache(true)
		return p, nil
	}
	if failErr := r.failed[source]; failErr != nil {
		r.metrics.RecordPatternCache(true)
		return nil, failErr
	}
	r.metrics.RecordPatternCache(false)

	re, err := regexp2.Compile(source, regexp2.IgnoreCase)
	if err != nil {
		appErr := errors.Wrap(err, errors.ErrCodePatternInvalid, "pattern does not compile").WithDetail(source)
		r.failed[source] = appErr
		r.logger.Warn("pattern rejected", logging.String("source", source), logging.Err(err))
		return nil, appErr
	}
	if r.timeout > 0 {
		re.MatchTimeout = r.timeout
	}
	p = &Pattern{Source: source, re: re}
	r.cache[source] = p
	return p, nil
}

// Len returns the number of compiled patterns held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// Match runs source over text restricted to searchRange.  The range bounds
// behave like the edges of the text: anchors match there and lookarounds do
// not see past them.  Out-of-bounds ranges are clamped.  Any failure yields
// the matches collected so far.
func (r *Registry) Match(source, text string, searchRange entity.Range) []Match {
	p, err := r.Compile(source)
	if err != nil {
		return nil
	}
	return r.matchRunes(p, []rune(text), searchRange)
}

// MatchCategory runs the pattern for category c over text.
func (r *Registry) MatchCategory(c entity.Category, text string, searchRange entity.Range) []Match {
	source := SourceFor(c)
	if source == "" {
		r.logger.Debug("category has no pattern", logging.String("category", c.Key()))
		return nil
	}
	return r.Match(source, text, searchRange)
}

func (r *Registry) matchRunes(p *Pattern, runes []rune, searchRange entity.Range) []Match {
	lo, hi := clamp(searchRange, len(runes))
	window := runes[lo:hi]

	var out []Match
	m, err := p.re.FindRunesMatch(window)
	for m != nil {
		// Zero-length hits carry no text to decorate.
		if m.Length > 0 {
			out = append(out, Match{
				Range: entity.Range{Start: lo + m.Index, End: lo + m.Index + m.Length},
				Text:  m.String(),
			})
		}
		m, err = p.re.FindNextMatch(m)
	}
	if err != nil {
		r.logger.Warn("pattern match aborted",
			logging.String("source", p.Source),
			logging.Int("matches", len(out)),
			logging.Err(errors.Wrap(err, errors.ErrCodeDetectorFailed, "match aborted")))
	}
	return out
}

// DetectLinks finds URL-like spans anywhere in text.  Trailing sentence
// punctuation is excluded from each span; emails are reported with scheme
// "mailto" and scheme-less hosts with "http".
func (r *Registry) DetectLinks(text string) []Link {
	p, err := r.Compile(linkDetectorPattern)
	if err != nil {
		r.logger.Error("link detector unavailable", logging.Err(errors.Wrap(err, errors.ErrCodeDetectorFailed, "compile link detector")))
		return nil
	}

	runes := []rune(text)
	var out []Link
	m, err := p.re.FindRunesMatch(runes)
	for m != nil {
		scheme := "http"
		if g := m.GroupByName("mailto"); g != nil && len(g.Captures) > 0 {
			scheme = "mailto"
		} else if g := m.GroupByName("scheme"); g != nil && len(g.Captures) > 0 {
			scheme = strings.ToLower(g.String())
		} else if g := m.GroupByName("bare"); g != nil && len(g.Captures) > 0 && !isPublicHost(g.String()) {
			r.logger.Debug("bare host rejected", logging.String("host", g.String()))
			m, err = p.re.FindNextMatch(m)
			continue
		}

		span := trimLinkTail(runes[m.Index : m.Index+m.Length])
		if len(span) > 0 {
			out = append(out, Link{
				Range:  entity.Range{Start: m.Index, End: m.Index + len(span)},
				Text:   string(span),
				Scheme: scheme,
			})
		}
		m, err = p.re.FindNextMatch(m)
	}
	if err != nil {
		r.logger.Warn("link detection aborted", logging.Int("links", len(out)), logging.Err(err))
	}
	return out
}

// isPublicHost reports whether a scheme-less host ends in an ICANN public
// suffix and has a registrable label in front of it.  A Title-cased suffix
// ("there.How") reads as two sentences missing a space and is refused.
func isPublicHost(host string) bool {
	tld := host[strings.LastIndexByte(host, '.')+1:]
	if first, size := utf8.DecodeRuneInString(tld); unicode.IsUpper(first) && strings.ToUpper(tld[size:]) != tld[size:] {
		return false
	}
	lower := strings.ToLower(host)
	suffix, icann := publicsuffix.PublicSuffix(lower)
	return icann && suffix != lower
}

// trimLinkTail drops trailing punctuation that usually ends the sentence
// around a link.  A closing parenthesis stays when the link opened one.
func trimLinkTail(span []rune) []rune {
	for len(span) > 0 {
		last := span[len(span)-1]
		switch last {
		case '.', ',', '!', '?', ':', ';', '\'', '"', ']':
			span = span[:len(span)-1]
			continue
		case ')':
			open, closed := 0, 0
			for _, c := range span {
				switch c {
				case '(':
					open++
				case ')':
					closed++
				}
			}
			if closed > open {
				span = span[:len(span)-1]
				continue
			}
		}
		break
	}
	return span
}

func clamp(rng entity.Range, n int) (int, int) {
	lo, hi := rng.Start, rng.End
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

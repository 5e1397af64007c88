package entity_extractor

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"

	"github.com/turtacn/activetext/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/activetext/pkg/errors"
	"github.com/turtacn/activetext/pkg/types/entity"
)

// Ellipsis marks a truncated URL.
const Ellipsis = "..."

// URLRewrite is the outcome of a URL pass.
type URLRewrite struct {
	// Entities are the URL entities in ascending order, ranged in Text.
	Entities []entity.Entity
	// Text is the input with over-long URLs replaced by their display form.
	Text string
	// Offsets maps positions of the input onto Text.
	Offsets *OffsetTable
}

// ExtractURLs detects URL-like spans inside searchRange, truncates those
// longer than maxDisplayLength characters and returns the URL entities with
// the rewritten text.  maxDisplayLength <= 0 disables truncation.
func (e *Extractor) ExtractURLs(text string, searchRange entity.Range, maxDisplayLength int) ([]entity.Entity, string) {
	rw := e.RewriteURLs(text, searchRange, maxDisplayLength)
	return rw.Entities, rw.Text
}

// RewriteURLs is ExtractURLs with the offset table exposed, for callers that
// hold ranges in the input's coordinates.
func (e *Extractor) RewriteURLs(text string, searchRange entity.Range, maxDisplayLength int) *URLRewrite {
	empty, _ := NewOffsetTable(nil)
	unchanged := &URLRewrite{Text: text, Offsets: empty}

	links := e.registry.DetectLinks(text)
	if len(links) == 0 {
		return unchanged
	}

	minLen := e.minLengths.For(entity.KindURL)
	type decision struct {
		edit     Edit
		original string
	}

	// Walk back to front so each decision only looks at text that no
	// earlier-positioned decision has touched.
	decisions := make([]decision, 0, len(links))
	for i := len(links) - 1; i >= 0; i-- {
		link := links[i]
		if link.Range.Len() <= minLen || link.Scheme == "mailto" {
			continue
		}
		if link.Range.Start < searchRange.Start || link.Range.End > searchRange.End {
			continue
		}
		raw, ok := link.Range.Slice(text)
		if !ok {
			e.skip(errors.ErrCodeRangeConversion, entity.URL, link.Range)
			continue
		}
		rng, word := trimRange(link.Range, raw)
		if word == "" {
			continue
		}
		decisions = append(decisions, decision{
			edit:     Edit{Range: rng, Replacement: Truncate(word, maxDisplayLength)},
			original: word,
		})
	}
	if len(decisions) == 0 {
		e.metrics.RecordEntities(entity.URL.Key(), 0)
		return unchanged
	}

	// Back to ascending order.
	for i, j := 0, len(decisions)-1; i < j; i, j = i+1, j-1 {
		decisions[i], decisions[j] = decisions[j], decisions[i]
	}

	edits := make([]Edit, len(decisions))
	for i, d := range decisions {
		edits[i] = d.edit
	}
	table, err := NewOffsetTable(edits)
	if err != nil {
		e.logger.Warn("url rewrite abandoned", logging.Err(err))
		e.metrics.RecordSkipped(errors.GetCode(err).String())
		return unchanged
	}
	final, err := table.Apply([]rune(text))
	if err != nil {
		e.logger.Warn("url rewrite abandoned", logging.Err(err))
		e.metrics.RecordSkipped(errors.GetCode(err).String())
		return unchanged
	}

	entities := make([]entity.Entity, 0, len(decisions))
	truncated := 0
	for _, d := range decisions {
		start := table.Map(d.edit.Range.Start)
		entities = append(entities, entity.Entity{
			Category: entity.URL,
			Range:    entity.Range{Start: start, End: start + runeLen(d.edit.Replacement)},
			Payload:  entity.Payload{Original: d.original, Trimmed: d.edit.Replacement},
		})
		if d.edit.Replacement != d.original {
			truncated++
		}
	}

	e.metrics.RecordEntities(entity.URL.Key(), len(entities))
	e.metrics.RecordTruncations(truncated)
	return &URLRewrite{Entities: entities, Text: final, Offsets: table}
}

// Truncate keeps the first max user-perceived characters of word and appends
// Ellipsis when word is longer than that.  max <= 0 leaves word unchanged.
func Truncate(word string, max int) string {
	if max <= 0 || uniseg.GraphemeClusterCount(word) <= max {
		return word
	}
	var b strings.Builder
	g := uniseg.NewGraphemes(word)
	for n := 0; n < max && g.Next(); n++ {
		b.WriteString(g.Str())
	}
	b.WriteString(Ellipsis)
	return b.String()
}

// trimRange narrows rng by the whitespace trimmed off raw.
func trimRange(rng entity.Range, raw string) (entity.Range, string) {
	left := strings.TrimLeftFunc(raw, unicode.IsSpace)
	word := strings.TrimRightFunc(left, unicode.IsSpace)
	start := rng.Start + runeLen(raw) - runeLen(left)
	return entity.Range{Start: start, End: start + runeLen(word)}, word
}

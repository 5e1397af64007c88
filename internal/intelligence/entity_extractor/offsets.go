package entity_extractor

import (
	"sort"

	"github.com/turtacn/activetext/pkg/errors"
	"github.com/turtacn/activetext/pkg/types/entity"
)

// Edit replaces the runes of Range (original coordinates) with Replacement.
type Edit struct {
	Range       entity.Range
	Replacement string
}

// OffsetTable translates positions in an original text into positions in the
// text produced by applying a set of non-overlapping edits.
type OffsetTable struct {
	edits []Edit
	lens  []int // rune length of each replacement
	cum   []int // cum[i] is the total shift contributed by edits[:i]
}

// NewOffsetTable sorts edits by start and indexes them.  Overlapping edits
// are rejected with ErrCodeRangeConversion.
func NewOffsetTable(edits []Edit) (*OffsetTable, error) {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Range.Start < sorted[j].Range.Start })

	t := &OffsetTable{
		edits: sorted,
		lens:  make([]int, len(sorted)),
		cum:   make([]int, len(sorted)+1),
	}
	for i, e := range sorted {
		if e.Range.Start < 0 || e.Range.End < e.Range.Start {
			return nil, errors.New(errors.ErrCodeRangeConversion, "edit range is inverted or negative")
		}
		if i > 0 && sorted[i-1].Range.End > e.Range.Start {
			return nil, errors.New(errors.ErrCodeRangeConversion, "edits overlap")
		}
		t.lens[i] = runeLen(e.Replacement)
		t.cum[i+1] = t.cum[i] + t.lens[i] - e.Range.Len()
	}
	return t, nil
}

// Len returns the number of edits.
func (t *OffsetTable) Len() int { return len(t.edits) }

// Delta is the total change in length between original and final text.
func (t *OffsetTable) Delta() int { return t.cum[len(t.edits)] }

// Edits returns the edits in ascending order.
func (t *OffsetTable) Edits() []Edit {
	out := make([]Edit, len(t.edits))
	copy(out, t.edits)
	return out
}

// Map translates an original position into the final text.  Positions that
// fall strictly inside an edited span are clamped into its replacement.
func (t *OffsetTable) Map(pos int) int {
	// k is the number of edits that end at or before pos.
	k := sort.Search(len(t.edits), func(i int) bool { return t.edits[i].Range.End > pos })
	if k < len(t.edits) && t.edits[k].Range.Start < pos {
		e := t.edits[k]
		inner := pos - e.Range.Start
		if inner > t.lens[k] {
			inner = t.lens[k]
		}
		return e.Range.Start + t.cum[k] + inner
	}
	return pos + t.cum[k]
}

// Remap moves a range found in original coordinates into final coordinates.
// A range equal to an edited span maps to its replacement and a range that
// contains whole edits stretches or shrinks with them.  A range with an
// endpoint strictly inside an edited span has no faithful image and reports
// false.
func (t *OffsetTable) Remap(r entity.Range) (entity.Range, bool) {
	if r.Start < 0 || r.End < r.Start {
		return entity.Range{}, false
	}
	for i, e := range t.edits {
		if e.Range == r {
			start := t.Map(r.Start)
			return entity.Range{Start: start, End: start + t.lens[i]}, true
		}
		if strictlyInside(r.Start, e.Range) || strictlyInside(r.End, e.Range) {
			return entity.Range{}, false
		}
	}
	return entity.Range{Start: t.Map(r.Start), End: t.Map(r.End)}, true
}

func strictlyInside(pos int, r entity.Range) bool {
	return r.Start < pos && pos < r.End
}

// Apply builds the final text from the original runes.
func (t *OffsetTable) Apply(runes []rune) (string, error) {
	for _, e := range t.edits {
		if e.Range.End > len(runes) {
			return "", errors.New(errors.ErrCodeRangeConversion, "edit exceeds text").
				WithDetail(e.Replacement)
		}
	}

	out := make([]rune, 0, len(runes)+t.Delta())
	prev := 0
	for _, e := range t.edits {
		out = append(out, runes[prev:e.Range.Start]...)
		out = append(out, []rune(e.Replacement)...)
		prev = e.Range.End
	}
	out = append(out, runes[prev:]...)
	return string(out), nil
}

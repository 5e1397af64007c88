// Package entity defines the located, typed text spans produced by the
// extraction engine and consumed by rendering layers.
//
// All offsets are rune (Unicode scalar) offsets into the text that travels
// with them.  Range.UTF16 converts to UTF-16 code units for consumers that
// index strings that way.
package entity

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind is the closed set of entity classifications.
type Kind string

const (
	KindHashtag Kind = "hashtag"
	KindMention Kind = "mention"
	KindEmail   Kind = "email"
	KindURL     Kind = "url"
	KindCustom  Kind = "custom"
)

// customPrefix separates the kind from the pattern in a custom category key.
const customPrefix = "custom:"

// Category selects the pattern and post-filter rules for an extraction pass.
// Built-in categories carry an empty Pattern; Custom carries its source.
type Category struct {
	Kind    Kind
	Pattern string
}

// Built-in categories.
var (
	Hashtag = Category{Kind: KindHashtag}
	Mention = Category{Kind: KindMention}
	Email   = Category{Kind: KindEmail}
	URL     = Category{Kind: KindURL}
)

// Custom returns a category matching pattern.
func Custom(pattern string) Category {
	return Category{Kind: KindCustom, Pattern: pattern}
}

// IsCustom reports whether c is a Custom category.
func (c Category) IsCustom() bool { return c.Kind == KindCustom }

// Key is the stable identifier of c: the kind name for built-ins,
// "custom:<pattern>" for custom categories.
func (c Category) Key() string {
	if c.Kind == KindCustom {
		return customPrefix + c.Pattern
	}
	return string(c.Kind)
}

func (c Category) String() string { return c.Key() }

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.Key()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory parses a category key.  Built-in names are case-insensitive;
// "custom:" must be followed by a non-empty pattern.
func ParseCategory(s string) (Category, error) {
	if strings.HasPrefix(strings.ToLower(s), customPrefix) {
		pattern := s[len(customPrefix):]
		if pattern == "" {
			return Category{}, fmt.Errorf("entity: custom category needs a pattern")
		}
		return Custom(pattern), nil
	}
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindHashtag:
		return Hashtag, nil
	case KindMention:
		return Mention, nil
	case KindEmail:
		return Email, nil
	case KindURL:
		return URL, nil
	}
	return Category{}, fmt.Errorf("entity: unknown category %q", s)
}

// Range is a half-open [Start, End) span of rune offsets.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of runes covered.
func (r Range) Len() int { return r.End - r.Start }

// Valid reports whether r lies inside a text of textLen runes.
func (r Range) Valid(textLen int) bool {
	return r.Start >= 0 && r.Start <= r.End && r.End <= textLen
}

// Overlaps reports whether r and o share at least one rune.
func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

// Shift returns r moved by delta runes.
func (r Range) Shift(delta int) Range {
	return Range{Start: r.Start + delta, End: r.End + delta}
}

// Slice returns the runes of text covered by r.  ok is false when r does not
// fit text.
func (r Range) Slice(text string) (string, bool) {
	lo, hi, ok := r.ByteOffsets(text)
	if !ok {
		return "", false
	}
	return text[lo:hi], true
}

// ByteOffsets converts r to byte offsets into text.
func (r Range) ByteOffsets(text string) (lo, hi int, ok bool) {
	if r.Start < 0 || r.End < r.Start {
		return 0, 0, false
	}
	lo, hi = -1, -1
	idx := 0
	for b := range text {
		if idx == r.Start {
			lo = b
		}
		if idx == r.End {
			hi = b
			break
		}
		idx++
	}
	if lo < 0 && idx == r.Start {
		lo = len(text)
	}
	if hi < 0 && idx == r.End {
		hi = len(text)
	}
	if lo < 0 || hi < 0 {
		return 0, 0, false
	}
	return lo, hi, true
}

// UTF16 converts r to UTF-16 code-unit offsets into text.
func (r Range) UTF16(text string) (Range, bool) {
	if !r.Valid(utf8.RuneCountInString(text)) {
		return Range{}, false
	}
	out := Range{}
	cu, idx := 0, 0
	for _, c := range text {
		if idx == r.Start {
			out.Start = cu
		}
		if idx == r.End {
			break
		}
		if c >= 0x10000 {
			cu += 2
		} else {
			cu++
		}
		idx++
	}
	if idx == r.Start {
		out.Start = cu
	}
	out.End = cu
	return out, true
}

// Payload is the semantic content of an entity.  URL entities set Original
// and Trimmed; every other kind sets Word.
type Payload struct {
	Word     string `json:"word,omitempty"`
	Original string `json:"original,omitempty"`
	Trimmed  string `json:"trimmed,omitempty"`
}

// Entity is one located, typed span.
type Entity struct {
	Category Category `json:"category"`
	Range    Range    `json:"range"`
	Payload  Payload  `json:"payload"`
}

// Text returns the string a consumer should act on: the original URL for URL
// entities, the cleaned word otherwise.
func (e Entity) Text() string {
	if e.Category.Kind == KindURL {
		return e.Payload.Original
	}
	return e.Payload.Word
}

// Display returns the text shown for the entity.
func (e Entity) Display() string {
	if e.Category.Kind == KindURL {
		return e.Payload.Trimmed
	}
	return e.Payload.Word
}

// Filter decides whether a cleaned word becomes an entity.  A nil Filter
// accepts everything.
type Filter func(word string) bool

// AcceptAll is the explicit "no filter" value.
var AcceptAll Filter

// Accept applies f to word.
func (f Filter) Accept(word string) bool {
	if f == nil {
		return true
	}
	return f(word)
}

// Result pairs the text to render with the entities located in it, in
// ascending Range.Start order.
type Result struct {
	Text     string   `json:"text"`
	Entities []Entity `json:"entities"`
}

// Of returns the entities of category c, in order.
func (r *Result) Of(c Category) []Entity {
	if r == nil {
		return nil
	}
	var out []Entity
	for _, e := range r.Entities {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

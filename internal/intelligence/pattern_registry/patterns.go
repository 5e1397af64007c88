package pattern_registry

import (
	"github.com/turtacn/activetext/pkg/types/entity"
)

// Built-in pattern sources.  Boundaries in front of the marker are zero-width
// lookbehinds so that a match always starts at the marker itself.
const (
	HashtagPattern = `(?<=^|\s|$)#[\p{L}0-9_]*`

	MentionPattern = `(?<=^|\s|$|[.])@[\p{L}0-9_.]*`

	EmailPattern = `[A-Z0-9a-z._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,64}`

	URLPattern = `(?<=^|[\s.:;?\-\]<\(])` + // leading boundary
		`((https?://|www\.|pic\.)` + // scheme or common prefix
		`[\p{L}\p{N}\-_.]+` + // domain
		`\.[\p{L}]{2,}` + // tld
		`(\.[\p{L}]{2,})?` + // second-level tld
		`(:\d{1,5})?` + // port
		`(/[\p{L}\p{N}\-./_?%&=;@]*)?` + // path
		`(\?[\p{L}\p{N}&=_%+-]*)?` + // query
		`(#[\p{L}\p{N}\-_]*)?)` + // fragment
		`(?=$|[\s',\|\(\).:;?\-\[\]>\)])` // trailing boundary, not consumed
)

// linkDetectorPattern finds URL-like spans more liberally than URLPattern:
// scheme URLs with any path, www. hosts, bare domains and email addresses.
// The named groups classify the scheme of each hit; the host of a
// scheme-less hit is captured in "bare" so that its suffix can be checked
// against the public suffix list.
const linkDetectorPattern = `(?<![\p{L}\p{N}@#._%+\-/])(?:` +
	`(?<mailto>(?:mailto:)?[A-Z0-9a-z._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,64})` +
	`|(?<scheme>https?|ftp)://[^\s<>"]+` +
	`|(?<bare>(?:www\.)?[\p{L}\p{N}][\p{L}\p{N}\-]*(?:\.[\p{L}\p{N}\-]+)*\.\p{L}{2,63})(?::\d{1,5})?(?:[/?#][^\s<>"]*)?` +
	`)`

// Builtin returns the pattern source for a built-in kind, or "" for custom
// and unknown kinds.
func Builtin(kind entity.Kind) string {
	switch kind {
	case entity.KindHashtag:
		return HashtagPattern
	case entity.KindMention:
		return MentionPattern
	case entity.KindEmail:
		return EmailPattern
	case entity.KindURL:
		return URLPattern
	}
	return ""
}

// SourceFor returns the pattern source that drives category c.
func SourceFor(c entity.Category) string {
	if c.IsCustom() {
		return c.Pattern
	}
	return Builtin(c.Kind)
}

// BuiltinPattern pairs a built-in kind with its source.
type BuiltinPattern struct {
	Kind   entity.Kind
	Source string
}

// Builtins lists the built-in kinds with their sources in a stable order.
func Builtins() []BuiltinPattern {
	kinds := []entity.Kind{entity.KindHashtag, entity.KindMention, entity.KindEmail, entity.KindURL}
	out := make([]BuiltinPattern, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, BuiltinPattern{Kind: k, Source: Builtin(k)})
	}
	return out
}

package entity_extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/activetext/pkg/types/entity"
)

// assertURLRangesValid checks that every URL entity slices to its display
// form in the rewritten text.
func assertURLRangesValid(t *testing.T, text string, es []entity.Entity) {
	t.Helper()
	for _, e := range es {
		got, ok := e.Range.Slice(text)
		require.True(t, ok, "range %v out of bounds for %q", e.Range, text)
		assert.Equal(t, e.Payload.Trimmed, got)
	}
}

func TestExtractURLs_TruncatesLongURL(t *testing.T) {
	e := New(nil)
	text := "read https://www.example.com/very/long/path now"

	ents, out := e.ExtractURLs(text, whole(text), 10)
	require.Len(t, ents, 1)

	p := ents[0].Payload
	assert.Equal(t, "https://www.example.com/very/long/path", p.Original)
	assert.Equal(t, "https://ww"+Ellipsis, p.Trimmed)
	assert.Equal(t, 10, len(strings.TrimSuffix(p.Trimmed, Ellipsis)))

	assert.Equal(t, "read https://ww... now", out)
	assert.Equal(t, 1, strings.Count(out, p.Trimmed))
	assert.NotContains(t, out, p.Original)
	assertURLRangesValid(t, out, ents)
}

func TestExtractURLs_OnlyLongURLIsTruncated(t *testing.T) {
	e := New(nil)
	text := "visit http://a.com and http://b.com/xxxxxxxxxxxxx"

	ents, out := e.ExtractURLs(text, whole(text), 15)
	require.Len(t, ents, 2)

	assert.Equal(t, "http://a.com", ents[0].Payload.Original)
	assert.Equal(t, "http://a.com", ents[0].Payload.Trimmed)
	assert.Equal(t, "http://b.com/xxxxxxxxxxxxx", ents[1].Payload.Original)
	assert.Equal(t, "http://b.com/xx"+Ellipsis, ents[1].Payload.Trimmed)

	assert.Equal(t, "visit http://a.com and http://b.com/xx...", out)
	assert.Equal(t, entity.Range{Start: 6, End: 18}, ents[0].Range)
	assertAscending(t, ents)
	assertURLRangesValid(t, out, ents)
}

func TestExtractURLs_ShortLimitTruncatesBoth(t *testing.T) {
	e := New(nil)
	text := "visit http://a.com and http://b.com/xxxxxxxxxxxxx"

	ents, out := e.ExtractURLs(text, whole(text), 8)
	require.Len(t, ents, 2)

	assert.Equal(t, "http://a"+Ellipsis, ents[0].Payload.Trimmed)
	assert.Equal(t, "http://b"+Ellipsis, ents[1].Payload.Trimmed)
	assert.Equal(t, "visit http://a... and http://b...", out)
	assert.Equal(t, entity.Range{Start: 6, End: 17}, ents[0].Range)
	assert.Equal(t, entity.Range{Start: 22, End: 33}, ents[1].Range)
	assertAscending(t, ents)
	assertURLRangesValid(t, out, ents)
}

func TestExtractURLs_EarlierTruncationShiftsLaterRanges(t *testing.T) {
	e := New(nil)
	text := "http://aaaaaaaaaaaaaaaaaaaaaa.com then http://b.io and https://cccccccccccccccc.org/x"

	ents, out := e.ExtractURLs(text, whole(text), 11)
	require.Len(t, ents, 3)
	assertAscending(t, ents)
	assertURLRangesValid(t, out, ents)

	assert.Equal(t, []string{
		"http://aaaa" + Ellipsis,
		"http://b.io",
		"https://ccc" + Ellipsis,
	}, []string{ents[0].Payload.Trimmed, ents[1].Payload.Trimmed, ents[2].Payload.Trimmed})
	assert.Equal(t, "http://aaaa... then http://b.io and https://ccc...", out)
}

func TestExtractURLs_OrderMatchesFirstAppearance(t *testing.T) {
	e := New(nil)
	text := "z.example.com, then https://a.example.com/, then www.m.example.com."

	ents, out := e.ExtractURLs(text, whole(text), 0)
	require.Len(t, ents, 3)
	assert.Equal(t, text, out, "no limit means no rewrite")
	assert.Equal(t, "z.example.com", ents[0].Payload.Original)
	assert.Equal(t, "https://a.example.com/", ents[1].Payload.Original)
	assert.Equal(t, "www.m.example.com", ents[2].Payload.Original)
	assertAscending(t, ents)
	assertURLRangesValid(t, out, ents)
}

func TestExtractURLs_IgnoresEmails(t *testing.T) {
	e := New(nil)
	text := "mail me@x.io or mailto:you@y.org, see www.go.dev"

	ents, out := e.ExtractURLs(text, whole(text), 5)
	require.Len(t, ents, 1)
	assert.Equal(t, "www.go.dev", ents[0].Payload.Original)
	assert.Equal(t, "mail me@x.io or mailto:you@y.org, see www.g...", out)
}

func TestExtractURLs_MultibyteText(t *testing.T) {
	e := New(nil)
	text := "日本語 https://例え.jp/パス/とても長い and 👋 #tag"

	ents, out := e.ExtractURLs(text, whole(text), 13)
	require.Len(t, ents, 1)
	assert.Equal(t, "https://例え.jp"+Ellipsis, ents[0].Payload.Trimmed)
	assert.Equal(t, "日本語 https://例え.jp... and 👋 #tag", out)
	assertURLRangesValid(t, out, ents)

	// Entities that follow the rewrite can be located in the new text.
	tags := e.Extract(entity.Hashtag, out, whole(out), nil)
	require.Len(t, tags, 1)
	covered, ok := tags[0].Range.Slice(out)
	require.True(t, ok)
	assert.Equal(t, "#tag", covered)
}

func TestExtractURLs_SearchRange(t *testing.T) {
	e := New(nil)
	text := "http://one.com http://two.com"

	ents, out := e.ExtractURLs(text, entity.Range{Start: 15, End: 29}, 8)
	require.Len(t, ents, 1)
	assert.Equal(t, "http://two.com", ents[0].Payload.Original)
	assert.Equal(t, "http://one.com http://t...", out)
}

func TestExtractURLs_ProseWithDotsIsNotRewritten(t *testing.T) {
	e := New(nil)
	text := "Great talk today.Thanks Mr.Smith, see notes.txt"

	ents, out := e.ExtractURLs(text, whole(text), 4)
	assert.Empty(t, ents)
	assert.Equal(t, text, out)

	text = "I use node.js, read config.yaml and https://go.dev/doc"
	ents, out = e.ExtractURLs(text, whole(text), 4)
	require.Len(t, ents, 1)
	assert.Equal(t, "https://go.dev/doc", ents[0].Payload.Original)
	assert.Equal(t, "I use node.js, read config.yaml and http"+Ellipsis, out)
	assertURLRangesValid(t, out, ents)
}

func TestExtractURLs_NoiseIsIgnored(t *testing.T) {
	e := New(nil, WithMinLengths(MinLengths{entity.KindURL: 20}))
	text := "see go.dev"

	ents, out := e.ExtractURLs(text, whole(text), 3)
	assert.Empty(t, ents)
	assert.Equal(t, text, out)
}

func TestRewriteURLs_OffsetsRemapEarlierRanges(t *testing.T) {
	e := New(nil)
	text := "@ann https://example.com/a/very/long/path #after"

	tags := e.Extract(entity.Hashtag, text, whole(text), nil)
	require.Len(t, tags, 1)

	rw := e.RewriteURLs(text, whole(text), 8)
	require.Len(t, rw.Entities, 1)
	assert.Equal(t, 1, rw.Offsets.Len())

	moved, ok := rw.Offsets.Remap(tags[0].Range)
	require.True(t, ok)
	covered, ok := moved.Slice(rw.Text)
	require.True(t, ok)
	assert.Equal(t, "#after", covered)

	mentions := e.Extract(entity.Mention, text, whole(text), nil)
	require.Len(t, mentions, 1)
	same, ok := rw.Offsets.Remap(mentions[0].Range)
	require.True(t, ok)
	assert.Equal(t, mentions[0].Range, same, "ranges before the rewrite do not move")
}

func TestExtractURLs_RecordsMetrics(t *testing.T) {
	m := newRecordingMetrics()
	e := New(nil, WithMetrics(m))
	text := "http://short.io and http://a-much-longer-host.example.com/path"

	ents, _ := e.ExtractURLs(text, whole(text), 16)
	require.Len(t, ents, 2)
	assert.Equal(t, 2, m.entities["url"])
	assert.Equal(t, 1, m.truncations)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "abc"+Ellipsis, Truncate("abcd", 3))
	assert.Equal(t, "abcd", Truncate("abcd", 0))
	assert.Equal(t, "abcd", Truncate("abcd", -1))

	family := "👩‍👩‍👧‍👦"
	assert.Equal(t, family+Ellipsis, Truncate(family+family+"x", 1), "grapheme clusters are never split")
	assert.Equal(t, "é"+Ellipsis, Truncate("éé", 1))
}

func TestTrimRange(t *testing.T) {
	rng, word := trimRange(entity.Range{Start: 4, End: 12}, "  a.io  ")
	assert.Equal(t, "a.io", word)
	assert.Equal(t, entity.Range{Start: 6, End: 10}, rng)
}

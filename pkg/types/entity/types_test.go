package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
	}{
		{"hashtag", Hashtag},
		{"Mention", Mention},
		{" email ", Email},
		{"URL", URL},
		{"custom:\\bare\\b", Custom(`\bare\b`)},
		{"CUSTOM:foo", Custom("foo")},
	}
	for _, tc := range cases {
		got, err := ParseCategory(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseCategory("phone")
	assert.Error(t, err)
	_, err = ParseCategory("custom:")
	assert.Error(t, err)
}

func TestCategory_KeyAndJSON(t *testing.T) {
	assert.Equal(t, "url", URL.Key())
	assert.Equal(t, "custom:are", Custom("are").Key())
	assert.True(t, Custom("are").IsCustom())
	assert.False(t, Hashtag.IsCustom())

	b, err := json.Marshal(Entity{Category: Custom("x+"), Range: Range{1, 3}, Payload: Payload{Word: "xx"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"category":"custom:x+","range":{"start":1,"end":3},"payload":{"word":"xx"}}`, string(b))

	var back Entity
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, Custom("x+"), back.Category)
}

func TestRange_Basics(t *testing.T) {
	r := Range{Start: 2, End: 5}
	assert.Equal(t, 3, r.Len())
	assert.True(t, r.Valid(5))
	assert.False(t, r.Valid(4))
	assert.False(t, Range{Start: -1, End: 1}.Valid(5))
	assert.False(t, Range{Start: 3, End: 2}.Valid(5))

	assert.True(t, r.Overlaps(Range{4, 8}))
	assert.False(t, r.Overlaps(Range{5, 8}), "half-open ranges touching at an edge do not overlap")
	assert.False(t, r.Overlaps(Range{0, 2}))
	assert.Equal(t, Range{5, 8}, r.Shift(3))
}

func TestRange_SliceMultibyte(t *testing.T) {
	text := "héllo #wörld 👋 end"

	s, ok := Range{Start: 6, End: 12}.Slice(text)
	require.True(t, ok)
	assert.Equal(t, "#wörld", s)

	s, ok = Range{Start: 13, End: 14}.Slice(text)
	require.True(t, ok)
	assert.Equal(t, "👋", s)

	s, ok = Range{Start: 18, End: 18}.Slice(text)
	require.True(t, ok)
	assert.Equal(t, "", s)

	_, ok = Range{Start: 15, End: 40}.Slice(text)
	assert.False(t, ok)
}

func TestRange_UTF16(t *testing.T) {
	// The emoji occupies two UTF-16 code units.
	text := "👋 #go"
	r, ok := Range{Start: 2, End: 5}.UTF16(text)
	require.True(t, ok)
	assert.Equal(t, Range{Start: 3, End: 6}, r)

	r, ok = Range{Start: 0, End: 1}.UTF16(text)
	require.True(t, ok)
	assert.Equal(t, Range{Start: 0, End: 2}, r)

	r, ok = Range{Start: 5, End: 5}.UTF16(text)
	require.True(t, ok)
	assert.Equal(t, Range{Start: 6, End: 6}, r)

	_, ok = Range{Start: 4, End: 9}.UTF16(text)
	assert.False(t, ok)
}

func TestFilter_Accept(t *testing.T) {
	assert.True(t, AcceptAll.Accept("anything"))

	noDigits := Filter(func(w string) bool { return w != "" && (w[0] < '0' || w[0] > '9') })
	assert.True(t, noDigits.Accept("abc"))
	assert.False(t, noDigits.Accept("123abc"))
}

func TestEntity_TextAndDisplay(t *testing.T) {
	u := Entity{Category: URL, Payload: Payload{Original: "https://example.com/long", Trimmed: "https://e..."}}
	assert.Equal(t, "https://example.com/long", u.Text())
	assert.Equal(t, "https://e...", u.Display())

	h := Entity{Category: Hashtag, Payload: Payload{Word: "go"}}
	assert.Equal(t, "go", h.Text())
	assert.Equal(t, "go", h.Display())
}

func TestResult_Of(t *testing.T) {
	res := &Result{Entities: []Entity{
		{Category: Hashtag, Range: Range{0, 3}},
		{Category: Mention, Range: Range{4, 7}},
		{Category: Hashtag, Range: Range{8, 11}},
	}}
	tags := res.Of(Hashtag)
	require.Len(t, tags, 2)
	assert.Equal(t, 8, tags[1].Range.Start)
	assert.Empty(t, res.Of(URL))

	var nilRes *Result
	assert.Nil(t, nilRes.Of(Hashtag))
}

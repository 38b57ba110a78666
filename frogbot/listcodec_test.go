package frogbot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeList(t *testing.T) {
	assert.Nil(t, encodeList(nil))
	assert.Nil(t, encodeList([]string{}))

	items := []string{"Bard", "White Mage", `say "hi"`, "a,b"}
	raw := encodeList(items)
	require.NotNil(t, raw)
	assert.Equal(t, `{Bard,White Mage,"say \"hi\"","a,b"}`, *raw)
	assert.Equal(t, items, decodeList(raw))
}

func TestDecodeList(t *testing.T) {
	ptr := func(s string) *string { return &s }

	testCases := []struct {
		name     string
		raw      *string
		expected []string
	}{
		{name: "null", raw: nil, expected: nil},
		{name: "empty string", raw: ptr(""), expected: nil},
		{name: "empty array", raw: ptr("{}"), expected: nil},
		{name: "plain", raw: ptr("{Bard,Dancer}"), expected: []string{"Bard", "Dancer"}},
		{
			name:     "quoted",
			raw:      ptr(`{"White Mage","a,b"}`),
			expected: []string{"White Mage", "a,b"},
		},
		{
			name:     "single quoted items are kept",
			raw:      ptr("{'Cats','Tea'}"),
			expected: []string{"'Cats'", "'Tea'"},
		},
		{
			name:     "legacy comma list",
			raw:      ptr("Cats,Tea"),
			expected: []string{"Cats", "Tea"},
		},
		{
			name:     "legacy quoted comma list",
			raw:      ptr("'Cats','Tea'"),
			expected: []string{"Cats", "Tea"},
		},
	}
	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				assert.Equal(t, tc.expected, decodeList(tc.raw))
			},
		)
	}
}

func TestListRoundTrip(t *testing.T) {
	items := []string{"Gil", "NULL", "back\\slash", "{braces}", "  padded  "}
	assert.Equal(t, items, decodeList(encodeList(items)))

	items = []string{"'tea'", "'cake'"}
	assert.Equal(t, items, decodeList(encodeList(items)))
}

func TestCodes(t *testing.T) {
	raw := encodeCodes([]Pronoun{PronounThey, PronounThem})
	require.NotNil(t, raw)
	assert.Equal(t, "{7,8}", *raw)
	assert.Equal(t, []Pronoun{PronounThey, PronounThem}, decodeCodes(raw, Pronouns))

	stale := "{7,99,x,8}"
	assert.Equal(t, []Pronoun{PronounThey, PronounThem}, decodeCodes(&stale, Pronouns))

	assert.Nil(t, encodeCodes[Pronoun](nil))
	assert.Empty(t, decodeCodes[Pronoun](nil, Pronouns))
}

package frogbot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChoice(t *testing.T) {
	var unset Choice[Race]
	assert.False(t, unset.IsSet())
	assert.Empty(t, unset.Label())
	assert.Nil(t, unset.encode())

	miqote := Enumerated(RaceMiqote)
	assert.True(t, miqote.IsSet())
	assert.False(t, miqote.IsCustom())
	assert.Equal(t, "Miqo'te", miqote.Label())
	v, ok := miqote.Value()
	assert.True(t, ok)
	assert.Equal(t, RaceMiqote, v)
	assert.Equal(t, "7", *miqote.encode())

	custom := CustomText[Race]("  Lopporit ")
	assert.True(t, custom.IsCustom())
	assert.Equal(t, "Lopporit", custom.Label())
	text, ok := custom.Custom()
	assert.True(t, ok)
	assert.Equal(t, "Lopporit", text)
	_, ok = custom.Value()
	assert.False(t, ok)
	assert.Equal(t, "Lopporit", *custom.encode())

	assert.False(t, CustomText[Race]("   ").IsSet())
}

func TestChoice_CustomDigitsRoundTrip(t *testing.T) {
	for _, text := range []string{"1", "50", "007", "#", "#1 fan", "Lopporit", "-1"} {
		t.Run(
			text, func(t *testing.T) {
				custom := CustomText[Gender](text)
				decoded := decodeChoice(custom.encode(), Genders)
				assert.True(t, decoded.IsCustom())
				assert.Equal(t, custom, decoded)
			},
		)
	}
	assert.Equal(t, "#1", *CustomText[Gender]("1").encode())
	assert.Equal(t, "Lopporit", *CustomText[Gender]("Lopporit").encode())
}

func TestDecodeChoice(t *testing.T) {
	ptr := func(s string) *string { return &s }

	testCases := []struct {
		name     string
		raw      *string
		expected Choice[Gender]
	}{
		{name: "null", raw: nil, expected: Choice[Gender]{}},
		{name: "blank", raw: ptr("  "), expected: Choice[Gender]{}},
		{name: "catalog code", raw: ptr("2"), expected: Enumerated(GenderFemale)},
		{name: "unknown code", raw: ptr("42"), expected: Choice[Gender]{}},
		{name: "custom text", raw: ptr("Genderfluid"), expected: CustomText[Gender]("Genderfluid")},
		{name: "negative number is text", raw: ptr("-1"), expected: CustomText[Gender]("-1")},
		{name: "escaped digits", raw: ptr("#1"), expected: CustomText[Gender]("1")},
		{name: "escaped marker", raw: ptr("##1 fan"), expected: CustomText[Gender]("#1 fan")},
	}
	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				assert.Equal(t, tc.expected, decodeChoice(tc.raw, Genders))
			},
		)
	}
}

func TestMeasure(t *testing.T) {
	n := Number(180)
	v, ok := n.Number()
	assert.True(t, ok)
	assert.Equal(t, 180, v)
	_, ok = n.Text()
	assert.False(t, ok)
	assert.Equal(t, "180", *n.encode())

	txt := Text("Ageless")
	s, ok := txt.Text()
	assert.True(t, ok)
	assert.Equal(t, "Ageless", s)
	_, ok = txt.Number()
	assert.False(t, ok)

	assert.False(t, Text("").IsSet())
	assert.Nil(t, Measure{}.encode())

	assert.Equal(t, n, decodeMeasure(n.encode()))
	assert.Equal(t, txt, decodeMeasure(txt.encode()))
	assert.Equal(t, Measure{}, decodeMeasure(nil))
	assert.Equal(t, Number(0), decodeMeasure(Number(0).encode()))
}

func TestOptString(t *testing.T) {
	assert.Nil(t, optString(""))
	assert.Nil(t, optString(" \t"))
	assert.Equal(t, "x", *optString(" x "))
	assert.Empty(t, stringPointerValue(nil))
}

package frogbot

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeight(t *testing.T) {
	testCases := []struct {
		input    string
		expected int
		wantErr  bool
	}{
		{input: "180 cm", expected: 180},
		{input: "180cm.", expected: 180},
		{input: "6 ft", expected: 183},
		{input: "6'", expected: 183},
		{input: "74 in", expected: 188},
		{input: "74\"", expected: 188},
		{input: "6ft 2in", expected: 188},
		{input: "6' 2\"", expected: 188},
		{input: "5 feet 10 inches", expected: 178},
		{input: "50 in", expected: 127},
		{input: "tall", wantErr: true},
		{input: "180", wantErr: true},
		{input: "6ft 2in and a bit", wantErr: true},
		{input: "about 180 cm", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(
			tc.input, func(t *testing.T) {
				cm, err := ParseHeight(tc.input)
				if tc.wantErr {
					var heightErr *InvalidHeightError
					require.ErrorAs(t, err, &heightErr)
					assert.Equal(t, tc.input, heightErr.Value)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tc.expected, cm)
			},
		)
	}
}

func TestFormatHeight(t *testing.T) {
	assert.Equal(t, `6' 2" (~188 cm.)`, FormatHeight(188))
	assert.Equal(t, `5' 10" (~180 cm.)`, FormatHeight(180))
	assert.Equal(t, `6' 2"`, heightInputValue(Number(188)))
	assert.Equal(t, "Tall-ish", heightInputValue(Text("Tall-ish")))
	assert.Empty(t, heightInputValue(Measure{}))
}

func TestParseAge(t *testing.T) {
	assert.Equal(t, Number(30), ParseAge("30"))
	assert.Equal(t, Number(30), ParseAge(" -30 "))
	assert.Equal(t, Number(7), ParseAge("+7"))
	assert.Equal(t, Text("Ancient"), ParseAge("Ancient"))
	assert.Equal(t, Measure{}, ParseAge("  "))

	long := ParseAge(strings.Repeat("x", 50))
	text, ok := long.Text()
	require.True(t, ok)
	assert.Len(t, text, maxAgeLength)

	assert.Equal(t, "30", ageInputValue(Number(30)))
	assert.Equal(t, "Ancient", ageInputValue(Text("Ancient")))
}

func TestAtAGlance_Setters(t *testing.T) {
	ctx := context.Background()
	p, _, store := newTestProfile(t)
	a := p.AtAGlance()

	assert.Nil(t, a.Compile())

	require.NoError(t, a.SetGender(ctx, Enumerated(GenderFemale)))
	require.NoError(t, a.SetPronouns(ctx, []Pronoun{PronounShe, PronounHer}))
	require.NoError(t, a.SetRaceClan(ctx, CustomText[Race]("Lopporit"), Enumerated(ClanNA)))
	require.NoError(t, a.SetOrientation(ctx, CustomText[Orientation]("Aroace")))
	require.NoError(t, a.SetHeightInput(ctx, "5 ft 4 in"))
	require.NoError(t, a.SetAge(ctx, "-24"))
	require.NoError(t, a.SetFriendID(ctx, " ABC-123 "))

	var heightErr *InvalidHeightError
	require.ErrorAs(t, a.SetHeightInput(ctx, "very tall"), &heightErr)
	h, ok := a.Height().Number()
	require.True(t, ok)
	assert.Equal(t, 163, h)

	loaded := reloadProfile(t, store, p.ID).AtAGlance()
	assert.Equal(t, Enumerated(GenderFemale), loaded.Gender())
	assert.Equal(t, []Pronoun{PronounShe, PronounHer}, loaded.Pronouns())
	assert.Equal(t, "Lopporit", loaded.Race().Label())
	assert.True(t, loaded.Race().IsCustom())
	assert.Equal(t, Enumerated(ClanNA), loaded.Clan())
	assert.Equal(t, CustomText[Orientation]("Aroace"), loaded.Orientation())
	assert.Equal(t, Number(163), loaded.Height())
	assert.Equal(t, Number(24), loaded.Age())
	assert.Equal(t, "ABC-123", loaded.FriendID())

	field := loaded.Compile()
	require.NotNil(t, field)
	assert.Contains(t, field.Value, "__Gender:__ Female -- *(She/Her)*")
	assert.Contains(t, field.Value, "__Race:__ Lopporit / NA")
	assert.Contains(t, field.Value, "__Height:__ 5' 4\" (~163 cm.)")
	assert.Contains(t, field.Value, "__Friend ID:__ ABC-123")

	status := loaded.Status()
	assert.Contains(t, status.Fields[0].Value, "*(Custom Value(s))*")

	require.NoError(t, a.SetHeightInput(ctx, ""))
	assert.False(t, a.Height().IsSet())
}

func TestAtAGlance_Progress(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newTestProfile(t)
	a := p.AtAGlance()

	assert.NotContains(t, a.Progress(), EmojiCheck)
	require.NoError(t, a.SetRace(ctx, Enumerated(RaceViera)))
	assert.Contains(t, a.Progress(), EmojiCheck+" -- Race / Clan")
	assert.Contains(t, a.Progress(), EmojiCross+" -- Gender / Pronouns")
}

func TestClanOptionsFor(t *testing.T) {
	assert.Equal(
		t,
		[]Clan{ClanRava, ClanVeena, ClanCustom, ClanNA},
		ClanOptionsFor(RaceViera),
	)
	assert.Equal(t, []Clan{ClanCustom, ClanNA}, ClanOptionsFor(RaceCustom))
}

package frogbot

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedChooser picks channelID, or fails with err.
type fixedChooser struct {
	channelID string
	err       error
	offered   []string
	calls     int
}

func (f *fixedChooser) ChooseChannel(_ context.Context, channelIDs []string) (string, error) {
	f.calls++
	f.offered = channelIDs
	if f.err != nil {
		return "", f.err
	}
	return f.channelID, nil
}

func TestProfile_Post(t *testing.T) {
	ctx := context.Background()
	p, _, store := newTestProfile(t)
	session := newMockDiscordSession(t)
	chooser := &fixedChooser{channelID: "c2"}

	require.NoError(t, p.Community().SetPostChannels(ctx, []string{"c1", "c2"}))
	require.NoError(t, p.Details().SetCharName(ctx, "Alisaie"))
	require.NoError(t, p.Personality().SetAboutMe(ctx, "Red mage."))

	result, err := p.Post(ctx, session, chooser)
	require.NoError(t, err)
	assert.False(t, result.Updated)
	assert.Equal(t, []string{"c1", "c2"}, chooser.offered)
	assert.True(t, strings.HasPrefix(result.URL, "https://discord.com/channels/g1/c2/"))
	assert.True(t, p.Published())

	sent := session.Sent("c2")
	require.Len(t, sent, 1)
	require.Len(t, sent[0].Embeds, 2)
	assert.Equal(t, "Alisaie", sent[0].Embeds[0].Title)

	assert.Equal(t, result.URL, reloadProfile(t, store, p.ID).Details().PostURL())

	// a second post edits the same message
	require.NoError(t, p.Details().SetCharName(ctx, "Alisaie Leveilleur"))
	again, err := p.Post(ctx, session, chooser)
	require.NoError(t, err)
	assert.True(t, again.Updated)
	assert.Equal(t, result.URL, again.URL)
	assert.Equal(t, 1, chooser.calls)
	assert.Len(t, session.Sent("c2"), 1)

	channelID, messageID, ok := parseMessageLink(result.URL)
	require.True(t, ok)
	msg, err := session.ChannelMessage(channelID, messageID)
	require.NoError(t, err)
	assert.Equal(t, "Alisaie Leveilleur", msg.Embeds[0].Title)
}

func TestProfile_Post_StaleMessage(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newTestProfile(t)
	session := newMockDiscordSession(t)
	chooser := &fixedChooser{channelID: "c1"}

	require.NoError(t, p.Community().AddPostChannel(ctx, "c1"))
	require.NoError(t, p.Details().SetCharName(ctx, "Thancred"))

	p.mu.Lock()
	require.NoError(t, p.Details().setPostURL(ctx, messageLink("g1", "c1", "404404")))
	p.mu.Unlock()

	result, err := p.Post(ctx, session, chooser)
	require.NoError(t, err)
	assert.False(t, result.Updated)
	assert.NotContains(t, result.URL, "404404")
	assert.Equal(t, 1, chooser.calls)
	assert.Len(t, session.Sent("c1"), 1)
}

func TestProfile_Post_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run(
		"name not set", func(t *testing.T) {
			p, _, _ := newTestProfile(t)
			require.NoError(t, p.Community().AddPostChannel(ctx, "c1"))
			_, err := p.Post(ctx, newMockDiscordSession(t), &fixedChooser{channelID: "c1"})
			var target *CharNameNotSetError
			assert.ErrorAs(t, err, &target)
		},
	)

	t.Run(
		"no post channels", func(t *testing.T) {
			p, _, _ := newTestProfile(t)
			require.NoError(t, p.Details().SetCharName(ctx, "Urianger"))
			chooser := &fixedChooser{channelID: "c1"}
			_, err := p.Post(ctx, newMockDiscordSession(t), chooser)
			var target *NoPostChannelsError
			assert.ErrorAs(t, err, &target)
			assert.Zero(t, chooser.calls)
		},
	)

	t.Run(
		"too long", func(t *testing.T) {
			p, _, _ := newTestProfile(t)
			require.NoError(t, p.Community().AddPostChannel(ctx, "c1"))
			require.NoError(t, p.Details().SetCharName(ctx, "Estinien"))
			require.NoError(t, p.Details().SetRates(ctx, strings.Repeat("r", 500)))
			require.NoError(t, p.Personality().SetPersonality(ctx, strings.Repeat("p", 400)))
			likes := make([]string, 0, 60)
			for i := 0; i < 60; i++ {
				likes = append(likes, strings.Repeat("l", 80))
			}
			require.NoError(t, p.Personality().SetLikes(ctx, likes))

			session := newMockDiscordSession(t)
			_, err := p.Post(ctx, session, &fixedChooser{channelID: "c1"})
			var target *ExceedsMaxLengthError
			require.ErrorAs(t, err, &target)
			assert.Greater(t, target.Length, embedMaxLength-1)
			assert.Empty(t, session.Sent("c1"))
		},
	)

	t.Run(
		"channel prompt cancelled", func(t *testing.T) {
			p, _, _ := newTestProfile(t)
			require.NoError(t, p.Community().AddPostChannel(ctx, "c1"))
			require.NoError(t, p.Details().SetCharName(ctx, "Graha Tia"))
			_, err := p.Post(ctx, newMockDiscordSession(t), &fixedChooser{err: ErrPromptCancelled})
			assert.ErrorIs(t, err, ErrPromptCancelled)
			assert.False(t, p.Published())
		},
	)
}

func TestProfile_Compile(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newTestProfile(t)

	card, aboutMe := p.Compile()
	assert.Equal(t, "Character Name: "+notSet, card.Title)
	assert.Nil(t, aboutMe)
	assert.Nil(t, card.Thumbnail)

	require.NoError(t, p.Details().SetCharName(ctx, "Minfilia"))
	require.NoError(t, p.Details().SetURL(ctx, "https://example.com/minfilia"))
	require.NoError(t, p.Details().SetJobs(ctx, []string{"Archer", "", "Bard", "Dancer", "Ninja"}))
	require.NoError(t, p.Details().SetColor(ctx, "00ff00"))
	require.NoError(t, p.Images().SetMainImage(ctx, "https://cdn.example.com/main.png"))

	card, _ = p.Compile()
	assert.Equal(t, EmojiEnvelope+"  Minfilia  "+EmojiEnvelope, card.Title)
	assert.Equal(t, "https://example.com/minfilia", card.URL)
	assert.Equal(t, 0x00FF00, card.Color)
	assert.Contains(t, card.Description, "Archer")
	assert.NotContains(t, card.Description, "Ninja")
	require.NotNil(t, card.Image)
	assert.Equal(t, "https://cdn.example.com/main.png", card.Image.URL)
	assert.Equal(t, []string{"Archer", "Bard", "Dancer"}, p.Details().Jobs())

	assert.Equal(t, "Profile Progress", p.ProgressEmbed().Title)
	assert.Contains(t, p.Progress(), EmojiCross+" -- Finalize")
}

func TestDetails_SetColor(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newTestProfile(t)

	require.NoError(t, p.Details().SetColor(ctx, "#123456"))
	var colorErr *InvalidColorError
	require.ErrorAs(t, p.Details().SetColor(ctx, "not a color"), &colorErr)

	color, ok := p.Details().Color()
	require.True(t, ok)
	assert.Equal(t, 0x123456, color)

	require.NoError(t, p.Details().SetColor(ctx, ""))
	_, ok = p.Details().Color()
	assert.False(t, ok)
}

func TestPersonality_AboutMePreview(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newTestProfile(t)
	s := p.Personality()

	require.NoError(t, s.SetAboutMe(ctx, strings.Repeat("a", 600)))
	preview := s.aboutMePreview()
	assert.True(t, strings.HasPrefix(preview.Value, strings.Repeat("a", aboutMePreviewLength+1)+"..."))

	require.NoError(t, s.SetAboutMe(ctx, "short"))
	assert.True(t, strings.HasPrefix(s.aboutMePreview().Value, "short\n"))

	require.NoError(t, s.SetLikes(ctx, []string{" Cats ", "", "Tea"}))
	assert.Equal(t, []string{"Cats", "Tea"}, s.Likes())
}

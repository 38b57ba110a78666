package frogbot

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHash(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		password string
	}{
		{"simple", "password123"},
		{"symbols", "C0mpl3x!P@ssw0rd"},
		{"empty", ""},
		{"unicode", "grenouille🐸"},
		{"long", strings.Repeat("ribbit", 200)},
	}

	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				hash, err := hashPassword(tc.password)
				require.NoError(t, err)
				assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m="), hash)

				valid, err := verifyPassword(hash, tc.password)
				require.NoError(t, err)
				assert.True(t, valid)

				valid, err = verifyPassword(hash, tc.password+"x")
				require.NoError(t, err)
				assert.False(t, valid)
			},
		)
	}
}

func TestPasswordHash_Salted(t *testing.T) {
	a, err := hashPassword("same")
	require.NoError(t, err)
	b, err := hashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	for _, hash := range []string{
		"plaintext",
		"$argon2id$v=19$m=x,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!",
	} {
		t.Run(
			hash, func(t *testing.T) {
				_, err := verifyPassword(hash, "anything")
				assert.Error(t, err)
			},
		)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "🐸🐸", truncate("🐸🐸🐸", 2))
	assert.Empty(t, truncate("abc", 0))
}

func TestChunkItems(t *testing.T) {
	testCases := []struct {
		name     string
		size     int
		items    []int
		expected [][]int
	}{
		{"even", 2, []int{1, 2, 3, 4}, [][]int{{1, 2}, {3, 4}}},
		{"remainder", 3, []int{1, 2, 3, 4}, [][]int{{1, 2, 3}, {4}}},
		{"larger than input", 5, []int{1, 2}, [][]int{{1, 2}}},
		{"empty", 5, nil, nil},
	}
	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				assert.Equal(t, tc.expected, chunkItems(tc.size, tc.items...))
			},
		)
	}
}

func TestGenerateRandomHexString(t *testing.T) {
	s, err := generateRandomHexString(promptIDBytes)
	require.NoError(t, err)
	assert.Len(t, s, promptIDBytes*2)
	assert.Regexp(t, "^[0-9a-f]+$", s)
}

func TestDiscordgoLogLevel(t *testing.T) {
	for dgLevel, level := range discordGoLogLevels {
		assert.Equal(t, dgLevel, discordgoLogLevel(level))
	}
	assert.Equal(t, discordgo.LogDebug, discordgoLogLevel(slog.LevelDebug-4))
	assert.Equal(t, discordgo.LogError, discordgoLogLevel(slog.LevelError+4))
}

func TestCommandOptions(t *testing.T) {
	sub, options := commandOptions(
		discordgo.ApplicationCommandInteractionData{
			Name: commandProfiles,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{
					Name: subcommandDetails,
					Type: discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandInteractionDataOption{
						{Name: "color", Type: discordgo.ApplicationCommandOptionString, Value: "#00FF00"},
					},
				},
			},
		},
	)
	assert.Equal(t, subcommandDetails, sub)
	require.Contains(t, options, "color")
	assert.Equal(t, "#00FF00", options["color"].StringValue())

	sub, options = commandOptions(
		discordgo.ApplicationCommandInteractionData{
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "channel", Type: discordgo.ApplicationCommandOptionString, Value: "1"},
			},
		},
	)
	assert.Empty(t, sub)
	assert.Contains(t, options, "channel")
}

func TestInteractionUser(t *testing.T) {
	guild := slashCommand("100", "200", commandProfiles, "")
	assert.Equal(t, "200", interactionUser(guild).ID)

	dm := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "300"}},
	}
	assert.Equal(t, "300", interactionUser(dm).ID)

	assert.Nil(t, interactionUser(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}))
}

func TestContextLogger(t *testing.T) {
	fallback := slog.Default()
	_, ok := ContextLogger(context.Background())
	assert.False(t, ok)
	assert.Same(t, fallback, contextLogger(context.Background(), fallback))

	logger := fallback.With("component", "test")
	ctx := WithLogger(context.Background(), logger)
	got, ok := ContextLogger(ctx)
	require.True(t, ok)
	assert.Same(t, logger, got)
}

func TestNullableString(t *testing.T) {
	var ns NullableString
	require.NoError(t, ns.Scan(nil))
	assert.Empty(t, ns.String())
	v, err := ns.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, ns.Scan([]byte("profiles")))
	assert.Equal(t, "profiles", ns.String())
	assert.Error(t, ns.Scan(42))

	b, err := ns.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `"profiles"`, string(b))
	b, err = NullableString("").MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

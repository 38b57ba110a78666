package frogbot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modalSubmit(guildID, userID, customID string, fields map[string]string) *discordgo.InteractionCreate {
	var rows []discordgo.MessageComponent
	for id, value := range fields {
		rows = append(
			rows, &discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					&discordgo.TextInput{CustomID: id, Value: value},
				},
			},
		)
	}
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:      "i-modal-" + customID,
			Type:    discordgo.InteractionModalSubmit,
			GuildID: guildID,
			Member:  testMember(userID),
			Data: discordgo.ModalSubmitInteractionData{
				CustomID:   customID,
				Components: rows,
			},
		},
	}
}

func TestPrompts_Deliver(t *testing.T) {
	metrics := NewMetrics()
	prompts := newPrompts(time.Minute, metrics)

	p, err := prompts.Open("200")
	require.NoError(t, err)
	assert.Len(t, p.ID, promptIDBytes*2)
	assert.Equal(t, p.ID+":name", p.CustomID("name"))
	assert.Equal(t, 1, prompts.Len())

	wrong := newStubHandler(t, buttonPress("100", "999", p.CustomID("name")))
	assert.Equal(t, deliverWrongUser, prompts.Deliver(wrong))

	unknown := newStubHandler(t, buttonPress("100", "200", "nope:name"))
	assert.Equal(t, deliverUnknown, prompts.Deliver(unknown))
	assert.Equal(t, deliverUnknown, prompts.Deliver(newStubHandler(t, buttonPress("100", "200", "no-separator"))))

	press := newStubHandler(t, buttonPress("100", "200", p.CustomID("name")))
	assert.Equal(t, deliverOK, prompts.Deliver(press))
	// the event buffer holds one unread event
	assert.Equal(t, deliverBusy, prompts.Deliver(press))

	ev, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "name", ev.Action)
	assert.Same(t, press, ev.Handler)

	modal := newStubHandler(
		t, modalSubmit("100", "200", p.CustomID("modal"), map[string]string{"char_name": "  Tataru  "}),
	)
	assert.Equal(t, deliverOK, prompts.Deliver(modal))
	ev, err = p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "modal", ev.Action)
	assert.Equal(t, "Tataru", ev.Field("char_name"))

	p.Close(nil)
	p.Close(ErrPromptTimeout)
	assert.Equal(t, 0, prompts.Len())
	assert.Equal(t, deliverUnknown, prompts.Deliver(press))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Prompts.WithLabelValues(promptOutcomeCompleted)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Prompts.WithLabelValues(promptOutcomeTimeout)))
}

func TestPrompt_Next(t *testing.T) {
	t.Run(
		"timeout", func(t *testing.T) {
			metrics := NewMetrics()
			prompts := newPrompts(50*time.Millisecond, metrics)
			p, err := prompts.Open("200")
			require.NoError(t, err)

			_, err = p.Next(context.Background())
			require.ErrorIs(t, err, ErrPromptTimeout)
			p.Close(err)
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Prompts.WithLabelValues(promptOutcomeTimeout)))
		},
	)

	t.Run(
		"cancel button", func(t *testing.T) {
			prompts := newPrompts(time.Minute, NewMetrics())
			p, err := prompts.Open("200")
			require.NoError(t, err)

			cancel := newStubHandler(t, buttonPress("100", "200", p.CustomID(actionCancel)))
			require.Equal(t, deliverOK, prompts.Deliver(cancel))
			ev, err := p.Next(context.Background())
			require.ErrorIs(t, err, ErrPromptCancelled)
			assert.Same(t, cancel, ev.Handler)
		},
	)

	t.Run(
		"closed while waiting", func(t *testing.T) {
			prompts := newPrompts(time.Minute, NewMetrics())
			p, err := prompts.Open("200")
			require.NoError(t, err)

			go func() {
				time.Sleep(20 * time.Millisecond)
				p.Close(ErrPromptCancelled)
			}()
			_, err = p.Next(context.Background())
			assert.ErrorIs(t, err, ErrPromptCancelled)
		},
	)

	t.Run(
		"context cancelled", func(t *testing.T) {
			prompts := newPrompts(time.Minute, NewMetrics())
			p, err := prompts.Open("200")
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err = p.Next(ctx)
			assert.ErrorIs(t, err, context.Canceled)
		},
	)
}

func TestNewPrompts_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultPromptTimeout, newPrompts(0, NewMetrics()).timeout)
}

func TestPrompts_UniqueIDs(t *testing.T) {
	prompts := newPrompts(time.Minute, NewMetrics())
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		p, err := prompts.Open("200")
		require.NoError(t, err)
		assert.False(t, seen[p.ID])
		assert.False(t, strings.Contains(p.ID, ":"))
		seen[p.ID] = true
	}
	assert.Equal(t, 50, prompts.Len())
}

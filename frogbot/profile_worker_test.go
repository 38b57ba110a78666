package frogbot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerLimiter(t *testing.T) {
	l := newWorkerLimiter(time.Minute)
	l.SetLastCommand(time.Now())
	_, expired := l.Expired()
	assert.False(t, expired)

	l.SetLastCommand(time.Now().Add(-2 * time.Minute))
	expiresAt, expired := l.Expired()
	assert.True(t, expired)
	assert.True(t, expiresAt.Before(time.Now()))

	assert.Equal(t, DefaultWorkerIdleTimeout, newWorkerLimiter(0).IdleTimeout)
}

func TestDispatchProfileCommand_Busy(t *testing.T) {
	t.Parallel()
	bot, _ := newTestBot(t)
	ctx := context.Background()

	_, err := bot.registry.EnsureCommunity(ctx, "100")
	require.NoError(t, err)

	// the details view holds the worker until it's closed
	view := newStubHandler(t, slashCommand("100", "200", commandProfiles, subcommandDetails))
	bot.handleInteraction(ctx, view)
	resp := waitForResponse(t, view)
	require.NotNil(t, resp.Data)
	require.NotEmpty(t, resp.Data.Embeds)

	second := newStubHandler(t, slashCommand("100", "200", commandProfiles, subcommandProgress))
	bot.handleInteraction(ctx, second)
	busy := waitForResponse(t, second)
	require.NotNil(t, busy.Data)
	assert.Equal(t, bot.config.Discord.BusyMessage, busy.Data.Content)
	assert.Equal(t, 1, bot.workers.Len())

	other := newStubHandler(t, slashCommand("100", "201", commandProfiles, subcommandProgress))
	bot.handleInteraction(ctx, other)
	progress := waitForResponse(t, other)
	require.NotNil(t, progress.Data)
	assert.Equal(t, "Profile Progress", progress.Data.Embeds[0].Title)
	assert.Equal(t, 2, bot.workers.Len())
}

func TestProfileWorkers_StopAll(t *testing.T) {
	t.Parallel()
	bot, _ := newTestBot(t)

	w := bot.workers.get(bot.runCtx(), bot, profileWorkerKey("100", "200"))
	assert.Same(t, w, bot.workers.get(bot.runCtx(), bot, profileWorkerKey("100", "200")))
	assert.Equal(t, 1, bot.workers.Len())

	bot.workers.stopAll()
	select {
	case <-w.stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("worker didn't stop")
	}
	assert.Equal(t, 0, bot.workers.Len())
	assert.False(t, w.submit(profileJob{}))
}

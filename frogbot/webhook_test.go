package frogbot

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedRequest(t testing.TB, key ed25519.PrivateKey, body []byte) *http.Request {
	t.Helper()
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	sig := ed25519.Sign(key, append([]byte(timestamp), body...))

	req := httptest.NewRequest(http.MethodPost, apiDiscordInteractions, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(sig))
	req.Header.Set("X-Signature-Timestamp", timestamp)
	return req
}

func TestVerifyRequest(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	body := []byte(`{"type":1}`)

	t.Run(
		"valid", func(t *testing.T) {
			req := signedRequest(t, priv, body)
			require.True(t, verifyRequest(req, pub))

			// the body is still readable afterward
			restored, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			assert.Equal(t, body, restored)
		},
	)
	t.Run(
		"wrong key", func(t *testing.T) {
			assert.False(t, verifyRequest(signedRequest(t, priv, body), otherPub))
		},
	)
	t.Run(
		"tampered body", func(t *testing.T) {
			req := signedRequest(t, priv, body)
			req.Body = io.NopCloser(bytes.NewReader([]byte(`{"type":2}`)))
			assert.False(t, verifyRequest(req, pub))
		},
	)
	t.Run(
		"missing timestamp", func(t *testing.T) {
			req := signedRequest(t, priv, body)
			req.Header.Del("X-Signature-Timestamp")
			assert.False(t, verifyRequest(req, pub))
		},
	)
	t.Run(
		"bad signature encoding", func(t *testing.T) {
			req := signedRequest(t, priv, body)
			req.Header.Set("X-Signature-Ed25519", "zz")
			assert.False(t, verifyRequest(req, pub))
		},
	)
	t.Run(
		"bad key size", func(t *testing.T) {
			assert.False(t, verifyRequest(signedRequest(t, priv, body), pub[:16]))
		},
	)
}

func TestAutoDeferResponse(t *testing.T) {
	testCases := []struct {
		interactionType discordgo.InteractionType
		expected        discordgo.InteractionResponseType
	}{
		{discordgo.InteractionPing, discordgo.InteractionResponsePong},
		{discordgo.InteractionApplicationCommand, discordgo.InteractionResponseDeferredChannelMessageWithSource},
		{discordgo.InteractionMessageComponent, discordgo.InteractionResponseDeferredMessageUpdate},
		{discordgo.InteractionModalSubmit, discordgo.InteractionResponseDeferredMessageUpdate},
	}
	for _, tc := range testCases {
		t.Run(
			tc.interactionType.String(), func(t *testing.T) {
				i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{Type: tc.interactionType}}
				assert.Equal(t, tc.expected, autoDeferResponse(i).Type)
			},
		)
	}
}

func TestWebhookServer_Ping(t *testing.T) {
	t.Parallel()
	bot, _ := newTestBot(t)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	bot.discord.publicKey = pub

	srv, err := newWebhookServer(bot, bot.config.Discord.WebhookServer)
	require.NoError(t, err)

	body, err := json.Marshal(discordgo.Interaction{ID: "ping", Type: discordgo.InteractionPing})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, signedRequest(t, priv, body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp discordgo.InteractionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, discordgo.InteractionResponsePong, resp.Type)

	req := signedRequest(t, priv, body)
	req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(make([]byte, ed25519.SignatureSize)))
	w = httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookServer_Command(t *testing.T) {
	t.Parallel()
	bot, _ := newTestBot(t)
	_, err := bot.registry.EnsureCommunity(context.Background(), "100")
	require.NoError(t, err)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	bot.discord.publicKey = pub
	srv, err := newWebhookServer(bot, bot.config.Discord.WebhookServer)
	require.NoError(t, err)

	body, err := json.Marshal(slashCommand("100", "200", commandProfiles, subcommandProgress).Interaction)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, signedRequest(t, priv, body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// components are interfaces, so only the parts under test are decoded
	var resp struct {
		Type discordgo.InteractionResponseType `json:"type"`
		Data struct {
			Embeds     []*discordgo.MessageEmbed `json:"embeds"`
			Components []json.RawMessage         `json:"components"`
			Flags      discordgo.MessageFlags    `json:"flags"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	require.NotEmpty(t, resp.Data.Embeds)
	assert.Equal(t, "Profile Progress", resp.Data.Embeds[0].Title)
}

func newTestGinContext(t testing.TB) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, apiDiscordInteractions, nil)
	return c, w
}

func TestWebhookHandler_Respond(t *testing.T) {
	session := newMockDiscordSession(t)
	h := newWebhookHandler(session, slashCommand("100", "200", commandProfiles, ""), slog.Default())
	assert.Equal(t, discordInteractionReceiveMethodWebhook, h.InteractionReceiveMethod())

	c, w := newTestGinContext(t)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		assert.NoError(t, h.Respond(context.Background(), ephemeralMessage("hello")))
	}()
	h.reply(c, finished)
	<-finished

	var resp discordgo.InteractionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	assert.Equal(t, "hello", resp.Data.Content)

	assert.ErrorIs(t, h.Respond(context.Background(), ephemeralMessage("again")), errAlreadyResponded)
	assert.Empty(t, session.Edits())
}

func TestWebhookHandler_FinishedWithoutResponse(t *testing.T) {
	h := newWebhookHandler(newMockDiscordSession(t), buttonPress("100", "200", "x:y"), slog.Default())
	c, w := newTestGinContext(t)
	finished := make(chan struct{})
	close(finished)
	h.reply(c, finished)

	var resp discordgo.InteractionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, discordgo.InteractionResponseDeferredMessageUpdate, resp.Type)
}

//nolint:paralleltest // changes webhookResponseDeadline
func TestWebhookHandler_Deadline(t *testing.T) {
	deadline := webhookResponseDeadline
	webhookResponseDeadline = 20 * time.Millisecond
	t.Cleanup(func() { webhookResponseDeadline = deadline })

	session := newMockDiscordSession(t)
	h := newWebhookHandler(session, slashCommand("100", "200", commandProfiles, ""), slog.Default())
	c, w := newTestGinContext(t)
	h.reply(c, make(chan struct{}))

	var resp discordgo.InteractionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, resp.Type)

	// a late message becomes an edit of the deferred reply
	require.NoError(t, h.Respond(context.Background(), ephemeralMessage("late")))
	edits := session.Edits()
	require.Len(t, edits, 1)
	require.NotNil(t, edits[0].Content)
	assert.Equal(t, "late", *edits[0].Content)

	assert.ErrorIs(t, h.Respond(context.Background(), ephemeralMessage("again")), errAlreadyResponded)
}

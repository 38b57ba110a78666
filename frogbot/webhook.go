package frogbot

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
)

// webhookResponseDeadline is how long a webhook interaction may take to
// produce its first response before it is deferred automatically.
// Discord allows three seconds.
var webhookResponseDeadline = 2500 * time.Millisecond

// DiscordWebhookServer receives interactions over HTTP when the bot's
// interactions endpoint URL is set in the developer portal.
type DiscordWebhookServer struct {
	config     DiscordWebhookServerConfig
	httpServer *http.Server
	engine     *gin.Engine
	logger     *slog.Logger
}

func (d *DiscordWebhookServer) Serve(_ context.Context) error {
	if d.httpServer.TLSConfig == nil {
		d.logger.Warn("starting webhook server without TLS")
		return d.httpServer.ListenAndServe()
	}
	return d.httpServer.ListenAndServeTLS("", "")
}

func newWebhookServer(b *FrogBot, config DiscordWebhookServerConfig) (*DiscordWebhookServer, error) {
	logger := slog.New(newLogHandler(defaultLogWriter, componentLevel(config.LogLevel))).With(loggerNameKey, "discord_webhook")

	r := gin.New()
	srv := &DiscordWebhookServer{config: config, engine: r, logger: logger}

	httpServer := &http.Server{
		Addr:              config.Listen,
		Handler:           r,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
	}
	if config.SSL != nil {
		tlsCfg, err := tlsConfig(config.SSL.Cert, config.SSL.Key, config.SSL.TLSMinVersion)
		if err != nil {
			return nil, fmt.Errorf("error loading webhook SSL certs: %w", err)
		}
		httpServer.TLSConfig = tlsCfg
	}
	srv.httpServer = httpServer

	r.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		ginLoggingMiddleware(logger),
		discordRequestAuthenticationMiddleware(b.discord.publicKey),
	)
	r.POST(apiDiscordInteractions, webhookReceiveHandler(b))
	return srv, nil
}

// WebhookHandler implements InteractionHandler for interactions received
// by the webhook server. The first response is written as the HTTP reply.
// Edits, followups and deletes go through the REST API like they do for
// gateway interactions.
type WebhookHandler struct {
	*GatewayHandler

	responses chan *discordgo.InteractionResponse
	written   chan struct{}
	claimed   atomic.Bool
	deferred  atomic.Bool
}

func newWebhookHandler(
	session DiscordSessionHandler,
	i *discordgo.InteractionCreate,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		GatewayHandler: newGatewayHandler(session, i, logger),
		responses:      make(chan *discordgo.InteractionResponse),
		written:        make(chan struct{}),
	}
}

func (*WebhookHandler) InteractionReceiveMethod() DiscordInteractionReceiveMethod {
	return discordInteractionReceiveMethodWebhook
}

// Respond hands the response to the HTTP request, if it's still waiting.
// When the request already timed out with a deferred reply, a message
// response is applied as an edit to the deferred message instead.
func (w *WebhookHandler) Respond(ctx context.Context, response *discordgo.InteractionResponse) error {
	if w.claimed.CompareAndSwap(false, true) {
		select {
		case w.responses <- response:
			<-w.written
			return nil
		case <-w.written:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if !w.deferred.CompareAndSwap(true, false) {
		return errAlreadyResponded
	}

	switch response.Type {
	case discordgo.InteractionResponseChannelMessageWithSource, discordgo.InteractionResponseUpdateMessage:
		data := response.Data
		if data == nil {
			return nil
		}
		edit := &discordgo.WebhookEdit{
			Embeds:     &data.Embeds,
			Components: &data.Components,
		}
		if data.Content != "" {
			edit.Content = &data.Content
		}
		_, err := w.Edit(ctx, edit)
		return err
	case discordgo.InteractionResponseDeferredChannelMessageWithSource,
		discordgo.InteractionResponseDeferredMessageUpdate:
		return nil
	default:
		return fmt.Errorf("%w: response type %d after automatic deferral", errAlreadyResponded, response.Type)
	}
}

// reply waits for the handler's first response and writes it, deferring
// automatically when none arrives in time or the handler finishes
// without responding.
func (w *WebhookHandler) reply(c *gin.Context, finished <-chan struct{}) {
	defer close(w.written)

	timer := time.NewTimer(webhookResponseDeadline)
	defer timer.Stop()

	select {
	case response := <-w.responses:
		c.JSON(http.StatusOK, response)
		return
	case <-finished:
		if w.claimed.CompareAndSwap(false, true) {
			c.JSON(http.StatusOK, autoDeferResponse(w.interaction))
			return
		}
		// Respond claimed the reply but hasn't sent it yet
		c.JSON(http.StatusOK, <-w.responses)
	case <-timer.C:
		w.deferred.Store(true)
		w.logger.WarnContext(c, "interaction response deadline reached, deferring")
		c.JSON(http.StatusOK, autoDeferResponse(w.interaction))
	}
}

// autoDeferResponse acknowledges an interaction without a visible
// response.
func autoDeferResponse(i *discordgo.InteractionCreate) *discordgo.InteractionResponse {
	switch i.Type {
	case discordgo.InteractionPing:
		return &discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong}
	case discordgo.InteractionApplicationCommand:
		return &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	default:
		return &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate}
	}
}

// webhookReceiveHandler decodes a verified interaction, runs it, and
// writes the first response as the HTTP reply.
func webhookReceiveHandler(b *FrogBot) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := ginContextLogger(c)

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logger.ErrorContext(c, "error reading body", tint.Err(err))
			ginReplyError(c, http.StatusInternalServerError, "error reading body")
			return
		}

		var interaction discordgo.InteractionCreate
		if err = json.Unmarshal(body, &interaction); err != nil {
			logger.WarnContext(c, "error unmarshalling body", tint.Err(err))
			ginReplyError(c, http.StatusBadRequest, "error unmarshalling body")
			return
		}

		handler := newWebhookHandler(b.discord.session, &interaction, logger)
		finished := make(chan struct{})
		ctx := WithLogger(b.runCtx(), handler.Logger())

		b.runtimeWG.Add(1)
		go func() {
			defer b.runtimeWG.Done()
			defer close(finished)
			b.handleInteraction(ctx, handler)
		}()
		handler.reply(c, finished)
	}
}

// discordRequestAuthenticationMiddleware rejects requests without a valid
// discord signature.
// See: https://discord.com/developers/docs/interactions/overview#setting-up-an-endpoint-validating-security-request-headers
//
//nolint:lll // can't split link
func discordRequestAuthenticationMiddleware(publicKey ed25519.PublicKey) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !verifyRequest(c.Request, publicKey) {
			ginContextLogger(c).WarnContext(c, "invalid signature")
			ginReplyError(c, http.StatusUnauthorized, "invalid signature")
			return
		}
		c.Next()
	}
}

// verifyRequest checks the ed25519 signature over the timestamp header
// and body. The body is restored for the next handler.
func verifyRequest(r *http.Request, key ed25519.PublicKey) bool {
	if len(key) != ed25519.PublicKeySize {
		return false
	}

	sig, err := hex.DecodeString(r.Header.Get("X-Signature-Ed25519"))
	if err != nil || len(sig) != ed25519.SignatureSize || sig[63]&224 != 0 {
		return false
	}

	timestamp := r.Header.Get("X-Signature-Timestamp")
	if timestamp == "" {
		return false
	}

	var msg bytes.Buffer
	msg.WriteString(timestamp)

	var body bytes.Buffer
	defer func() {
		_ = r.Body.Close()
		r.Body = io.NopCloser(&body)
	}()
	if _, err = io.Copy(&msg, io.TeeReader(r.Body, &body)); err != nil {
		return false
	}
	return ed25519.Verify(key, msg.Bytes(), sig)
}

package frogbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestBot returns a FrogBot backed by a temporary sqlite database and
// a mocked discord session. Run isn't called, so no servers are
// listening and the gateway is never opened.
func newTestBot(t testing.TB) (*FrogBot, *mockDiscordSession) {
	t.Helper()
	gin.DefaultWriter = io.Discard

	cfg := DefaultTestConfig(t)
	bot, err := New(cfg)
	require.NoError(t, err)

	session := newMockDiscordSession(t)
	bot.discord.session = session

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	bot.setRunCtx(ctx)

	require.NoError(t, bot.initRun(ctx))
	t.Cleanup(
		func() {
			cancel()
			bot.workers.stopAll()
			bot.runtimeWG.Wait()
			if sqlDB, _ := bot.db.DB(); sqlDB != nil {
				_ = sqlDB.Close()
			}
		},
	)
	return bot, session
}

// mockDiscordSession implements DiscordSessionHandler, recording the
// calls the bot makes instead of talking to discord.
type mockDiscordSession struct {
	logger *slog.Logger

	mu        sync.Mutex
	responses []*discordgo.InteractionResponse
	edits     []*discordgo.WebhookEdit
	followups []*discordgo.WebhookParams
	sent      map[string][]*discordgo.MessageSend
	messages  map[string]*discordgo.Message
	status    string
	nextID    atomic.Int64
}

func newMockDiscordSession(t testing.TB) *mockDiscordSession {
	return &mockDiscordSession{
		logger: slog.New(
			tint.NewHandler(io.Discard, &tint.Options{Level: slog.LevelDebug}),
		).With(loggerNameKey, "mock_discord_session", "test_name", t.Name()),
		sent:     map[string][]*discordgo.MessageSend{},
		messages: map[string]*discordgo.Message{},
	}
}

func (m *mockDiscordSession) id() string {
	return fmt.Sprintf("%d", 1000+m.nextID.Add(1))
}

func (m *mockDiscordSession) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: channelID, Type: discordgo.ChannelTypeGuildText}, nil
}

func (m *mockDiscordSession) ChannelMessage(
	channelID string,
	messageID string,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[channelID+"/"+messageID]
	if !ok {
		return nil, notFoundError()
	}
	return msg, nil
}

func (m *mockDiscordSession) ChannelMessageSendComplex(
	channelID string,
	data *discordgo.MessageSend,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := &discordgo.Message{ID: m.id(), ChannelID: channelID, Embeds: data.Embeds}
	for _, f := range data.Files {
		msg.Attachments = append(
			msg.Attachments, &discordgo.MessageAttachment{
				ID:  m.id(),
				URL: "https://cdn.example.com/" + f.Name,
			},
		)
	}
	m.sent[channelID] = append(m.sent[channelID], data)
	m.messages[channelID+"/"+msg.ID] = msg
	return msg, nil
}

func (m *mockDiscordSession) ChannelMessageEditComplex(
	e *discordgo.MessageEdit,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[e.Channel+"/"+e.ID]
	if !ok {
		return nil, notFoundError()
	}
	if e.Embeds != nil {
		msg.Embeds = *e.Embeds
	}
	return msg, nil
}

func (m *mockDiscordSession) Open() error  { return nil }
func (m *mockDiscordSession) Close() error { return nil }

func (m *mockDiscordSession) ChannelMessageSend(
	channelID string,
	content string,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	m.logger.Info("message send", "channel_id", channelID, "content", content)
	return &discordgo.Message{ID: m.id(), ChannelID: channelID, Content: content}, nil
}

func (m *mockDiscordSession) ApplicationCommandBulkOverwrite(
	_ string,
	_ string,
	commands []*discordgo.ApplicationCommand,
	_ ...discordgo.RequestOption,
) ([]*discordgo.ApplicationCommand, error) {
	return commands, nil
}

func (m *mockDiscordSession) UpdateCustomStatus(status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
	return nil
}

func (m *mockDiscordSession) AddHandler(any) func() {
	return func() {}
}

func (m *mockDiscordSession) InteractionRespond(
	_ *discordgo.Interaction,
	resp *discordgo.InteractionResponse,
	_ ...discordgo.RequestOption,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	return nil
}

func (m *mockDiscordSession) InteractionResponseEdit(
	_ *discordgo.Interaction,
	newresp *discordgo.WebhookEdit,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, newresp)
	return &discordgo.Message{ID: m.id()}, nil
}

func (m *mockDiscordSession) InteractionResponseDelete(*discordgo.Interaction, ...discordgo.RequestOption) error {
	return nil
}

func (m *mockDiscordSession) FollowupMessageCreate(
	_ *discordgo.Interaction,
	_ bool,
	data *discordgo.WebhookParams,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followups = append(m.followups, data)
	return &discordgo.Message{ID: m.id()}, nil
}

func (m *mockDiscordSession) UserGuilds(
	int, string, string, bool, ...discordgo.RequestOption,
) ([]*discordgo.UserGuild, error) {
	return nil, nil
}

func (m *mockDiscordSession) SetHTTPClient(*http.Client) {}

func (m *mockDiscordSession) SetLogLevel(slog.Level) {}

func (m *mockDiscordSession) Edits() []*discordgo.WebhookEdit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*discordgo.WebhookEdit(nil), m.edits...)
}

func (m *mockDiscordSession) Sent(channelID string) []*discordgo.MessageSend {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*discordgo.MessageSend(nil), m.sent[channelID]...)
}

func notFoundError() error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage},
	}
}

// stubHandler is an InteractionHandler that sends every call to a
// channel so tests can see what the bot answered.
type stubHandler struct {
	interaction *discordgo.InteractionCreate
	logger      *slog.Logger
	responded   atomic.Bool

	callRespond  chan *discordgo.InteractionResponse
	callEdit     chan *discordgo.WebhookEdit
	callFollowup chan *discordgo.WebhookParams
	callDelete   chan struct{}
}

func newStubHandler(t testing.TB, i *discordgo.InteractionCreate) *stubHandler {
	return &stubHandler{
		interaction:  i,
		logger:       slog.Default().With("test_name", t.Name()),
		callRespond:  make(chan *discordgo.InteractionResponse, 100),
		callEdit:     make(chan *discordgo.WebhookEdit, 100),
		callFollowup: make(chan *discordgo.WebhookParams, 100),
		callDelete:   make(chan struct{}, 100),
	}
}

func (s *stubHandler) Respond(_ context.Context, response *discordgo.InteractionResponse) error {
	if !s.responded.CompareAndSwap(false, true) {
		return errAlreadyResponded
	}
	s.callRespond <- response
	return nil
}

func (s *stubHandler) Edit(
	_ context.Context,
	e *discordgo.WebhookEdit,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	s.callEdit <- e
	return &discordgo.Message{}, nil
}

func (s *stubHandler) Followup(
	_ context.Context,
	params *discordgo.WebhookParams,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	s.callFollowup <- params
	return &discordgo.Message{}, nil
}

func (s *stubHandler) Delete(context.Context, ...discordgo.RequestOption) {
	s.callDelete <- struct{}{}
}

func (s *stubHandler) GetInteraction() *discordgo.InteractionCreate { return s.interaction }

func (*stubHandler) InteractionReceiveMethod() DiscordInteractionReceiveMethod {
	return discordInteractionReceiveMethodGateway
}

func (s *stubHandler) Logger() *slog.Logger { return s.logger }

// waitForResponse returns the first response sent to h, failing the test
// after a few seconds.
func waitForResponse(t testing.TB, h *stubHandler) *discordgo.InteractionResponse {
	t.Helper()
	select {
	case r := <-h.callRespond:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for interaction response")
		return nil
	}
}

func waitForEdit(t testing.TB, h *stubHandler) *discordgo.WebhookEdit {
	t.Helper()
	select {
	case e := <-h.callEdit:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for interaction edit")
		return nil
	}
}

func testMember(userID string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: userID, Username: "user" + userID}}
}

func slashCommand(guildID, userID, name, sub string) *discordgo.InteractionCreate {
	data := discordgo.ApplicationCommandInteractionData{Name: name}
	if sub != "" {
		data.Options = []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: sub, Type: discordgo.ApplicationCommandOptionSubCommand},
		}
	}
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:      "i-" + name + "-" + sub,
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: guildID,
			Member:  testMember(userID),
			Data:    data,
		},
	}
}

func buttonPress(guildID, userID, customID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:      "i-button-" + customID,
			Type:    discordgo.InteractionMessageComponent,
			GuildID: guildID,
			Member:  testMember(userID),
			Data: discordgo.MessageComponentInteractionData{
				CustomID:      customID,
				ComponentType: discordgo.ButtonComponent,
			},
		},
	}
}

func TestHandleInteraction_Ping(t *testing.T) {
	t.Parallel()
	bot, _ := newTestBot(t)

	h := newStubHandler(
		t, &discordgo.InteractionCreate{
			Interaction: &discordgo.Interaction{
				Type: discordgo.InteractionPing,
				User: &discordgo.User{ID: "1"},
			},
		},
	)
	bot.handleInteraction(context.Background(), h)
	assert.Equal(t, discordgo.InteractionResponsePong, waitForResponse(t, h).Type)
}

func TestHandleInteraction_IgnoresBots(t *testing.T) {
	t.Parallel()
	bot, _ := newTestBot(t)

	i := slashCommand("100", "200", commandProfiles, subcommandProgress)
	i.Member.User.Bot = true
	h := newStubHandler(t, i)
	bot.handleInteraction(context.Background(), h)

	assert.Empty(t, h.callRespond)
	var logs []InteractionLog
	require.NoError(t, bot.db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "200", logs[0].UserID)
}

func TestHandleInteraction_PromptGone(t *testing.T) {
	t.Parallel()
	bot, _ := newTestBot(t)

	h := newStubHandler(t, buttonPress("100", "200", "deadbeef:close"))
	bot.handleInteraction(context.Background(), h)

	resp := waitForResponse(t, h)
	require.NotNil(t, resp.Data)
	assert.Equal(t, messagePromptGone, resp.Data.Content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)
}

func TestHandleInteraction_WrongUser(t *testing.T) {
	t.Parallel()
	bot, _ := newTestBot(t)

	prompt, err := bot.prompts.Open("200")
	require.NoError(t, err)
	t.Cleanup(func() { prompt.Close(nil) })

	h := newStubHandler(t, buttonPress("100", "300", prompt.CustomID(actionClose)))
	bot.handleInteraction(context.Background(), h)

	resp := waitForResponse(t, h)
	require.NotNil(t, resp.Data)
	assert.Equal(t, messageWrongUser, resp.Data.Content)
}

func TestHandleInteraction_UnknownCommand(t *testing.T) {
	t.Parallel()
	bot, _ := newTestBot(t)

	h := newStubHandler(t, slashCommand("100", "200", "ribbit", ""))
	bot.handleInteraction(context.Background(), h)

	resp := waitForResponse(t, h)
	require.NotNil(t, resp.Data)
	assert.Equal(t, bot.errorMessage(), resp.Data.Content)
}

func TestHandleInteraction_ProfileProgress(t *testing.T) {
	t.Parallel()
	bot, _ := newTestBot(t)
	ctx := context.Background()

	_, err := bot.registry.EnsureCommunity(ctx, "100")
	require.NoError(t, err)

	h := newStubHandler(t, slashCommand("100", "200", commandProfiles, subcommandProgress))
	bot.handleInteraction(ctx, h)

	resp := waitForResponse(t, h)
	require.NotNil(t, resp.Data)
	require.NotEmpty(t, resp.Data.Embeds)
	assert.Equal(t, "Profile Progress", resp.Data.Embeds[0].Title)

	c, ok := bot.registry.GetCommunity("100")
	require.True(t, ok)
	_, ok = c.Profile("200")
	assert.True(t, ok, "expected profile to be created on first use")
}

func TestHandleInteraction_ConfigCloseButton(t *testing.T) {
	t.Parallel()
	bot, _ := newTestBot(t)
	ctx := context.Background()

	h := newStubHandler(t, slashCommand("100", "200", commandConfig, subcommandProfileChannels))
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.handleInteraction(ctx, h)
	}()

	resp := waitForResponse(t, h)
	require.NotNil(t, resp.Data)
	require.Len(t, resp.Data.Embeds, 1)
	assert.Equal(t, "Profile Posting Channels", resp.Data.Embeds[0].Title)
	require.NotEmpty(t, resp.Data.Components)

	row, ok := resp.Data.Components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	closeButton, ok := row.Components[0].(discordgo.Button)
	require.True(t, ok)

	press := newStubHandler(t, buttonPress("100", "200", closeButton.CustomID))
	bot.handleInteraction(ctx, press)

	assert.Equal(t, discordgo.InteractionResponseDeferredMessageUpdate, waitForResponse(t, press).Type)
	select {
	case <-h.callDelete:
	case <-time.After(5 * time.Second):
		t.Fatal("expected the view message to be deleted")
	}
	<-done
	assert.Equal(t, 0, bot.prompts.Len())
}

func TestRespondError(t *testing.T) {
	t.Parallel()
	bot, _ := newTestBot(t)
	ctx := context.Background()

	t.Run(
		"user error", func(t *testing.T) {
			h := newStubHandler(t, slashCommand("1", "2", commandProfiles, subcommandFinalize))
			assert.True(t, bot.respondError(ctx, h, &CharNameNotSetError{}))
			resp := waitForResponse(t, h)
			require.Len(t, resp.Data.Embeds, 1)
			assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)
		},
	)

	t.Run(
		"user error after response", func(t *testing.T) {
			h := newStubHandler(t, slashCommand("1", "2", commandProfiles, subcommandFinalize))
			h.responded.Store(true)
			assert.True(t, bot.respondError(ctx, h, &NoPostChannelsError{}))
			edit := waitForEdit(t, h)
			require.NotNil(t, edit.Embeds)
			assert.Len(t, *edit.Embeds, 1)
			require.NotNil(t, edit.Components)
			assert.Empty(t, *edit.Components)
		},
	)

	t.Run(
		"internal error", func(t *testing.T) {
			h := newStubHandler(t, slashCommand("1", "2", commandProfiles, subcommandFinalize))
			assert.False(t, bot.respondError(ctx, h, errors.New("boom")))
			assert.Equal(t, bot.errorMessage(), waitForResponse(t, h).Data.Content)
		},
	)

	t.Run(
		"internal error after response", func(t *testing.T) {
			h := newStubHandler(t, slashCommand("1", "2", commandProfiles, subcommandFinalize))
			h.responded.Store(true)
			assert.False(t, bot.respondError(ctx, h, errors.New("boom")))
			select {
			case f := <-h.callFollowup:
				assert.Equal(t, bot.errorMessage(), f.Content)
			case <-time.After(5 * time.Second):
				t.Fatal("expected followup")
			}
		},
	)

	t.Run(
		"already reported", func(t *testing.T) {
			h := newStubHandler(t, slashCommand("1", "2", commandProfiles, subcommandFinalize))
			err := fmt.Errorf("wrapped: %w", reportedError{errors.New("boom")})
			assert.False(t, bot.respondError(ctx, h, err))
			assert.Empty(t, h.callRespond)
			assert.Empty(t, h.callFollowup)
		},
	)
}

func TestUpdateRuntimeConfig(t *testing.T) {
	t.Parallel()
	bot, session := newTestBot(t)
	bot.discord.connected.Store(true)
	ctx := context.Background()

	status := "hopping around"
	level := DBLogLevelDebug
	rc, err := bot.UpdateRuntimeConfig(
		ctx, RuntimeConfigUpdate{
			DiscordCustomStatus: &status,
			LogLevel:            &level,
		},
	)
	require.NoError(t, err)
	assert.Equal(t, status, rc.DiscordCustomStatus)
	assert.Equal(t, slog.LevelDebug, bot.config.LogLevel.Level())

	session.mu.Lock()
	assert.Equal(t, status, session.status)
	session.mu.Unlock()

	stored, err := LoadRuntimeConfig(ctx, bot.db)
	require.NoError(t, err)
	assert.Equal(t, status, stored.DiscordCustomStatus)
	assert.Equal(t, DBLogLevelDebug, stored.LogLevel)

	tooLong := string(make([]byte, 200))
	_, err = bot.UpdateRuntimeConfig(ctx, RuntimeConfigUpdate{DiscordCustomStatus: &tooLong})
	require.Error(t, err)
	assert.Equal(t, status, bot.RuntimeConfig().DiscordCustomStatus)
}

func TestLoggerCtx(t *testing.T) {
	logger := slog.Default()
	ctx := context.Background()

	foundLogger, ok := ContextLogger(ctx)
	assert.Nil(t, foundLogger)
	assert.False(t, ok)

	logCtx := WithLogger(ctx, logger)
	foundLogger, ok = ContextLogger(logCtx)
	assert.True(t, ok)
	assert.Equal(t, logger, foundLogger)
}

package frogbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"gorm.io/gorm"
)

const (
	messageWrongUser   = "This menu belongs to someone else. Run the command yourself to get your own!"
	messagePromptGone  = "This menu has expired. Run the command again to pick up where you left off."
	shutdownAnnounceIn = 10 * time.Second
)

var defaultLogWriter io.Writer = os.Stdout

// Set at build time with -ldflags
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildTime = "unknown"
)

// FrogBot is the profile bot. It owns the discord session, the profile
// registry and its database, the admin API and the optional interaction
// webhook server.
type FrogBot struct {
	config *Config

	// db is used for reads. writeDB serializes writes when the database
	// is sqlite.
	db      *gorm.DB
	writeDB DBI

	store    *Store
	registry *Registry

	logger     *slog.Logger
	logHandler slog.Handler

	discord       *Discord
	api           *API
	webhookServer *DiscordWebhookServer
	imageStore    ImageStore
	metrics       *Metrics
	prompts       *Prompts
	workers       *profileWorkers

	notifier Notifier
	events   *notifierEvents

	// signalStop cancels Run, from a stop notification or the API
	signalStop chan struct{}

	// signalReady receives a value once Run has finished starting up
	signalReady chan struct{}

	// prevents Run from executing concurrently
	runMu sync.Mutex

	runContext context.Context
	ctxMu      sync.RWMutex

	// pendingSetup is set until admin credentials exist
	pendingSetup atomic.Bool

	startedAt time.Time

	// getInteractionHandlerFunc wraps a gateway interaction in an
	// InteractionHandler. Tests replace it to capture responses.
	getInteractionHandlerFunc func(ctx context.Context, i *discordgo.InteractionCreate) InteractionHandler

	runtimeConfig *RuntimeConfig
	cfgMu         sync.RWMutex

	runtimeWG sync.WaitGroup
}

// New creates a FrogBot from config. Nothing is opened or connected until
// Run is called.
func New(config *Config) (*FrogBot, error) {
	var errs []error

	switch config.DatabaseType {
	case dbTypeSQLite, dbTypePostgres:
	default:
		errs = append(errs, errors.New("invalid database type (must be 'sqlite' or 'postgres')"))
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}

	b := &FrogBot{
		config:      config,
		signalReady: make(chan struct{}, 1),
		signalStop:  make(chan struct{}, 1),
		events:      newNotifierEvents(),
		workers:     newProfileWorkers(),
	}

	b.logHandler = newLogHandler(defaultLogWriter, componentLevel(config.LogLevel))
	b.logger = slog.New(b.logHandler)
	slog.SetDefault(b.logger)

	b.metrics = NewMetrics()
	b.prompts = newPrompts(config.PromptTimeout, b.metrics)

	config.Discord.httpClient = config.HTTPClient
	disc, err := newDiscord(
		config.Discord,
		b.metrics,
		slog.New(newLogHandler(defaultLogWriter, componentLevel(config.Discord.LogLevel))),
	)
	if err != nil {
		errs = append(errs, err)
	}
	b.discord = disc

	discordgo.Logger = discordgoLoggerFunc(
		context.Background(),
		newLogHandler(defaultLogWriter, componentLevel(config.Discord.DiscordGoLogLevel)),
	)

	if config.API != nil && config.API.Enabled {
		api, apiErr := newAPI(b, config.API)
		errs = append(errs, apiErr)
		b.api = api
	}

	if config.Discord.WebhookServer.Enabled {
		srv, whErr := newWebhookServer(b, config.Discord.WebhookServer)
		errs = append(errs, whErr)
		b.webhookServer = srv
	}

	return b, errors.Join(errs...)
}

// RuntimeConfig returns a copy of the current runtime configuration.
func (b *FrogBot) RuntimeConfig() RuntimeConfig {
	b.cfgMu.RLock()
	defer b.cfgMu.RUnlock()
	if b.runtimeConfig == nil {
		return DefaultRuntimeConfig()
	}
	return *b.runtimeConfig
}

// runCtx is the context of the current Run, used for work that outlives
// the interaction that started it.
func (b *FrogBot) runCtx() context.Context {
	b.ctxMu.RLock()
	defer b.ctxMu.RUnlock()
	if b.runContext == nil {
		return context.Background()
	}
	return b.runContext
}

func (b *FrogBot) setRunCtx(ctx context.Context) {
	b.ctxMu.Lock()
	defer b.ctxMu.Unlock()
	b.runContext = ctx
}

// errorMessage is the reply for failures that aren't the member's fault.
func (b *FrogBot) errorMessage() string {
	if msg := b.RuntimeConfig().DiscordErrorMessage; msg != "" {
		return msg
	}
	return b.config.Discord.ErrorMessage
}

// Run starts the bot and blocks until ctx is cancelled or a stop signal
// is received, then shuts down.
func (b *FrogBot) Run(ctx context.Context) error {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	b.startedAt = time.Now()
	logger := b.logger

	if err := b.config.Validate(); err != nil {
		logger.Error("invalid config", tint.Err(err))
		return err
	}

	ctx = WithLogger(ctx, logger)
	logger.LogAttrs(ctx, slog.LevelInfo, "starting", slog.Any("config", b.config))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	b.setRunCtx(ctx)

	go func() {
		select {
		case <-b.signalStop:
			logger.Warn("got stop signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	startCtx, startCancel := context.WithTimeout(ctx, b.config.StartupTimeout)
	defer startCancel()

	if err := b.initRun(startCtx); err != nil {
		logger.ErrorContext(ctx, "init error", tint.Err(err))
		return err
	}
	logger.InfoContext(ctx, "init complete")

	if b.api != nil {
		b.runtimeWG.Add(1)
		go func() {
			defer b.runtimeWG.Done()
			if err := b.api.Serve(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.ErrorContext(ctx, "error serving api HTTP", tint.Err(err))
			}
		}()
		if b.pendingSetup.Load() {
			logger.WarnContext(ctx, "admin credentials not set", "setup", apiPathSetup)
		}
	}

	b.runtimeWG.Add(2)
	go func() {
		defer b.runtimeWG.Done()
		if err := b.notifier.Listen(ctx); err != nil {
			logger.ErrorContext(ctx, "error listening for notifications", tint.Err(err))
		}
	}()
	go func() {
		defer b.runtimeWG.Done()
		b.watchNotifications(ctx)
	}()

	if b.webhookServer != nil {
		b.runtimeWG.Add(1)
		go func() {
			defer b.runtimeWG.Done()
			if err := b.webhookServer.Serve(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.ErrorContext(ctx, "error serving webhook HTTP", tint.Err(err))
			}
		}()
	}

	b.addDiscordHandlers(ctx)
	logger.InfoContext(ctx, "connecting to discord")
	if err := b.discord.session.Open(); err != nil {
		logger.ErrorContext(ctx, "error connecting to discord", tint.Err(err))
		cancel()
		_ = b.shutdown(ctx)
		return fmt.Errorf("error connecting to discord: %w", err)
	}

	select {
	case b.signalReady <- struct{}{}:
	default:
	}
	logger.InfoContext(ctx, "ready")

	<-ctx.Done()
	return b.shutdown(ctx)
}

// initRun opens the database, loads the runtime config and every
// community and profile, and creates the session, notifier and image
// store when they haven't been provided.
func (b *FrogBot) initRun(ctx context.Context) error {
	if b.db == nil {
		if err := b.initDB(ctx); err != nil {
			return fmt.Errorf("error initializing database: %w", err)
		}
	}

	rc, err := LoadRuntimeConfig(ctx, b.db)
	if err != nil {
		return err
	}
	if err = structValidator.Struct(rc); err != nil {
		return fmt.Errorf("invalid runtime config: %w", err)
	}
	b.pendingSetup.Store(rc.AdminUsername == "" || rc.AdminPassword == "")
	applyLogLevels(b.config, *rc)
	b.cfgMu.Lock()
	b.runtimeConfig = rc
	b.cfgMu.Unlock()

	if b.discord.session == nil {
		session, sessionErr := b.discord.newSession()
		if sessionErr != nil {
			return sessionErr
		}
		b.discord.session = session
	}

	if b.notifier == nil {
		notifier, notifierErr := newNotifier(b.config, b.db, b.events, b.logger)
		if notifierErr != nil {
			return fmt.Errorf("error creating notifier: %w", notifierErr)
		}
		b.notifier = notifier
	}

	if b.imageStore == nil {
		imageStore, imageErr := newImageStore(
			b.config.Images,
			b.discord.session,
			b.config.HTTPClient,
			b.logger,
		)
		if imageErr != nil {
			return fmt.Errorf("error creating image store: %w", imageErr)
		}
		b.imageStore = imageStore
	}

	if err = b.registry.Load(ctx); err != nil {
		return fmt.Errorf("error loading profiles: %w", err)
	}
	return nil
}

// initDB opens and migrates the database, then builds the store and
// registry on top of it.
func (b *FrogBot) initDB(ctx context.Context) error {
	logger := contextLogger(ctx, b.logger)

	handler := newLogHandler(defaultLogWriter, componentLevel(b.config.DatabaseLogLevel))
	db, err := getDB(
		b.config.DatabaseType,
		b.config.Database,
		newGORMLogger(handler, b.config.DatabaseSlowThreshold),
	)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	if b.config.DatabaseType == dbTypeSQLite {
		if err = configureSQLite(db); err != nil {
			return err
		}
	}

	logger.DebugContext(ctx, "migrating database")
	if err = migrate(ctx, db, b.config.DatabaseType); err != nil {
		return err
	}

	b.db = db
	b.writeDB = NewDatabase(db, slog.New(handler), b.config.DatabaseType == dbTypePostgres)
	b.store = NewStore(b.writeDB, b.logger)
	b.registry = NewRegistry(b.store, b.logger)
	b.registry.OnChannelsChanged(
		func(ctx context.Context, guildID string) {
			if b.notifier != nil && !b.notifier.ChannelsChanged(ctx, guildID) {
				b.logger.WarnContext(ctx, "error announcing channel change", "guild_id", guildID)
			}
		},
	)
	return nil
}

// addDiscordHandlers registers the gateway event handlers, replacing any
// from an earlier run.
func (b *FrogBot) addDiscordHandlers(ctx context.Context) {
	for _, remove := range b.discord.discordgoRemoveHandlerFuncs {
		remove()
	}

	if b.getInteractionHandlerFunc == nil {
		b.getInteractionHandlerFunc = func(
			_ context.Context,
			i *discordgo.InteractionCreate,
		) InteractionHandler {
			return newGatewayHandler(b.discord.session, i, b.logger)
		}
	}

	session := b.discord.session
	b.discord.discordgoRemoveHandlerFuncs = []func(){
		session.AddHandler(b.discord.handlerConnect()),
		session.AddHandler(b.discord.handlerDisconnect()),
		session.AddHandler(
			func(_ *discordgo.Session, r *discordgo.Ready) {
				b.handleReady(ctx, r)
			},
		),
		session.AddHandler(
			func(_ *discordgo.Session, g *discordgo.GuildCreate) {
				b.handleGuildCreate(ctx, g)
			},
		),
		session.AddHandler(
			func(_ *discordgo.Session, c *discordgo.ChannelDelete) {
				b.handleChannelDelete(ctx, c)
			},
		),
		session.AddHandler(
			func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
				handler := b.getInteractionHandlerFunc(ctx, i)
				b.runtimeWG.Add(1)
				go func() {
					defer b.runtimeWG.Done()
					b.handleInteraction(ctx, handler)
				}()
			},
		),
	}
}

// handleReady makes sure every guild the bot is in has a community, then
// registers the slash commands and sets the custom status.
func (b *FrogBot) handleReady(ctx context.Context, r *discordgo.Ready) {
	logger := b.logger.With("event", "ready")
	for _, g := range r.Guilds {
		if _, err := b.registry.EnsureCommunity(ctx, g.ID); err != nil {
			logger.ErrorContext(ctx, "error creating community", "guild_id", g.ID, tint.Err(err))
		}
	}
	if _, err := b.discord.registerCommands(discordgo.WithContext(ctx)); err != nil {
		logger.ErrorContext(ctx, "error registering commands", tint.Err(err))
	}
	if status := b.RuntimeConfig().DiscordCustomStatus; status != "" {
		if err := b.discord.session.UpdateCustomStatus(status); err != nil {
			logger.ErrorContext(ctx, "error updating discord status", tint.Err(err))
		}
	}
	logger.InfoContext(ctx, "ready", "guilds", len(r.Guilds))
}

func (b *FrogBot) handleGuildCreate(ctx context.Context, g *discordgo.GuildCreate) {
	if g.Guild == nil {
		return
	}
	if _, err := b.registry.EnsureCommunity(ctx, g.ID); err != nil {
		b.logger.ErrorContext(ctx, "error creating community", "guild_id", g.ID, tint.Err(err))
	}
}

// handleChannelDelete drops a deleted channel from its community's post
// channels.
func (b *FrogBot) handleChannelDelete(ctx context.Context, c *discordgo.ChannelDelete) {
	if c.Channel == nil || c.GuildID == "" {
		return
	}
	if err := b.registry.RemoveChannel(ctx, c.GuildID, c.ID); err != nil {
		b.logger.ErrorContext(
			ctx,
			"error removing deleted channel",
			"guild_id", c.GuildID,
			"channel_id", c.ID,
			tint.Err(err),
		)
	}
}

// watchNotifications applies notifications from other instances until
// ctx is done.
func (b *FrogBot) watchNotifications(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case guildID := <-b.events.channelsChanged:
			if err := b.registry.ReloadChannels(ctx, guildID); err != nil {
				b.logger.ErrorContext(ctx, "error reloading channels", "guild_id", guildID, tint.Err(err))
			}
		case <-b.events.runtimeConfig:
			b.refreshRuntimeConfig(ctx)
		case <-b.events.stop:
			b.logger.WarnContext(ctx, "received stop notification")
			select {
			case b.signalStop <- struct{}{}:
			default:
			}
		}
	}
}

// refreshRuntimeConfig reloads the runtime config after another instance
// changed it.
func (b *FrogBot) refreshRuntimeConfig(ctx context.Context) {
	rc, err := LoadRuntimeConfig(ctx, b.db)
	if err != nil {
		b.logger.ErrorContext(ctx, "error refreshing runtime config", tint.Err(err))
		return
	}
	b.cfgMu.Lock()
	previous := b.runtimeConfigLocked()
	b.runtimeConfig = rc
	b.cfgMu.Unlock()

	b.pendingSetup.Store(rc.AdminUsername == "" || rc.AdminPassword == "")
	applyLogLevels(b.config, *rc)
	b.updateCustomStatus(ctx, previous.DiscordCustomStatus, rc.DiscordCustomStatus)
	b.logger.InfoContext(ctx, "refreshed runtime config")
}

// runtimeConfigLocked returns the runtime config. cfgMu must be held.
func (b *FrogBot) runtimeConfigLocked() RuntimeConfig {
	if b.runtimeConfig == nil {
		return DefaultRuntimeConfig()
	}
	return *b.runtimeConfig
}

// UpdateRuntimeConfig applies update, saves it and announces it to other
// instances.
func (b *FrogBot) UpdateRuntimeConfig(ctx context.Context, update RuntimeConfigUpdate) (
	RuntimeConfig,
	error,
) {
	b.cfgMu.Lock()
	current := b.runtimeConfigLocked()
	next := current
	changes := update.apply(&next)
	if err := structValidator.Struct(next); err != nil {
		b.cfgMu.Unlock()
		return current, err
	}
	if len(changes) == 0 {
		b.cfgMu.Unlock()
		return current, nil
	}
	if _, err := b.writeDB.Updates(ctx, &next, changes); err != nil {
		b.cfgMu.Unlock()
		return current, fmt.Errorf("error saving runtime config: %w", err)
	}
	b.runtimeConfig = &next
	b.cfgMu.Unlock()

	applyLogLevels(b.config, next)
	b.updateCustomStatus(ctx, current.DiscordCustomStatus, next.DiscordCustomStatus)
	if b.notifier != nil && !b.notifier.ReloadRuntimeConfig(ctx) {
		b.logger.WarnContext(ctx, "error announcing runtime config update")
	}
	return next, nil
}

// setAdminCredentials stores the admin login, hashing the password.
func (b *FrogBot) setAdminCredentials(ctx context.Context, username, password string) error {
	hashed, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	b.cfgMu.Lock()
	defer b.cfgMu.Unlock()
	next := b.runtimeConfigLocked()
	if _, err = b.writeDB.Updates(
		ctx, &next, map[string]any{
			columnRuntimeConfigAdminUsername: username,
			columnRuntimeConfigAdminPassword: hashed,
		},
	); err != nil {
		return fmt.Errorf("error saving admin credentials: %w", err)
	}
	next.AdminUsername = username
	next.AdminPassword = hashed
	b.runtimeConfig = &next
	b.pendingSetup.Store(false)
	return nil
}

func (b *FrogBot) updateCustomStatus(ctx context.Context, previous, status string) {
	if previous == status || b.discord.session == nil || !b.discord.connected.Load() {
		return
	}
	if err := b.discord.session.UpdateCustomStatus(status); err != nil {
		b.logger.ErrorContext(ctx, "error updating discord status", tint.Err(err))
	}
}

// handleInteraction routes one interaction: slash commands start a
// command, while buttons, selects and modal submissions are delivered to
// the prompt that's waiting for them.
func (b *FrogBot) handleInteraction(ctx context.Context, handler InteractionHandler) {
	i := handler.GetInteraction()
	logger := handler.Logger()

	u := interactionUser(i)
	if u == nil {
		logger.ErrorContext(ctx, "no user found in interaction")
		return
	}
	ctx = WithLogger(ctx, logger)
	logger.InfoContext(ctx, "received interaction", "user_id", u.ID, "username", u.Username)
	b.metrics.interaction(i.Type.String())

	wg := &sync.WaitGroup{}
	defer wg.Wait()
	if interactionLog, err := newInteractionLog(i, u, handler.InteractionReceiveMethod()); err != nil {
		logger.ErrorContext(ctx, "error creating interaction log", tint.Err(err))
	} else if b.writeDB != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, createErr := b.writeDB.Create(ctx, interactionLog); createErr != nil {
				logger.ErrorContext(ctx, "error logging interaction", tint.Err(createErr))
			}
		}()
	}

	if u.Bot {
		logger.WarnContext(ctx, "user is bot, ignoring")
		return
	}

	if b.RuntimeConfig().RecoverPanic {
		defer func() {
			if rc := recover(); rc != nil {
				b.handleRecover(ctx, rc)
			}
		}()
	}

	switch i.Type {
	case discordgo.InteractionPing:
		_ = handler.Respond(ctx, &discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong})
	case discordgo.InteractionMessageComponent, discordgo.InteractionModalSubmit:
		switch b.prompts.Deliver(handler) {
		case deliverOK:
		case deliverBusy:
			_ = handler.Respond(
				ctx, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate},
			)
		case deliverWrongUser:
			_ = handler.Respond(ctx, ephemeralMessage(messageWrongUser))
		case deliverUnknown:
			logger.InfoContext(ctx, "interaction for unknown or expired prompt")
			_ = handler.Respond(ctx, ephemeralMessage(messagePromptGone))
		}
	case discordgo.InteractionApplicationCommand:
		switch name := i.ApplicationCommandData().Name; name {
		case commandProfiles:
			b.dispatchProfileCommand(ctx, handler)
		case commandConfig:
			if err := b.handleConfigCommand(ctx, handler); err != nil {
				if !b.respondError(ctx, handler, err) {
					logger.ErrorContext(ctx, "error running config command", tint.Err(err))
				}
			}
		default:
			err := fmt.Errorf("%w: %s", errUnknownCommand, name)
			logger.WarnContext(ctx, "unknown command", tint.Err(err))
			b.respondError(ctx, handler, err)
		}
	default:
		logger.WarnContext(ctx, "unhandled interaction type")
	}
}

// respondError reports err to the member. A UserError is shown as its
// embed and true is returned. Anything else gets the generic error
// message, and false so the caller logs it. Errors already reported get
// no second message.
func (b *FrogBot) respondError(ctx context.Context, handler InteractionHandler, err error) bool {
	var reported reportedError
	if errors.As(err, &reported) {
		return false
	}

	if embed, ok := userErrorEmbed(err); ok {
		rerr := handler.Respond(
			ctx, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Embeds: []*discordgo.MessageEmbed{embed},
					Flags:  discordgo.MessageFlagsEphemeral,
				},
			},
		)
		if errors.Is(rerr, errAlreadyResponded) {
			embeds := []*discordgo.MessageEmbed{embed}
			components := []discordgo.MessageComponent{}
			_, _ = handler.Edit(ctx, &discordgo.WebhookEdit{Embeds: &embeds, Components: &components})
		}
		return true
	}

	msg := b.errorMessage()
	if rerr := handler.Respond(ctx, ephemeralMessage(msg)); errors.Is(rerr, errAlreadyResponded) {
		_, _ = handler.Followup(
			ctx, &discordgo.WebhookParams{Content: msg, Flags: discordgo.MessageFlagsEphemeral},
		)
	}
	return false
}

func ephemeralMessage(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}

func (*FrogBot) handleRecover(ctx context.Context, rc any) {
	logger, ok := ContextLogger(ctx)
	if logger == nil || !ok {
		logger = slog.Default()
	}
	stackTrace := string(debug.Stack())
	switch v := rc.(type) {
	case error:
		logger.ErrorContext(ctx, "recovered from panic", tint.Err(v), "stack_trace", stackTrace)
	case string:
		logger.ErrorContext(ctx, "recovered from panic", tint.Err(errors.New(v)), "stack_trace", stackTrace)
	default:
		logger.ErrorContext(ctx, "recovered from panic", "panic_arg", rc, "stack_trace", stackTrace)
	}
}

// shutdown stops the workers and servers and closes the discord session,
// giving up after the configured shutdown timeout.
func (b *FrogBot) shutdown(ctx context.Context) error {
	logger := b.logger
	shutdownStart := time.Now()
	deadline := shutdownStart.Add(b.config.ShutdownTimeout)
	logger.WarnContext(ctx, "shutting down", "shutdown_deadline", deadline)

	closeCtx, closeCancel := context.WithDeadline(context.Background(), deadline)
	defer closeCancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		stopWG := &sync.WaitGroup{}

		stopWG.Add(1)
		go func() {
			defer stopWG.Done()
			b.workers.stopAll()
			logger.InfoContext(ctx, "profile workers stopped")
		}()

		if b.api != nil && b.api.httpServer != nil {
			stopWG.Add(1)
			go func() {
				defer stopWG.Done()
				_ = b.api.httpServer.Shutdown(closeCtx)
				logger.InfoContext(ctx, "api server stopped")
			}()
		}

		if b.webhookServer != nil {
			stopWG.Add(1)
			go func() {
				defer stopWG.Done()
				_ = b.webhookServer.httpServer.Shutdown(closeCtx)
				logger.InfoContext(ctx, "webhook server stopped")
			}()
		}

		if b.discord.session != nil {
			stopWG.Add(1)
			go func() {
				defer stopWG.Done()
				_ = b.discord.session.Close()
				for _, remove := range b.discord.discordgoRemoveHandlerFuncs {
					remove()
				}
				b.discord.discordgoRemoveHandlerFuncs = nil
				logger.InfoContext(ctx, "discord session closed")
			}()
		}

		stopWG.Wait()
		b.runtimeWG.Wait()
		if b.notifier != nil {
			if err := b.notifier.Close(); err != nil {
				logger.ErrorContext(ctx, "error closing notifier", tint.Err(err))
			}
		}
	}()

	ticker := time.NewTicker(shutdownAnnounceIn)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			logger.InfoContext(ctx, "shutdown complete", "shutdown_duration", time.Since(shutdownStart))
			return nil
		case <-ticker.C:
			logger.Warn(fmt.Sprintf("time until hard shutdown: %s", time.Until(deadline)))
		case <-closeCtx.Done():
			logger.Warn("shutdown timed out, forcing close")
			if b.api != nil && b.api.httpServer != nil {
				_ = b.api.httpServer.Close()
			}
			if b.webhookServer != nil {
				_ = b.webhookServer.httpServer.Close()
			}
			return errors.New("shutdown timed out")
		}
	}
}

package frogbot

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-contrib/cors"
	ginPprof "github.com/gin-contrib/pprof"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	gsessions "github.com/gorilla/sessions"
	"github.com/lmittmann/tint"
	"golang.org/x/time/rate"
)

const (
	pprofPrefix              = "/debug"
	apiPrefix                = "/api"
	apiPathQuit              = "/quit"
	apiPathLogin             = "/login"
	apiPathLogout            = "/logout"
	apiPathLoggedIn          = "/logged_in"
	apiHealthCheck           = "/healthz"
	apiPathMetrics           = "/metrics"
	apiDiscordInteractions   = "/discord/interactions"
	apiPathConfig            = "/config"
	apiPathSetup             = "/setup"
	apiPathSetupStatus       = "/setup/status"
	apiPathCommunities       = "/communities"
	apiPathCommunityProfiles = "/communities/:id/profiles"
	apiPathCommunityChannels = "/communities/:id/channels"
	apiPathProfile           = "/profiles/:id"
	apiPathInteractions      = "/interactions"
)

const (
	xRequestIDHeader = "X-Request-ID"
	sessionVarName   = "frogbot_session"
	sessionVarField  = "username"

	loginRequestsPerSecond   = 1
	loginRequestBurst        = 3
	quitTimeout              = 30 * time.Second
	defaultInteractionsLimit = 100
)

var structValidator = validator.New()

// API is the admin HTTP server.
type API struct {
	bot                 *FrogBot
	config              *APIConfig
	httpServer          *http.Server
	listener            net.Listener
	engine              *gin.Engine
	store               CookieStore
	loginRequestLimiter *rate.Limiter
	logger              *slog.Logger
}

func newAPI(b *FrogBot, config *APIConfig) (*API, error) {
	logger := slog.New(newLogHandler(defaultLogWriter, componentLevel(config.LogLevel))).With(loggerNameKey, "api")

	if config.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	api := &API{
		bot:    b,
		config: config,
		engine: r,
		loginRequestLimiter: rate.NewLimiter(
			rate.Limit(loginRequestsPerSecond),
			loginRequestBurst,
		),
		logger: logger,
		store:  newSessionStore(config, logger),
	}

	httpServer := &http.Server{
		Addr:              config.Listen,
		Handler:           r,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}
	if config.SSL != nil {
		tlsCfg, err := tlsConfig(config.SSL.Cert, config.SSL.Key, config.SSL.TLSMinVersion)
		if err != nil {
			return nil, fmt.Errorf("error loading API SSL certs: %w", err)
		}
		httpServer.TLSConfig = tlsCfg
	}
	api.httpServer = httpServer

	corsConfig := config.CORS.GINConfig()
	if len(config.CORS.AllowOrigins) == 0 && config.Development {
		corsConfig.AllowOrigins = []string{"*"}
		corsConfig.AllowCredentials = false
	}

	r.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		ginLoggingMiddleware(logger),
		cors.New(corsConfig),
		sessions.Sessions(sessionVarName, api.store),
	)

	handlers := &apiHandlers{bot: b, api: api}

	r.GET(apiHealthCheck, handlers.healthCheck)
	r.GET(apiPathMetrics, gin.WrapH(b.metrics.Handler()))
	r.POST(apiPathLogin, handlers.login)
	r.POST(apiPathLogout, handlers.logout)
	r.POST(apiPathSetup, handlers.adminSetup)
	r.GET(apiPathSetupStatus, handlers.setupStatus)

	if config.Development {
		ginPprof.Register(r, pprofPrefix)
	}

	protected := r.Group(apiPrefix)
	protected.Use(authMiddleware(b))
	protected.GET(apiPathLoggedIn, handlers.loggedIn)
	protected.GET(apiPathCommunities, handlers.getCommunities)
	protected.GET(apiPathCommunityProfiles, handlers.getCommunityProfiles)
	protected.PUT(apiPathCommunityChannels, handlers.setPostChannels)
	protected.GET(apiPathProfile, handlers.getProfile)
	protected.GET(apiPathInteractions, handlers.getInteractions)
	protected.GET(apiPathConfig, handlers.getConfig)
	protected.PATCH(apiPathConfig, handlers.updateRuntimeConfig)
	protected.POST(apiPathQuit, handlers.quit)

	return api, nil
}

// Serve listens on the configured address, with TLS when certs are
// configured.
func (a *API) Serve(ctx context.Context) error {
	if a.listener == nil {
		listenCfg := &net.ListenConfig{}
		ln, err := listenCfg.Listen(ctx, a.config.ListenNetwork, a.config.Listen)
		if err != nil {
			return fmt.Errorf("error listening on %s: %w", a.config.Listen, err)
		}
		if a.httpServer.TLSConfig != nil {
			ln = tls.NewListener(ln, a.httpServer.TLSConfig)
		} else {
			a.logger.WarnContext(ctx, "starting API without TLS", "listen", a.config.Listen)
		}
		a.listener = ln
	}
	return a.httpServer.Serve(a.listener)
}

// CookieStore is the session store behind the admin login.
type CookieStore interface {
	sessions.Store
}

type cookieStore struct {
	*gsessions.CookieStore
}

func (c *cookieStore) Options(options sessions.Options) {
	c.CookieStore.Options = options.ToGorillaOptions()
}

// newSessionStore signs cookies with a key derived from the configured
// secret, or a random key when none is set.
func newSessionStore(config *APIConfig, logger *slog.Logger) CookieStore {
	var secretKey []byte
	if config.Secret == "" {
		logger.Warn("api secret not set, generating random secret (sessions will not persist across restarts)")
		secretKey = securecookie.GenerateRandomKey(64)
	} else {
		secretKey = derive64ByteKey(config.Secret)
	}

	store := &cookieStore{gsessions.NewCookieStore(secretKey)}
	sameSite := http.SameSiteStrictMode
	if config.Development {
		sameSite = http.SameSiteNoneMode
	}
	store.Options(
		sessions.Options{
			Path:     "/",
			HttpOnly: true,
			Secure:   true,
			MaxAge:   int(config.SessionMaxAge.Seconds()),
			SameSite: sameSite,
		},
	)
	return store
}

type apiHandlers struct {
	bot *FrogBot
	api *API
}

type httpReply struct {
	Message string `json:"message"`
}

type httpError struct {
	Error string `json:"error"`
}

type userLogin struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loggedInResponse struct {
	Username string `json:"username"`
}

type adminSetupPayload struct {
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required,min=8,eqfield=ConfirmPassword"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type setupResponse struct {
	Required bool `json:"required"`
}

type healthCheckResponse struct {
	DiscordGatewayConnected bool   `json:"discord_gateway_connected"`
	Communities             int    `json:"communities"`
	OpenPrompts             int    `json:"open_prompts"`
	ProfileWorkers          int    `json:"profile_workers"`
	Uptime                  string `json:"uptime"`
}

type communityResponse struct {
	ID           string   `json:"id"`
	PostChannels []string `json:"post_channels"`
	Profiles     int      `json:"profiles"`
}

type profileSummary struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	CharName  string `json:"char_name"`
	Published bool   `json:"published"`
}

type profileResponse struct {
	profileSummary
	GuildID  string                  `json:"guild_id"`
	Progress string                  `json:"progress"`
	Card     *discordgo.MessageEmbed `json:"card"`
	AboutMe  *discordgo.MessageEmbed `json:"about_me,omitempty"`
}

// postChannelsPayload is the PUT /api/communities/:id/channels body.
type postChannelsPayload struct {
	ChannelIDs []string `json:"channel_ids" binding:"max=25,dive,required,numeric"`
}

type interactionsQuery struct {
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=500"`
	UserID  string `form:"user_id" binding:"omitempty,numeric"`
	GuildID string `form:"guild_id" binding:"omitempty,numeric"`
}

func ginReplyMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, httpReply{Message: message})
}

func ginReplyError(c *gin.Context, status int, err string) {
	c.AbortWithStatusJSON(status, httpError{Error: err})
}

func newProfileSummary(p *Profile) profileSummary {
	return profileSummary{
		ID:        p.ID,
		UserID:    p.UserID,
		CharName:  p.CharName(),
		Published: p.Published(),
	}
}

func (h *apiHandlers) healthCheck(c *gin.Context) {
	b := h.bot
	resp := healthCheckResponse{
		DiscordGatewayConnected: b.discord.connected.Load(),
		OpenPrompts:             b.prompts.Len(),
		ProfileWorkers:          b.workers.Len(),
	}
	if b.registry != nil {
		resp.Communities = len(b.registry.Communities())
	}
	if !b.startedAt.IsZero() {
		resp.Uptime = time.Since(b.startedAt).Round(time.Second).String()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *apiHandlers) setupStatus(c *gin.Context) {
	c.JSON(http.StatusOK, setupResponse{Required: h.bot.pendingSetup.Load()})
}

// adminSetup sets the admin credentials. It's only allowed while none
// exist.
func (h *apiHandlers) adminSetup(c *gin.Context) {
	logger := ginContextLogger(c)
	if !h.bot.pendingSetup.Load() {
		ginReplyError(c, http.StatusForbidden, "Forbidden")
		return
	}

	var payload adminSetupPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		logger.WarnContext(c, "bad payload", tint.Err(err))
		ginReplyError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.bot.setAdminCredentials(c.Request.Context(), payload.Username, payload.Password); err != nil {
		logger.ErrorContext(c, "error setting admin credentials", tint.Err(err))
		ginReplyError(c, http.StatusInternalServerError, "error setting admin credentials")
		return
	}
	logger.InfoContext(c, "admin credentials set")
	c.JSON(http.StatusCreated, httpReply{Message: "admin credentials set"})
}

func (h *apiHandlers) login(c *gin.Context) {
	logger := ginContextLogger(c)
	if !h.api.loginRequestLimiter.Allow() {
		logger.WarnContext(c, "login rate limited")
		ginReplyError(c, http.StatusTooManyRequests, "Too Many Requests")
		return
	}

	var login userLogin
	if err := c.ShouldBindJSON(&login); err != nil {
		ginReplyError(c, http.StatusBadRequest, err.Error())
		return
	}

	rc := h.bot.RuntimeConfig()
	if rc.AdminUsername == "" || rc.AdminPassword == "" {
		logger.WarnContext(c, "admin username and password not set")
		ginReplyError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if login.Username != rc.AdminUsername {
		logger.WarnContext(c, "invalid login attempt", "username", login.Username)
		ginReplyError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	valid, err := verifyPassword(rc.AdminPassword, login.Password)
	if err != nil {
		logger.ErrorContext(c, "error verifying password", tint.Err(err))
		ginReplyError(c, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if !valid {
		logger.WarnContext(c, "invalid login attempt", "username", login.Username)
		ginReplyError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionVarField, login.Username)
	if err = session.Save(); err != nil {
		logger.ErrorContext(c, "error saving session", tint.Err(err))
		ginReplyError(c, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	logger.InfoContext(c, "logged in", "username", login.Username)
	c.JSON(http.StatusOK, loggedInResponse{Username: login.Username})
}

func (h *apiHandlers) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		ginContextLogger(c).ErrorContext(c, "error saving session", tint.Err(err))
	}
	ginReplyMessage(c, "logged out")
}

func (h *apiHandlers) loggedIn(c *gin.Context) {
	username, _ := c.Get(sessionVarField)
	name, _ := username.(string)
	c.JSON(http.StatusOK, loggedInResponse{Username: name})
}

func (h *apiHandlers) getCommunities(c *gin.Context) {
	communities := h.bot.registry.Communities()
	resp := make([]communityResponse, 0, len(communities))
	for _, community := range communities {
		resp = append(
			resp, communityResponse{
				ID:           community.ID,
				PostChannels: community.PostChannels(),
				Profiles:     len(community.Profiles()),
			},
		)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *apiHandlers) getCommunityProfiles(c *gin.Context) {
	community, ok := h.bot.registry.GetCommunity(c.Param("id"))
	if !ok {
		ginReplyError(c, http.StatusNotFound, ErrGuildNotFound.Error())
		return
	}
	profiles := community.Profiles()
	resp := make([]profileSummary, 0, len(profiles))
	for _, p := range profiles {
		resp = append(resp, newProfileSummary(p))
	}
	c.JSON(http.StatusOK, resp)
}

// getProfile returns the compiled card along with the progress
// checklist.
func (h *apiHandlers) getProfile(c *gin.Context) {
	p, ok := h.bot.registry.ProfileByID(c.Param("id"))
	if !ok {
		ginReplyError(c, http.StatusNotFound, ErrProfileNotFound.Error())
		return
	}
	card, aboutMe := p.Compile()
	c.JSON(
		http.StatusOK, profileResponse{
			profileSummary: newProfileSummary(p),
			GuildID:        p.GuildID,
			Progress:       p.Progress(),
			Card:           card,
			AboutMe:        aboutMe,
		},
	)
}

// setPostChannels replaces a community's approved post channels. Other
// instances are told through the notifier.
func (h *apiHandlers) setPostChannels(c *gin.Context) {
	logger := ginContextLogger(c)
	var payload postChannelsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		ginReplyError(c, http.StatusBadRequest, err.Error())
		return
	}
	community, err := h.bot.registry.EnsureCommunity(c.Request.Context(), c.Param("id"))
	if err != nil {
		logger.ErrorContext(c, "error loading community", tint.Err(err))
		ginReplyError(c, http.StatusInternalServerError, "error loading community")
		return
	}
	if err = community.SetPostChannels(c.Request.Context(), payload.ChannelIDs); err != nil {
		logger.ErrorContext(c, "error saving post channels", tint.Err(err))
		ginReplyError(c, http.StatusInternalServerError, "error saving post channels")
		return
	}
	c.JSON(
		http.StatusOK, communityResponse{
			ID:           community.ID,
			PostChannels: community.PostChannels(),
			Profiles:     len(community.Profiles()),
		},
	)
}

// getInteractions lists the most recent interaction log entries.
func (h *apiHandlers) getInteractions(c *gin.Context) {
	var query interactionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		ginReplyError(c, http.StatusBadRequest, err.Error())
		return
	}
	if query.Limit == 0 {
		query.Limit = defaultInteractionsLimit
	}

	tx := h.bot.db.WithContext(c.Request.Context()).Model(&InteractionLog{})
	if query.UserID != "" {
		tx = tx.Where("user_id = ?", query.UserID)
	}
	if query.GuildID != "" {
		tx = tx.Where("guild_id = ?", query.GuildID)
	}
	var logs []InteractionLog
	if err := tx.Omit("payload").Order("id desc").Limit(query.Limit).Find(&logs).Error; err != nil {
		ginContextLogger(c).ErrorContext(c, "error listing interactions", tint.Err(err))
		ginReplyError(c, http.StatusInternalServerError, "error listing interactions")
		return
	}
	c.JSON(http.StatusOK, logs)
}

// redactedRuntimeConfig is the runtime config without the password hash.
func redactedRuntimeConfig(rc RuntimeConfig) RuntimeConfig {
	rc.AdminPassword = ""
	return rc
}

func (h *apiHandlers) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, redactedRuntimeConfig(h.bot.RuntimeConfig()))
}

func (h *apiHandlers) updateRuntimeConfig(c *gin.Context) {
	logger := ginContextLogger(c)
	var update RuntimeConfigUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		logger.WarnContext(c, "bad payload", tint.Err(err))
		ginReplyError(c, http.StatusBadRequest, err.Error())
		return
	}
	rc, err := h.bot.UpdateRuntimeConfig(c.Request.Context(), update)
	if err != nil {
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			ginReplyError(c, http.StatusBadRequest, err.Error())
			return
		}
		logger.ErrorContext(c, "error updating runtime config", tint.Err(err))
		ginReplyError(c, http.StatusInternalServerError, "error updating config")
		return
	}
	c.JSON(http.StatusOK, redactedRuntimeConfig(rc))
}

// quit sends the stop notification, stopping every instance.
func (h *apiHandlers) quit(c *gin.Context) {
	logger := ginContextLogger(c)
	logger.WarnContext(c, "sending stop signal")
	ctx, cancel := context.WithTimeout(context.Background(), quitTimeout)
	defer cancel()

	if h.bot.notifier == nil || !h.bot.notifier.Stop(ctx) {
		ginReplyError(c, http.StatusGatewayTimeout, "timeout sending stop signal")
		return
	}
	ginReplyMessage(c, "quitting")
}

// authMiddleware rejects requests without a logged-in session.
func authMiddleware(b *FrogBot) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := ginContextLogger(c)
		if b.pendingSetup.Load() {
			logger.WarnContext(c, "admin username and password not set")
			ginReplyError(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		username, ok := sessions.Default(c).Get(sessionVarField).(string)
		if !ok || username == "" || username != b.RuntimeConfig().AdminUsername {
			ginReplyError(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		c.Set(sessionVarField, username)
		c.Next()
	}
}

// requestIDMiddleware tags each request with a random ID, echoed back in
// the X-Request-ID header.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(xRequestIDHeader, id)
		c.Header(xRequestIDHeader, id)
		c.Next()
	}
}

// ginContextLogger returns the request's logger, creating one with the
// request details the first time.
func ginContextLogger(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(string(loggerContextKey)); ok {
		if logger, ok := v.(*slog.Logger); ok {
			return logger
		}
	}
	requestID, _ := c.Get(xRequestIDHeader)
	path := c.Request.URL.Path
	if raw := c.Request.URL.RawQuery; raw != "" {
		path = path + "?" + raw
	}
	logger := slog.Default().With(
		slog.Group(
			"request",
			"method", c.Request.Method,
			"path", path,
			"remote_ip", c.RemoteIP(),
			"user_agent", c.Request.UserAgent(),
		),
		slog.Any(xRequestIDHeader, requestID),
	)
	c.Set(string(loggerContextKey), logger)
	return logger
}

// ginLoggingMiddleware logs each request after it's handled.
func ginLoggingMiddleware(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID, _ := c.Get(xRequestIDHeader)
		logger := base.With(
			slog.Group("request", "method", c.Request.Method, "path", c.Request.URL.Path, "remote_ip", c.RemoteIP()),
			slog.Any(xRequestIDHeader, requestID),
		)
		c.Set(string(loggerContextKey), logger)
		c.Next()

		attrs := []any{
			"duration", time.Since(start),
			slog.Group("response", "status_code", c.Writer.Status(), "body_size", c.Writer.Size()),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			logger.ErrorContext(c, "request finished with errors", append(attrs, "errors", errs.String())...)
			return
		}
		logger.InfoContext(c, "request finished", attrs...)
	}
}

//nolint:gochecknoinits
func init() {
	structValidator.SetTagName("binding")
}

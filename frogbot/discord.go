package frogbot

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

const (
	commandProfiles = "profiles"
	commandConfig   = "config"

	subcommandDetails     = "details"
	subcommandPersonality = "personality"
	subcommandAtAGlance   = "ataglance"
	subcommandImages      = "images"
	subcommandAddImage    = "add_image"
	subcommandPreview     = "preview"
	subcommandFinalize    = "finalize"
	subcommandProgress    = "progress"

	subcommandProfileChannels = "profile_channels"
	subcommandPostChannel     = "post_channel"

	optionField     = "field"
	optionFile      = "file"
	optionOperation = "operation"
	optionChannel   = "channel"

	operationAdd    = "Add"
	operationRemove = "Remove"

	// discordMaxButtonsPerActionRow defines the maximum number of buttons
	// allowed per action row in Discord interactions.
	discordMaxButtonsPerActionRow = 5

	// discordMaxSelectOptions is discord's limit on select menu options
	discordMaxSelectOptions = 25

	discordModalInputLabelMaxLength = 45
)

// Discord manages the gateway session and slash command registration.
type Discord struct {
	session                     DiscordSessionHandler
	config                      *DiscordConfig
	logger                      *slog.Logger
	publicKey                   ed25519.PublicKey
	metrics                     *Metrics
	metricConnects              atomic.Int64
	metricDisconnects           atomic.Int64
	connected                   atomic.Bool
	discordgoRemoveHandlerFuncs []func()
}

func newDiscord(config *DiscordConfig, metrics *Metrics, logger *slog.Logger) (*Discord, error) {
	d := &Discord{
		config:  config,
		metrics: metrics,
		logger:  logger.With(loggerNameKey, "discord"),
	}

	if config.WebhookServer.PublicKey != "" {
		publicKey, err := hex.DecodeString(config.WebhookServer.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("error decoding public key: %w", err)
		}
		d.publicKey = ed25519.PublicKey(publicKey)
	}
	return d, nil
}

// newSession creates the discordgo session, wrapped for logging.
func (d *Discord) newSession() (DiscordSessionHandler, error) {
	disc, err := discordgo.New("Bot " + d.config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	disc.SyncEvents = false
	disc.StateEnabled = true
	disc.Identify.Intents = d.config.GatewayIntents
	if d.config.httpClient != nil {
		disc.Client = d.config.httpClient
	}
	session := &DiscordSession{
		Session: disc,
		logger:  d.logger.With(loggerNameKey, "discord_session"),
	}
	if d.config.DiscordGoLogLevel != nil {
		session.SetLogLevel(d.config.DiscordGoLogLevel.Level())
	}
	return session, nil
}

func (d *Discord) handlerConnect() func(s *discordgo.Session, r *discordgo.Connect) {
	return func(s *discordgo.Session, _ *discordgo.Connect) {
		d.metricConnects.Add(1)
		d.connected.Store(true)
		d.metrics.GatewayConnected.Set(1)

		var sessionID, userID, username string
		if s != nil && s.State != nil {
			sessionID = s.State.SessionID
			if s.State.User != nil {
				userID = s.State.User.ID
				username = s.State.User.Username
			}
		}
		d.logger.Info(
			"connected",
			"session_id", sessionID,
			slog.Group("user", "id", userID, "username", username),
		)
		if d.config.NotificationChannelID != "" && d.config.StartupMessage != "" {
			_, sendErr := d.session.ChannelMessageSend(
				d.config.NotificationChannelID,
				d.config.StartupMessage,
				discordgo.WithRetryOnRatelimit(false),
				discordgo.WithRestRetries(1),
			)
			if sendErr != nil {
				d.logger.Error("unable to send startup message", tint.Err(sendErr))
			}
		}
	}
}

func (d *Discord) handlerDisconnect() func(s *discordgo.Session, r *discordgo.Disconnect) {
	return func(s *discordgo.Session, _ *discordgo.Disconnect) {
		d.connected.Store(false)
		d.metricDisconnects.Add(1)
		d.metrics.GatewayConnected.Set(0)
		d.logger.Warn("disconnected")
	}
}

// registerCommands sends the bot's commands to the discord bulk overwrite
// endpoint
func (d *Discord) registerCommands(
	options ...discordgo.RequestOption,
) ([]*discordgo.ApplicationCommand, error) {
	created, err := d.session.ApplicationCommandBulkOverwrite(
		d.config.ApplicationID,
		d.config.GuildID,
		appCommands(),
		options...,
	)
	if err != nil {
		return created, fmt.Errorf("error overwriting discord commands: %w", err)
	}
	for _, c := range created {
		d.logger.Info("registered command", "command", c.Name, "id", c.ID)
	}
	return created, nil
}

// appCommands returns the /profiles and /config command groups.
func appCommands() []*discordgo.ApplicationCommand {
	guildOnly := []discordgo.InteractionContextType{discordgo.InteractionContextGuild}
	adminPerm := int64(discordgo.PermissionManageServer)

	imageChoices := make(
		[]*discordgo.ApplicationCommandOptionChoice,
		0,
		3,
	)
	for _, s := range []SectionType{SectionThumbnail, SectionMainImage, SectionAdditionalImages} {
		imageChoices = append(
			imageChoices, &discordgo.ApplicationCommandOptionChoice{
				Name:  s.Label(),
				Value: strconv.Itoa(int(s)),
			},
		)
	}

	sub := func(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        name,
			Description: description,
			Options:     options,
		}
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        commandProfiles,
			Description: "Profile creation commands.",
			Type:        discordgo.ChatApplicationCommand,
			Contexts:    &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				sub(subcommandDetails, "View and update name, custom URL, jobs, accent color, & rates."),
				sub(subcommandPersonality, "View and update your Likes, Dislikes, Personality, and About Me sections."),
				sub(subcommandAtAGlance, "Edit or delete your gender, pronouns, race, clan, and other demographic info."),
				sub(subcommandImages, "View or remove your thumbnail, main image, or additional images."),
				sub(
					subcommandAddImage,
					"Add a Thumbnail, Main Image, or Additional Image to your profile.",
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        optionField,
						Description: "Which profile field you want to set with the provided image.",
						Required:    true,
						Choices:     imageChoices,
					},
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionAttachment,
						Name:        optionFile,
						Description: "The image file to set in the specified field.",
						Required:    true,
					},
				),
				sub(subcommandPreview, "Preview your current profile! (Duh.)"),
				sub(subcommandFinalize, "Finalize and post/update your profile"),
				sub(subcommandProgress, "A command to view a progress dialog for your profile."),
			},
		},
		{
			Name:                     commandConfig,
			Description:              "Commands pertaining to server-wide configuration.",
			Type:                     discordgo.ChatApplicationCommand,
			Contexts:                 &guildOnly,
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				sub(subcommandProfileChannels, "View a list of available profile posting channels for this server."),
				sub(
					subcommandPostChannel,
					"Add or Remove a profile posting channel.",
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        optionOperation,
						Description: "Whether to ADD or REMOVE an available profile posting channel.",
						Required:    true,
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: operationAdd, Value: operationAdd},
							{Name: operationRemove, Value: operationRemove},
						},
					},
					&discordgo.ApplicationCommandOption{
						Type:         discordgo.ApplicationCommandOptionChannel,
						Name:         optionChannel,
						Description:  "The posting channel to ADD or REMOVE",
						Required:     true,
						ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
					},
				),
			},
		},
	}
}

// DiscordSessionHandler is the subset of discordgo.Session the bot uses,
// so tests can substitute a double.
type DiscordSessionHandler interface {
	MessageClient

	// Open creates a websocket connection to Discord
	Open() error

	// Close closes the websocket connection to Discord
	Close() error

	ChannelMessageSend(
		channelID string,
		message string,
		opts ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	ApplicationCommandBulkOverwrite(
		appID string,
		guildID string,
		commands []*discordgo.ApplicationCommand,
		options ...discordgo.RequestOption,
	) ([]*discordgo.ApplicationCommand, error)

	// UpdateCustomStatus sets the bot's user status to the given string.
	UpdateCustomStatus(status string) error

	// AddHandler adds a discord gateway event handler
	AddHandler(handler any) func()

	InteractionRespond(
		interaction *discordgo.Interaction,
		resp *discordgo.InteractionResponse,
		options ...discordgo.RequestOption,
	) error

	InteractionResponseEdit(
		interaction *discordgo.Interaction,
		newresp *discordgo.WebhookEdit,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	InteractionResponseDelete(
		interaction *discordgo.Interaction,
		options ...discordgo.RequestOption,
	) error

	FollowupMessageCreate(
		interaction *discordgo.Interaction,
		wait bool,
		data *discordgo.WebhookParams,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	// UserGuilds lists the guilds the bot is a member of
	UserGuilds(
		limit int,
		beforeID string,
		afterID string,
		withCounts bool,
		options ...discordgo.RequestOption,
	) ([]*discordgo.UserGuild, error)

	// SetHTTPClient sets the HTTP client for the session
	SetHTTPClient(client *http.Client)

	// SetLogLevel modifies the session's log level
	SetLogLevel(lvl slog.Level)
}

// DiscordSession implements DiscordSessionHandler, wrapping a
// discordgo.Session with logging on the calls that matter.
type DiscordSession struct {
	*discordgo.Session
	logger *slog.Logger
}

func (d *DiscordSession) SetLogLevel(lvl slog.Level) {
	d.Session.LogLevel = discordgoLogLevel(lvl)
}

func (d *DiscordSession) SetHTTPClient(client *http.Client) {
	d.Session.Client = client
}

func (d *DiscordSession) ChannelMessageSendComplex(
	channelID string,
	data *discordgo.MessageSend,
	options ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	msg, err := d.Session.ChannelMessageSendComplex(channelID, data, options...)
	if err != nil {
		d.logger.Error("error sending message", "channel_id", channelID, tint.Err(err))
	} else {
		d.logger.Info("sent message", "channel_id", channelID, "message_id", msg.ID)
	}
	return msg, err
}

func (d *DiscordSession) ChannelMessageEditComplex(
	m *discordgo.MessageEdit,
	options ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	msg, err := d.Session.ChannelMessageEditComplex(m, options...)
	if err != nil {
		d.logger.Error(
			"error editing message",
			"channel_id", m.Channel,
			"message_id", m.ID,
			tint.Err(err),
		)
	}
	return msg, err
}

func (d *DiscordSession) ApplicationCommandBulkOverwrite(
	appID string,
	guildID string,
	commands []*discordgo.ApplicationCommand,
	options ...discordgo.RequestOption,
) ([]*discordgo.ApplicationCommand, error) {
	created, err := d.Session.ApplicationCommandBulkOverwrite(appID, guildID, commands, options...)
	if err != nil {
		d.logger.Error("error overwriting discord commands", tint.Err(err))
	}
	return created, err
}

// discordModalResponse builds a modal with one text input per row.
func discordModalResponse(
	customID string,
	title string,
	inputs ...discordgo.TextInput,
) *discordgo.InteractionResponse {
	rows := make([]discordgo.MessageComponent, 0, len(inputs))
	for _, input := range inputs {
		input.Label = truncate(input.Label, discordModalInputLabelMaxLength)
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{input}})
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      truncate(title, discordModalInputLabelMaxLength),
			Components: rows,
		},
	}
}

// buttonRows lays buttons out in rows of five.
func buttonRows(buttons ...discordgo.Button) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for _, chunk := range chunkItems(discordMaxButtonsPerActionRow, buttons...) {
		row := discordgo.ActionsRow{}
		for _, b := range chunk {
			row.Components = append(row.Components, b)
		}
		rows = append(rows, row)
	}
	return rows
}

// modalValues collects a submitted modal's text inputs by custom id.
func modalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	values := map[string]string{}
	for _, c := range data.Components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, rc := range row.Components {
			if input, ok := rc.(*discordgo.TextInput); ok {
				values[input.CustomID] = input.Value
			}
		}
	}
	return values
}

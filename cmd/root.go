package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"

	"github.com/AllegroVivo/FrogBot/frogbot"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfg        = frogbot.DefaultConfig()
	configFile string
)

var rootCmd = &cobra.Command{
	Use:          "frogbot [flags]",
	Short:        "Discord bot for building and posting character profile cards",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := initConfig(cmd); err != nil {
			return err
		}
		cfg = frogbot.DefaultConfig()
		return viper.Unmarshal(
			cfg,
			viper.DecodeHook(
				mapstructure.ComposeDecodeHookFunc(
					mapstructure.StringToTimeDurationHookFunc(),
					LevelToStringHookFunc(),
				),
			),
		)
	},
}

// LevelToStringHookFunc decodes level names ("INFO", "debug", ...) into
// *slog.LevelVar fields. A field that already holds a LevelVar is
// decoded through its element type, so both targets are handled.
func LevelToStringHookFunc() mapstructure.DecodeHookFuncType {
	levelVarType := reflect.TypeOf(slog.LevelVar{})
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t != levelVarType && (t.Kind() != reflect.Ptr || t.Elem() != levelVarType) {
			return data, nil
		}
		lvl, err := levelStringToLevelVar(data.(string))
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %s", data)
		}
		return lvl, nil
	}
}

func levelStringToLevelVar(lvl string) (*slog.LevelVar, error) {
	level := &slog.LevelVar{}
	err := level.UnmarshalText([]byte(lvl))
	return level, err
}

// Execute runs the root command, cancelling its context on SIGINT,
// SIGTERM or SIGHUP.
func Execute() {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGTERM,
	)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Println(err)
		cancel()
		os.Exit(1)
	}
}

// initConfig loads the env file, then sets viper's defaults and binds
// the environment. Keys map to env vars with the prefix, upper-cased,
// dots replaced by underscores (discord.token -> FROG_DISCORD_TOKEN).
func initConfig(cmd *cobra.Command) error {
	if configFile == "" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("error loading .env: %w", err)
		}
	} else {
		fmt.Fprintln(cmd.ErrOrStderr(), "loading env from file", configFile)
		if err := godotenv.Load(configFile); err != nil {
			return fmt.Errorf("error loading %s: %w", configFile, err)
		}
	}

	d := frogbot.DefaultConfig()

	viper.SetDefault("database", d.Database)
	viper.SetDefault("database_type", d.DatabaseType)
	viper.SetDefault("database_slow_threshold", d.DatabaseSlowThreshold)
	viper.SetDefault("database_log_level", d.DatabaseLogLevel.Level().String())
	viper.SetDefault("log_level", d.LogLevel.Level().String())
	viper.SetDefault("prompt_timeout", d.PromptTimeout)
	viper.SetDefault("worker_idle_timeout", d.WorkerIdleTimeout)
	viper.SetDefault("startup_timeout", d.StartupTimeout)
	viper.SetDefault("shutdown_timeout", d.ShutdownTimeout)

	// Discord
	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.application_id", "")
	viper.SetDefault("discord.guild_id", "")
	viper.SetDefault("discord.log_level", d.Discord.LogLevel.Level().String())
	viper.SetDefault("discord.discordgo_log_level", d.Discord.DiscordGoLogLevel.Level().String())
	viper.SetDefault("discord.gateway_intents", d.Discord.GatewayIntents)
	viper.SetDefault("discord.startup_message", d.Discord.StartupMessage)
	viper.SetDefault("discord.notification_channel_id", "")
	viper.SetDefault("discord.custom_status", d.Discord.CustomStatus)
	viper.SetDefault("discord.error_message", d.Discord.ErrorMessage)
	viper.SetDefault("discord.busy_message", d.Discord.BusyMessage)

	// Discord: webhook server
	wh := d.Discord.WebhookServer
	viper.SetDefault("discord.webhook_server.enabled", wh.Enabled)
	viper.SetDefault("discord.webhook_server.listen", wh.Listen)
	viper.SetDefault("discord.webhook_server.public_key", "")
	viper.SetDefault("discord.webhook_server.read_timeout", wh.ReadTimeout)
	viper.SetDefault("discord.webhook_server.read_header_timeout", wh.ReadHeaderTimeout)
	viper.SetDefault("discord.webhook_server.write_timeout", wh.WriteTimeout)
	viper.SetDefault("discord.webhook_server.idle_timeout", wh.IdleTimeout)
	viper.SetDefault("discord.webhook_server.log_level", wh.LogLevel.Level().String())

	// API
	viper.SetDefault("api.enabled", d.API.Enabled)
	viper.SetDefault("api.listen", d.API.Listen)
	viper.SetDefault("api.listen_network", d.API.ListenNetwork)
	viper.SetDefault("api.secret", "")
	viper.SetDefault("api.log_level", d.API.LogLevel.Level().String())
	viper.SetDefault("api.session_max_age", d.API.SessionMaxAge)
	viper.SetDefault("api.read_timeout", d.API.ReadTimeout)
	viper.SetDefault("api.read_header_timeout", d.API.ReadHeaderTimeout)
	viper.SetDefault("api.write_timeout", d.API.WriteTimeout)
	viper.SetDefault("api.idle_timeout", d.API.IdleTimeout)
	viper.SetDefault("api.development", d.API.Development)

	// API: CORS
	viper.SetDefault("api.cors.allow_origins", d.API.CORS.AllowOrigins)
	viper.SetDefault("api.cors.allow_methods", d.API.CORS.AllowMethods)
	viper.SetDefault("api.cors.allow_headers", d.API.CORS.AllowHeaders)
	viper.SetDefault("api.cors.expose_headers", d.API.CORS.ExposeHeaders)
	viper.SetDefault("api.cors.allow_credentials", d.API.CORS.AllowCredentials)
	viper.SetDefault("api.cors.max_age", d.API.CORS.MaxAge)

	// Images
	viper.SetDefault("images.backend", d.Images.Backend)
	viper.SetDefault("images.dump_channel_id", "")
	viper.SetDefault("images.cloudinary_url", "")
	viper.SetDefault("images.cloudinary_folder", d.Images.CloudinaryFolder)

	// Notifier
	viper.SetDefault("notifier.backend", d.Notifier.Backend)
	viper.SetDefault("notifier.redis_url", "")

	// SSL settings have no defaults, so they're only picked up from the
	// environment when bound
	for _, key := range []string{
		"api.ssl.cert",
		"api.ssl.key",
		"api.ssl.tls_min_version",
		"discord.webhook_server.ssl.cert",
		"discord.webhook_server.ssl.key",
		"discord.webhook_server.ssl.tls_min_version",
	} {
		if err := viper.BindEnv(key); err != nil {
			return fmt.Errorf("error binding %s: %w", key, err)
		}
	}

	envPrefix := os.Getenv(frogbot.EnvvarSetEnvPrefix)
	if envPrefix == "" {
		envPrefix = frogbot.DefaultEnvPrefix
	}
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Lists come from the environment space-separated
	for _, key := range []string{
		"api.cors.allow_origins",
		"api.cors.allow_methods",
		"api.cors.allow_headers",
		"api.cors.expose_headers",
	} {
		viper.Set(key, viper.GetStringSlice(key))
	}
	return nil
}

//nolint:gochecknoinits
func init() {
	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		"",
		"env file to load settings from (default .env, if present)",
	)
}

package frogbot

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

var (
	columnRuntimeConfigAdminUsername = "admin_username"
	columnRuntimeConfigAdminPassword = "admin_password"
)

// RuntimeConfig is the database-persisted, admin-editable part of the
// bot's configuration. There is a single row.
//
//nolint:lll // struct tags can't be split
type RuntimeConfig struct {
	ModelUintID
	ModelUnixTime

	// DiscordCustomStatus is the custom status message displayed for the bot on Discord.
	DiscordCustomStatus string `json:"discord_custom_status" gorm:"type:string" binding:"max=128"`

	// DiscordErrorMessage replaces Config.Discord.ErrorMessage when set
	DiscordErrorMessage string `json:"discord_error_message" gorm:"type:string" binding:"max=2000"`

	// RecoverPanic logs and swallows panics from interaction handlers
	// instead of crashing.
	RecoverPanic bool `json:"recover_panic" gorm:"not null;default:true"`

	// AdminUsername for the admin API
	AdminUsername string `json:"admin_username" gorm:"type:string" log:"[redacted]"`

	// AdminPassword stores the hashed password for the admin user
	AdminPassword string `json:"admin_password" gorm:"type:string" log:"[redacted]"`

	LogLevel               DBLogLevel `gorm:"default:INFO;type:string;check:log_level in ('INFO', 'WARN', 'ERROR', 'DEBUG')" json:"log_level" binding:"omitempty,oneof=INFO WARN ERROR DEBUG"`
	DiscordLogLevel        DBLogLevel `gorm:"default:INFO;type:string;check:discord_log_level in ('INFO', 'WARN', 'ERROR', 'DEBUG')" json:"discord_log_level" binding:"omitempty,oneof=INFO WARN ERROR DEBUG"`
	DiscordGoLogLevel      DBLogLevel `gorm:"default:WARN;column:discordgo_log_level;type:string;check:discordgo_log_level in ('INFO', 'WARN', 'ERROR', 'DEBUG')" json:"discordgo_log_level" binding:"omitempty,oneof=INFO WARN ERROR DEBUG"`
	DatabaseLogLevel       DBLogLevel `gorm:"default:INFO;type:string;check:database_log_level in ('INFO', 'WARN', 'ERROR', 'DEBUG')" json:"database_log_level" binding:"omitempty,oneof=INFO WARN ERROR DEBUG"`
	DiscordWebhookLogLevel DBLogLevel `gorm:"default:INFO;type:string;check:discord_webhook_log_level in ('INFO', 'WARN', 'ERROR', 'DEBUG')" json:"discord_webhook_log_level" binding:"omitempty,oneof=INFO WARN ERROR DEBUG"`
	APILogLevel            DBLogLevel `gorm:"default:INFO;type:string;check:api_log_level in ('INFO', 'WARN', 'ERROR', 'DEBUG')" json:"api_log_level" binding:"omitempty,oneof=INFO WARN ERROR DEBUG"`
}

func (RuntimeConfig) TableName() string {
	return "config"
}

func (r RuntimeConfig) LogValue() slog.Value {
	return structToSlogValue(r)
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		DiscordCustomStatus:    DefaultDiscordCustomStatus,
		RecoverPanic:           true,
		LogLevel:               DBLogLevelInfo,
		DiscordLogLevel:        DBLogLevelInfo,
		DiscordGoLogLevel:      DBLogLevelWarn,
		DatabaseLogLevel:       DBLogLevelInfo,
		DiscordWebhookLogLevel: DBLogLevelInfo,
		APILogLevel:            DBLogLevelInfo,
	}
}

// LoadRuntimeConfig returns the stored runtime config, creating the
// default row the first time.
func LoadRuntimeConfig(ctx context.Context, db *gorm.DB) (*RuntimeConfig, error) {
	rc := DefaultRuntimeConfig()
	err := db.WithContext(ctx).Where(RuntimeConfig{}).FirstOrCreate(&rc).Error
	if err != nil {
		return nil, fmt.Errorf("error loading runtime config: %w", err)
	}
	return &rc, nil
}

// RuntimeConfigUpdate is the PATCH /api/config payload. Nil fields are
// left unchanged.
//
//nolint:lll // can't break tags
type RuntimeConfigUpdate struct {
	DiscordCustomStatus *string `json:"discord_custom_status,omitempty" binding:"omitnil,max=128"`
	DiscordErrorMessage *string `json:"discord_error_message,omitempty" binding:"omitnil,max=2000"`
	RecoverPanic        *bool   `json:"recover_panic,omitempty"`

	LogLevel               *DBLogLevel `json:"log_level,omitempty" binding:"omitnil,oneof=INFO WARN ERROR DEBUG"`
	DiscordLogLevel        *DBLogLevel `json:"discord_log_level,omitempty" binding:"omitnil,oneof=INFO WARN ERROR DEBUG"`
	DiscordGoLogLevel      *DBLogLevel `json:"discordgo_log_level,omitempty" binding:"omitnil,oneof=INFO WARN ERROR DEBUG"`
	DatabaseLogLevel       *DBLogLevel `json:"database_log_level,omitempty" binding:"omitnil,oneof=INFO WARN ERROR DEBUG"`
	DiscordWebhookLogLevel *DBLogLevel `json:"discord_webhook_log_level,omitempty" binding:"omitnil,oneof=INFO WARN ERROR DEBUG"`
	APILogLevel            *DBLogLevel `json:"api_log_level,omitempty" binding:"omitnil,oneof=INFO WARN ERROR DEBUG"`
}

// apply copies the set fields onto rc, returning the changed columns.
func (u RuntimeConfigUpdate) apply(rc *RuntimeConfig) map[string]any {
	changes := map[string]any{}
	setString := func(column string, dst *string, v *string) {
		if v != nil && *v != *dst {
			*dst = *v
			changes[column] = *v
		}
	}
	setLevel := func(column string, dst *DBLogLevel, v *DBLogLevel) {
		if v != nil && *v != *dst {
			*dst = *v
			changes[column] = *v
		}
	}
	setString("discord_custom_status", &rc.DiscordCustomStatus, u.DiscordCustomStatus)
	setString("discord_error_message", &rc.DiscordErrorMessage, u.DiscordErrorMessage)
	if u.RecoverPanic != nil && *u.RecoverPanic != rc.RecoverPanic {
		rc.RecoverPanic = *u.RecoverPanic
		changes["recover_panic"] = *u.RecoverPanic
	}
	setLevel("log_level", &rc.LogLevel, u.LogLevel)
	setLevel("discord_log_level", &rc.DiscordLogLevel, u.DiscordLogLevel)
	setLevel("discordgo_log_level", &rc.DiscordGoLogLevel, u.DiscordGoLogLevel)
	setLevel("database_log_level", &rc.DatabaseLogLevel, u.DatabaseLogLevel)
	setLevel("discord_webhook_log_level", &rc.DiscordWebhookLogLevel, u.DiscordWebhookLogLevel)
	setLevel("api_log_level", &rc.APILogLevel, u.APILogLevel)
	return changes
}

// applyLogLevels pushes the runtime config's levels onto the config's
// LevelVars, so changes take effect without a restart.
func applyLogLevels(cfg *Config, rc RuntimeConfig) {
	set := func(v *slog.LevelVar, l DBLogLevel) {
		if v != nil && l != "" {
			v.Set(l.Level())
		}
	}
	set(cfg.LogLevel, rc.LogLevel)
	set(cfg.DatabaseLogLevel, rc.DatabaseLogLevel)
	if cfg.Discord != nil {
		set(cfg.Discord.LogLevel, rc.DiscordLogLevel)
		set(cfg.Discord.DiscordGoLogLevel, rc.DiscordGoLogLevel)
		set(cfg.Discord.WebhookServer.LogLevel, rc.DiscordWebhookLogLevel)
	}
	if cfg.API != nil {
		set(cfg.API.LogLevel, rc.APILogLevel)
	}
}

// SetAdminCredentials hashes password and stores it with username on the
// runtime config row, for the init command.
func SetAdminCredentials(ctx context.Context, db *gorm.DB, username, password string) (*RuntimeConfig, error) {
	rc, err := LoadRuntimeConfig(ctx, db)
	if err != nil {
		return nil, err
	}
	hashed, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	if err = db.WithContext(ctx).Model(rc).Updates(
		map[string]any{
			columnRuntimeConfigAdminUsername: username,
			columnRuntimeConfigAdminPassword: hashed,
		},
	).Error; err != nil {
		return nil, fmt.Errorf("error saving admin credentials: %w", err)
	}
	rc.AdminUsername = username
	rc.AdminPassword = hashed
	return rc, nil
}

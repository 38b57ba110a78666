package frogbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	notifierBackendAuto     = "auto"
	notifierBackendPostgres = "postgres"
	notifierBackendSQLite   = "sqlite"
	notifierBackendRedis    = "redis"

	notifyChannelChannelsChanged = "frogbot_channels_changed"
	notifyChannelRuntimeConfig   = "frogbot_runtime_config"
	notifyChannelStop            = "frogbot_stop"

	// recordSeparator separates the sender id from the payload
	recordSeparator = "\x1e"

	notifierRetryInterval = 5 * time.Second
)

var notifyChannels = []string{
	notifyChannelChannelsChanged,
	notifyChannelRuntimeConfig,
	notifyChannelStop,
}

// Notifier tells other bot instances sharing the database about changes
// they can't see in their in-memory state. Each instance ignores its own
// notifications.
type Notifier interface {
	// ID identifies this instance in notification payloads.
	ID() string

	// ChannelsChanged announces that a community's post channels were
	// saved.
	ChannelsChanged(ctx context.Context, guildID string) bool

	// ReloadRuntimeConfig announces a runtime config update.
	ReloadRuntimeConfig(ctx context.Context) bool

	// Stop shuts down every instance, including this one.
	Stop(ctx context.Context) bool

	// Listen delivers other instances' notifications until ctx is done.
	Listen(ctx context.Context) error

	Close() error
}

// notifierEvents are the channels a Notifier delivers received
// notifications to.
type notifierEvents struct {
	channelsChanged chan string
	runtimeConfig   chan struct{}
	stop            chan struct{}
}

func newNotifierEvents() *notifierEvents {
	return &notifierEvents{
		channelsChanged: make(chan string, 16),
		runtimeConfig:   make(chan struct{}, 1),
		stop:            make(chan struct{}, 1),
	}
}

// deliver routes one received notification, giving up after
// dbNotifierSendTimeout.
func (e *notifierEvents) deliver(
	ctx context.Context,
	logger *slog.Logger,
	channel string,
	payload string,
) {
	var send func() bool
	switch channel {
	case notifyChannelChannelsChanged:
		send = func() bool {
			select {
			case e.channelsChanged <- payload:
				return true
			case <-ctx.Done():
			case <-time.After(dbNotifierSendTimeout):
			}
			return false
		}
	case notifyChannelRuntimeConfig:
		send = func() bool { return trySignal(ctx, e.runtimeConfig) }
	case notifyChannelStop:
		send = func() bool { return trySignal(ctx, e.stop) }
	default:
		logger.WarnContext(ctx, "received unknown notification", "channel", channel)
		return
	}
	if !send() {
		logger.WarnContext(ctx, "timed out forwarding notification", "channel", channel)
	}
}

func trySignal(ctx context.Context, ch chan struct{}) bool {
	select {
	case ch <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	case <-time.After(dbNotifierSendTimeout):
		return false
	}
}

func notificationMessage(notifierID string, payload string) string {
	return notifierID + recordSeparator + payload
}

func parseNotification(s string) (notifierID, payload string) {
	notifierID, payload, _ = strings.Cut(s, recordSeparator)
	return notifierID, payload
}

// newNotifier picks the notifier backend. 'auto' follows the database
// type.
func newNotifier(
	cfg *Config,
	db *gorm.DB,
	events *notifierEvents,
	logger *slog.Logger,
) (Notifier, error) {
	notifyID, err := generateRandomHexString(16)
	if err != nil {
		return nil, err
	}
	log := logger.With(loggerNameKey, "notifier", "notify_id", notifyID)

	backend := notifierBackendAuto
	if cfg.Notifier != nil && cfg.Notifier.Backend != "" {
		backend = cfg.Notifier.Backend
	}
	if backend == notifierBackendAuto {
		backend = notifierBackendSQLite
		if cfg.DatabaseType == dbTypePostgres {
			backend = notifierBackendPostgres
		}
	}

	switch backend {
	case notifierBackendSQLite:
		return &sqliteNotifier{id: notifyID, events: events, logger: log}, nil
	case notifierBackendPostgres:
		if cfg.DatabaseType != dbTypePostgres {
			return nil, errors.New("postgres notifier requires a postgres database")
		}
		return &postgresNotifier{
			id:       notifyID,
			db:       db,
			database: cfg.Database,
			events:   events,
			logger:   log,
		}, nil
	case notifierBackendRedis:
		opts, err := redis.ParseURL(cfg.Notifier.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis URL: %w", err)
		}
		return &redisNotifier{
			id:     notifyID,
			client: redis.NewClient(opts),
			events: events,
			logger: log,
		}, nil
	default:
		return nil, fmt.Errorf("invalid notifier backend: %q", backend)
	}
}

// sqliteNotifier serves a single instance, so only Stop does anything.
type sqliteNotifier struct {
	id     string
	events *notifierEvents
	logger *slog.Logger
}

func (s *sqliteNotifier) ID() string { return s.id }

func (s *sqliteNotifier) ChannelsChanged(_ context.Context, guildID string) bool {
	s.logger.Debug("channels changed", "guild_id", guildID)
	return true
}

func (s *sqliteNotifier) ReloadRuntimeConfig(context.Context) bool {
	return true
}

func (s *sqliteNotifier) Stop(ctx context.Context) bool {
	s.logger.InfoContext(ctx, "notifying stop signal")
	if !trySignal(ctx, s.events.stop) {
		s.logger.WarnContext(ctx, "timeout sending stop signal")
		return false
	}
	return true
}

func (s *sqliteNotifier) Listen(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (s *sqliteNotifier) Close() error { return nil }

// postgresNotifier sends with pg_notify over the gorm connection and
// listens on a dedicated pgx pool.
type postgresNotifier struct {
	id       string
	db       *gorm.DB
	database string
	events   *notifierEvents
	logger   *slog.Logger
}

func (p *postgresNotifier) ID() string { return p.id }

func (p *postgresNotifier) notify(ctx context.Context, channel string, payload string) bool {
	err := p.db.WithContext(ctx).Exec(
		"SELECT pg_notify(?, ?)",
		channel,
		notificationMessage(p.id, payload),
	).Error
	if err != nil {
		p.logger.ErrorContext(ctx, "error sending NOTIFY", "channel", channel, tint.Err(err))
		return false
	}
	p.logger.DebugContext(ctx, "sent notification", "channel", channel, "payload", payload)
	return true
}

func (p *postgresNotifier) ChannelsChanged(ctx context.Context, guildID string) bool {
	return p.notify(ctx, notifyChannelChannelsChanged, guildID)
}

func (p *postgresNotifier) ReloadRuntimeConfig(ctx context.Context) bool {
	return p.notify(ctx, notifyChannelRuntimeConfig, "")
}

func (p *postgresNotifier) Stop(ctx context.Context) bool {
	sent := p.notify(ctx, notifyChannelStop, "")
	return trySignal(ctx, p.events.stop) && sent
}

func (p *postgresNotifier) Listen(ctx context.Context) error {
	config, err := pgxpool.ParseConfig(p.database)
	if err != nil {
		return fmt.Errorf("error parsing database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("error creating connection pool: %w", err)
	}
	defer pool.Close()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("error acquiring connection: %w", err)
	}
	defer conn.Release()

	for _, channel := range notifyChannels {
		if _, err = conn.Exec(ctx, "LISTEN "+channel); err != nil {
			return fmt.Errorf("error listening on %s: %w", channel, err)
		}
	}
	p.logger.InfoContext(ctx, "started listening", "channels", notifyChannels)

	for ctx.Err() == nil {
		notification, e := conn.Conn().WaitForNotification(ctx)
		if e != nil {
			if ctx.Err() != nil {
				break
			}
			p.logger.ErrorContext(ctx, "error waiting for notification", tint.Err(e))
			select {
			case <-ctx.Done():
			case <-time.After(notifierRetryInterval):
			}
			continue
		}
		sender, payload := parseNotification(notification.Payload)
		if sender == p.id {
			continue
		}
		p.events.deliver(ctx, p.logger, notification.Channel, payload)
	}
	return nil
}

func (p *postgresNotifier) Close() error { return nil }

// redisNotifier uses redis pub/sub, for deployments where instances
// don't share a postgres database.
type redisNotifier struct {
	id     string
	client *redis.Client
	events *notifierEvents
	logger *slog.Logger
}

func (r *redisNotifier) ID() string { return r.id }

func (r *redisNotifier) publish(ctx context.Context, channel string, payload string) bool {
	err := r.client.Publish(ctx, channel, notificationMessage(r.id, payload)).Err()
	if err != nil {
		r.logger.ErrorContext(ctx, "error publishing", "channel", channel, tint.Err(err))
		return false
	}
	return true
}

func (r *redisNotifier) ChannelsChanged(ctx context.Context, guildID string) bool {
	return r.publish(ctx, notifyChannelChannelsChanged, guildID)
}

func (r *redisNotifier) ReloadRuntimeConfig(ctx context.Context) bool {
	return r.publish(ctx, notifyChannelRuntimeConfig, "")
}

func (r *redisNotifier) Stop(ctx context.Context) bool {
	sent := r.publish(ctx, notifyChannelStop, "")
	return trySignal(ctx, r.events.stop) && sent
}

func (r *redisNotifier) Listen(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	sub := r.client.Subscribe(ctx, notifyChannels...)
	defer func() {
		_ = sub.Close()
	}()
	r.logger.InfoContext(ctx, "subscribed", "channels", notifyChannels)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			sender, payload := parseNotification(msg.Payload)
			if sender == r.id {
				continue
			}
			r.events.deliver(ctx, r.logger, msg.Channel, payload)
		}
	}
}

func (r *redisNotifier) Close() error {
	return r.client.Close()
}

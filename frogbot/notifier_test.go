package frogbot

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationMessage(t *testing.T) {
	msg := notificationMessage("abc", "guild-1")
	id, payload := parseNotification(msg)
	assert.Equal(t, "abc", id)
	assert.Equal(t, "guild-1", payload)

	id, payload = parseNotification(notificationMessage("abc", ""))
	assert.Equal(t, "abc", id)
	assert.Empty(t, payload)

	id, payload = parseNotification("no-separator")
	assert.Equal(t, "no-separator", id)
	assert.Empty(t, payload)
}

func TestNewNotifier(t *testing.T) {
	testCases := []struct {
		name      string
		dbType    string
		notifier  *NotifierConfig
		expectErr bool
		expected  any
	}{
		{name: "default sqlite", dbType: dbTypeSQLite, expected: &sqliteNotifier{}},
		{
			name:     "auto postgres",
			dbType:   dbTypePostgres,
			notifier: &NotifierConfig{Backend: notifierBackendAuto},
			expected: &postgresNotifier{},
		},
		{
			name:      "postgres on sqlite",
			dbType:    dbTypeSQLite,
			notifier:  &NotifierConfig{Backend: notifierBackendPostgres},
			expectErr: true,
		},
		{
			name:     "redis",
			dbType:   dbTypeSQLite,
			notifier: &NotifierConfig{Backend: notifierBackendRedis, RedisURL: "redis://localhost:6379/0"},
			expected: &redisNotifier{},
		},
		{
			name:      "bad redis url",
			dbType:    dbTypeSQLite,
			notifier:  &NotifierConfig{Backend: notifierBackendRedis, RedisURL: "http://nope"},
			expectErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				cfg := DefaultTestConfig(t)
				cfg.DatabaseType = tc.dbType
				cfg.Notifier = tc.notifier

				n, err := newNotifier(cfg, nil, newNotifierEvents(), slog.Default())
				if tc.expectErr {
					assert.Error(t, err)
					return
				}
				require.NoError(t, err)
				t.Cleanup(func() { _ = n.Close() })
				assert.IsType(t, tc.expected, n)
				assert.Len(t, n.ID(), 32)
			},
		)
	}
}

func TestSQLiteNotifier(t *testing.T) {
	events := newNotifierEvents()
	n, err := newNotifier(DefaultTestConfig(t), nil, events, slog.Default())
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, n.ChannelsChanged(ctx, "g1"))
	assert.True(t, n.ReloadRuntimeConfig(ctx))
	assert.Empty(t, events.channelsChanged)

	assert.True(t, n.Stop(ctx))
	select {
	case <-events.stop:
	default:
		t.Fatal("expected a local stop signal")
	}

	listenCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, n.Listen(listenCtx))
}

func TestNotifierEvents_Deliver(t *testing.T) {
	ctx := context.Background()
	events := newNotifierEvents()
	logger := slog.Default()

	events.deliver(ctx, logger, notifyChannelChannelsChanged, "g1")
	events.deliver(ctx, logger, notifyChannelRuntimeConfig, "")
	events.deliver(ctx, logger, notifyChannelStop, "")
	events.deliver(ctx, logger, "unknown", "x")

	assert.Equal(t, "g1", <-events.channelsChanged)
	assert.Len(t, events.runtimeConfig, 1)
	assert.Len(t, events.stop, 1)

	// a full signal channel gives up once ctx is done
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, trySignal(cancelled, events.stop))
}

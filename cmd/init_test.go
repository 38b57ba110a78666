package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AllegroVivo/FrogBot/frogbot"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// executeRoot runs the root command with args and stdin, returning its
// output.
func executeRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(
		func() {
			rootCmd.SetOut(nil)
			rootCmd.SetErr(nil)
			rootCmd.SetIn(nil)
			rootCmd.SetArgs(nil)
		},
	)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mockPasswords(t *testing.T, passwords ...string) {
	t.Helper()
	i := 0
	customPasswordReader = func() ([]byte, error) {
		if i >= len(passwords) {
			return nil, errors.New("no more passwords")
		}
		pw := passwords[i]
		i++
		return []byte(pw), nil
	}
	t.Cleanup(func() { customPasswordReader = nil })
}

func TestInitCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "frogbot.sqlite3")
	t.Setenv("FROG_DATABASE_TYPE", "sqlite")
	t.Setenv("FROG_DATABASE", dbPath)

	mockPasswords(t, "short", "short", "ribbit123", "nope", "ribbit123", "ribbit123")

	output, err := executeRoot(t, "frogadmin\n", "init")
	require.NoError(t, err, output)

	assert.Contains(t, output, "Admin credentials are not set. Let's set them up.")
	assert.Contains(t, output, "Enter admin username:")
	assert.Contains(t, output, "Password must be at least 8 characters")
	assert.Contains(t, output, "Passwords do not match")
	assert.Contains(t, output, "Admin credentials set successfully")
	assert.Contains(t, output, "Initialization complete")

	db, err := gorm.Open(sqlite.Open(dbPath))
	require.NoError(t, err)
	t.Cleanup(
		func() {
			if sqlDB, _ := db.DB(); sqlDB != nil {
				_ = sqlDB.Close()
			}
		},
	)

	var rc frogbot.RuntimeConfig
	require.NoError(t, db.First(&rc).Error)
	assert.Equal(t, "frogadmin", rc.AdminUsername)
	assert.NotEqual(t, "ribbit123", rc.AdminPassword)

	mg := db.Migrator()
	assert.True(t, mg.HasTable(&frogbot.GuildConfig{}))
	assert.True(t, mg.HasTable(&frogbot.ProfileRecord{}))
	assert.True(t, mg.HasTable(&frogbot.AdditionalImageRecord{}))
	assert.True(t, mg.HasTable(&frogbot.InteractionLog{}))

	// a second run leaves the credentials alone
	output, err = executeRoot(t, "", "init")
	require.NoError(t, err)
	assert.Contains(t, output, "Admin credentials are already set.")
}

func TestInitCommand_EmptyUsername(t *testing.T) {
	t.Setenv("FROG_DATABASE_TYPE", "sqlite")
	t.Setenv("FROG_DATABASE", filepath.Join(t.TempDir(), "frogbot.sqlite3"))
	mockPasswords(t)

	_, err := executeRoot(t, "\n", "init")
	assert.Error(t, err)
}

func TestInitCommand_TooManyAttempts(t *testing.T) {
	t.Setenv("FROG_DATABASE_TYPE", "sqlite")
	t.Setenv("FROG_DATABASE", filepath.Join(t.TempDir(), "frogbot.sqlite3"))
	mockPasswords(t, "aaaaaaaa", "b", "aaaaaaaa", "b", "aaaaaaaa", "b")

	_, err := executeRoot(t, "frogadmin\n", "init")
	assert.ErrorContains(t, err, "too many failed attempts")
}

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AllegroVivo/FrogBot/frogbot"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// passwordReader reads a password without echoing it. Tests replace it.
type passwordReader func() ([]byte, error)

var customPasswordReader passwordReader

const maxPasswordAttempts = 3

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database tables and set the admin API credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if cfg.Database == "" {
			return errors.New(
				"database not set (must be a connection string or sqlite file path)",
			)
		}
		db, err := frogbot.CreateDB(ctx, cfg.DatabaseType, cfg.Database)
		if err != nil {
			return fmt.Errorf("error creating database: %w", err)
		}
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			defer func() { _ = sqlDB.Close() }()
		}

		rc, err := frogbot.LoadRuntimeConfig(ctx, db)
		if err != nil {
			return err
		}
		if rc.AdminUsername != "" && rc.AdminPassword != "" {
			fmt.Fprintln(out, "Admin credentials are already set.")
			fmt.Fprintln(out, "Initialization complete. Start the bot with the 'run' subcommand.")
			return nil
		}

		fmt.Fprintln(out, "Admin credentials are not set. Let's set them up.")
		username, password, err := promptCredentials(cmd.InOrStdin(), out)
		if err != nil {
			return err
		}
		if _, err = frogbot.SetAdminCredentials(ctx, db, username, password); err != nil {
			return err
		}
		fmt.Fprintln(out, "Admin credentials set successfully.")
		fmt.Fprintln(out, "Initialization complete. Start the bot with the 'run' subcommand.")
		return nil
	},
}

func promptCredentials(in io.Reader, out io.Writer) (username string, password string, err error) {
	readPassword := customPasswordReader
	if readPassword == nil {
		readPassword = func() ([]byte, error) {
			return term.ReadPassword(int(os.Stdin.Fd()))
		}
	}

	fmt.Fprint(out, "Enter admin username: ")
	username, err = bufio.NewReader(in).ReadString('\n')
	username = strings.TrimSpace(username)
	if username == "" {
		if err != nil {
			return "", "", fmt.Errorf("error reading username: %w", err)
		}
		return "", "", errors.New("username can't be empty")
	}

	for attempt := 0; attempt < maxPasswordAttempts; attempt++ {
		fmt.Fprint(out, "Enter admin password: ")
		pw, readErr := readPassword()
		fmt.Fprintln(out)
		if readErr != nil {
			return "", "", fmt.Errorf("error reading password: %w", readErr)
		}

		fmt.Fprint(out, "Confirm admin password: ")
		confirm, readErr := readPassword()
		fmt.Fprintln(out)
		if readErr != nil {
			return "", "", fmt.Errorf("error reading password: %w", readErr)
		}

		switch {
		case string(pw) != string(confirm):
			fmt.Fprintln(out, "Passwords do not match. Please try again.")
		case len(pw) < 8:
			fmt.Fprintln(out, "Password must be at least 8 characters. Please try again.")
		default:
			return username, string(pw), nil
		}
	}
	return "", "", errors.New("too many failed attempts")
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(initCmd)
}

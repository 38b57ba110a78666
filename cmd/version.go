package cmd

import (
	"fmt"

	"github.com/AllegroVivo/FrogBot/frogbot"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of the application",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(
			cmd.OutOrStdout(),
			"version=%s commit=%s built=%s\n",
			frogbot.Version,
			frogbot.CommitSHA,
			frogbot.BuildTime,
		)
	},
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(versionCmd)
}

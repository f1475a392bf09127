package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/peerline/internal/cli"
	"github.com/example/peerline/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "peerline",
		Short:   "Peerline - escalation desk for flagged community content",
		Version: version.String(),
		Long: `Peerline tracks escalations of flagged content from detection to resolution.
Moderators claim pending escalations, annotate them while they work, and
resolve them with a closing note.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.Bootstrap(cmd)
		},
	}

	rootCmd.PersistentFlags().String("actor", "", "Acting moderator (overrides config and PEERLINE_ACTOR)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default .peerline/config.yaml)")

	rootCmd.AddCommand(cli.EscalationCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

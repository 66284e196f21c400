package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/guppyfunds/consumer/internal/logging"
)

// NewRootCommand creates the guppy command with every subcommand registered.
func NewRootCommand() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "guppy",
		Short: "Ingest Amex and Wells Fargo CSV exports",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return logging.Setup(os.Stderr, logLevel, false)
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newDetectCommand())
	rootCmd.AddCommand(newIngestCommand())

	return rootCmd
}

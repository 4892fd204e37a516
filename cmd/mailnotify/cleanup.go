package main

import (
	"github.com/cristianoliveira/mailnotify/internal/app"
	"github.com/cristianoliveira/mailnotify/internal/config"
	"github.com/spf13/cobra"
)

// NewCleanupCmd creates the cleanup command with explicit dependencies.
func NewCleanupCmd(client app.CleanupClient) *cobra.Command {
	if client == nil {
		panic("NewCleanupCmd: client dependency cannot be nil")
	}

	var daysFlag int
	var dryRunFlag bool

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove old delivery records",
		Long: `Remove old delivery records.

The daemon prunes the journal on start; this command does the same on demand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.NewCleanupUseCase(client).Execute(cmd.Context(), app.CleanupInput{
				Days:         daysFlag,
				DryRun:       dryRunFlag,
				Output:       cmd.OutOrStdout(),
				GetConfigInt: config.GetInt,
			})
		},
	}

	// Default days 0 means "use config value"
	cleanupCmd.Flags().IntVar(&daysFlag, "days", 0, "Remove deliveries older than N days (default: MAILNOTIFY_JOURNAL_RETENTION_DAYS)")
	cleanupCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Show how many records would be removed")

	return cleanupCmd
}

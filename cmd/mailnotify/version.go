package main

import (
	"fmt"

	"github.com/cristianoliveira/mailnotify/internal/version"
	"github.com/spf13/cobra"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Show version information.

USAGE:
    mailnotify version`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "mailnotify v%s\n", version.String())
			return err
		},
	}
}

package main

import (
	"os"
	"strconv"

	"github.com/cristianoliveira/mailnotify/internal/app"
	"github.com/spf13/cobra"
)

const historyCommandLong = `Show recent deliveries, newest first.

USAGE:
    mailnotify history [OPTIONS]

OPTIONS:
    -n, --limit N   Show at most N deliveries (default: 20, 0 for all)
    --width N       Wrap rows to N columns (default: $COLUMNS)`

// NewHistoryCmd creates the history command with explicit dependencies.
func NewHistoryCmd(client app.HistoryClient) *cobra.Command {
	if client == nil {
		panic("NewHistoryCmd: client dependency cannot be nil")
	}
	var limit, width int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent deliveries",
		Long:  historyCommandLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := width
			if w == 0 {
				w, _ = strconv.Atoi(os.Getenv("COLUMNS"))
			}
			return app.NewHistoryUseCase(client).Execute(cmd.Context(), app.HistoryInput{
				Limit:  limit,
				Width:  w,
				Output: cmd.OutOrStdout(),
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Show at most N deliveries")
	historyCmd.Flags().IntVar(&width, "width", 0, "Wrap rows to N columns")
	return historyCmd
}

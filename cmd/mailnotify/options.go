package main

import (
	"github.com/cristianoliveira/mailnotify/internal/app"
	"github.com/spf13/cobra"
)

const (
	optionsCommandLong = `Show or change the engine options.

Running 'mailnotify options' prints every option and records that the options
have been reviewed, which stops the daemon from printing setup guidance.

USAGE:
    mailnotify options
    mailnotify options set <key> <json-value>

KEYS:
    scriptType               "simple" or "extended"
    connectionType           "connectionless" or "connectionbased"
    foldersToCheck           [{"accountId":"work","path":"/INBOX"}]
    optionsPageHasBeenShown  true or false`
	setCommandLong = `Validate and store one option, then tell a running daemon to reload.

USAGE:
    mailnotify options set <key> <json-value>

EXAMPLES:
    mailnotify options set scriptType '"extended"'
    mailnotify options set foldersToCheck '[{"accountId":"work","path":"/INBOX"}]'`
	reloadCommandLong = `Ask a running daemon to re-read its options.

USAGE:
    mailnotify reload`
)

// NewOptionsCmd creates the options command with explicit dependencies.
func NewOptionsCmd(client app.OptionsClient, notify func() error) *cobra.Command {
	if client == nil {
		panic("NewOptionsCmd: client dependency cannot be nil")
	}
	uc := app.NewOptionsUseCase(client, notify)

	optionsCmd := &cobra.Command{
		Use:   "options",
		Short: "Show or change the engine options",
		Long:  optionsCommandLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return uc.Show(cmd.Context(), cmd.OutOrStdout())
		},
	}
	optionsCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <json-value>",
		Short: "Store one option",
		Long:  setCommandLong,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return uc.Set(cmd.Context(), args[0], args[1])
		},
	})
	return optionsCmd
}

// NewReloadCmd creates the reload command.
func NewReloadCmd(notify func() error) *cobra.Command {
	if notify == nil {
		panic("NewReloadCmd: notify dependency cannot be nil")
	}
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask the daemon to reload its options",
		Long:  reloadCommandLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RequestReload(notify)
		},
	}
}

package main

import (
	"fmt"
	"strings"

	"github.com/cristianoliveira/mailnotify/internal/colors"
	"github.com/cristianoliveira/mailnotify/internal/config"
	"github.com/cristianoliveira/mailnotify/internal/logging"
	"github.com/cristianoliveira/mailnotify/internal/version"
	"github.com/spf13/cobra"
)

// commandOrder is the order commands appear in help output.
var commandOrder = []string{
	"run",
	"options",
	"reload",
	"history",
	"cleanup",
	"accounts",
	"version",
}

// NewRootCmd builds the command tree on top of deps.
func NewRootCmd(deps *runtimeDeps) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mailnotify",
		Short:         "Tell an external program about new and read mail.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.Load()
			colors.SetDebug(config.GetBool("debug", false))
			colors.SetQuiet(config.GetBool("quiet", false))
			return logging.InitGlobal(cmd.Name())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return logging.ShutdownGlobal()
		},
	}
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	defaultHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != rootCmd {
			defaultHelp(cmd, args)
			return
		}
		printHelpText(cmd)
	})

	rootCmd.AddCommand(
		NewRunCmd(deps.StartDaemon),
		NewOptionsCmd(deps, deps.NotifyDaemon),
		NewReloadCmd(deps.NotifyDaemon),
		NewHistoryCmd(deps),
		NewCleanupCmd(deps),
		NewAccountsCmd(deps.Accounts, deps.Passwords),
		NewVersionCmd(),
	)
	return rootCmd
}

func printHelpText(cmd *cobra.Command) {
	var cmdLines []string
	for _, name := range commandOrder {
		for _, c := range cmd.Commands() {
			if c.Name() == name {
				cmdLines = append(cmdLines, fmt.Sprintf("    %-16s %s", c.Name(), c.Short))
				break
			}
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), `mailnotify v%s

Tell an external program about new and read mail.

USAGE:
    mailnotify [COMMAND] [OPTIONS]

COMMANDS:
%s

OPTIONS:
    -h, --help      Show help message

CONFIGURATION:
    $XDG_CONFIG_HOME/mailnotify/config.toml, overridden by MAILNOTIFY_* variables.
`, version.String(), strings.Join(cmdLines, "\n"))
}

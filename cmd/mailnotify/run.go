package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cristianoliveira/mailnotify/internal/app"
	"github.com/cristianoliveira/mailnotify/internal/colors"
	"github.com/cristianoliveira/mailnotify/internal/config"
	"github.com/cristianoliveira/mailnotify/internal/control"
	"github.com/cristianoliveira/mailnotify/internal/delivery"
	"github.com/cristianoliveira/mailnotify/internal/domain"
	apperrors "github.com/cristianoliveira/mailnotify/internal/errors"
	"github.com/cristianoliveira/mailnotify/internal/logging"
	"github.com/cristianoliveira/mailnotify/internal/mail/imap"
	"github.com/spf13/cobra"
)

const runCommandLong = `Run the notification daemon.

Watches the folders listed in the foldersToCheck option and delivers a payload
to the native host named by consumer_name whenever mail arrives or is read.

USAGE:
    mailnotify run

SIGNALS:
    SIGHUP           Reload options and configuration (same as 'mailnotify reload')
    SIGINT, SIGTERM  Stop`

// NewRunCmd creates the run command. start blocks until the daemon stops.
func NewRunCmd(start func(ctx context.Context) error) *cobra.Command {
	if start == nil {
		panic("NewRunCmd: start dependency cannot be nil")
	}
	return &cobra.Command{
		Use:   "run",
		Short: "Run the notification daemon",
		Long:  runCommandLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return start(ctx)
		},
	}
}

// StartDaemon wires the daemon from configuration and runs it until ctx is done.
func (d *runtimeDeps) StartDaemon(ctx context.Context) error {
	st, err := d.Storage()
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	accounts, err := d.Accounts()
	if err != nil {
		return err
	}

	mail := imap.NewClient(accounts, d.Credentials(), imap.WithPageSize(config.GetInt("imap_page_size", imap.DefaultPageSize)))
	defer mail.Close()

	transport := delivery.NewNativeTransport(hostResolver(), consumerTimeout())
	reload := func() app.Settings {
		config.Load()
		transport.Configure(hostResolver(), consumerTimeout())
		return daemonSettings()
	}

	stateDir := config.Get("state_dir", "")
	daemon := app.NewDaemon(app.DaemonDeps{
		Options:      st,
		Journal:      st,
		Mail:         mail,
		Transport:    transport,
		Settings:     daemonSettings(),
		Reload:       reload,
		RetryDelay:   config.GetDuration("startup_retry_delay", time.Second),
		PollInterval: config.GetDuration("poll_interval", imap.DefaultPollInterval),
		Retention:    time.Duration(config.GetInt("journal_retention_days", 30)) * 24 * time.Hour,
		ControlFiles: []string{config.Path(), control.StampPath(stateDir)},
		Errors:       apperrors.NewDefaultCLIHandler(),
		Logger:       logging.GetGlobal(),
	})

	colors.LogInfo(fmt.Sprintf("mailnotify running with %d account(s)", len(accounts)))
	return daemon.Run(ctx)
}

// hostResolver picks the consumer command override or the manifest directory.
func hostResolver() delivery.HostResolver {
	if command := config.Get("consumer_command", ""); command != "" {
		return delivery.CommandResolver(command)
	}
	return delivery.ManifestResolver(config.Get("native_hosts_dir", ""))
}

func consumerTimeout() time.Duration {
	return config.GetDuration("consumer_timeout", delivery.DefaultTimeout)
}

func daemonSettings() app.Settings {
	return app.Settings{
		HostName:      config.Get("consumer_name", delivery.DefaultHostName),
		JunkOnArrival: domain.ParseJunkPolicy(config.Get("junk_on_arrival", "")),
	}
}

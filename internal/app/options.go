package app

import (
	"context"
	"fmt"
	"io"

	"github.com/cristianoliveira/mailnotify/internal/colors"
	"github.com/cristianoliveira/mailnotify/internal/options"
	"github.com/cristianoliveira/mailnotify/internal/render"
)

// OptionsClient defines dependencies required by options commands.
type OptionsClient interface {
	Raw(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
	MarkShown(ctx context.Context) error
}

// OptionsUseCase coordinates options command behavior.
type OptionsUseCase struct {
	client OptionsClient
	notify func() error
}

// NewOptionsUseCase creates an options use-case. notify tells a running daemon that the
// options changed.
func NewOptionsUseCase(client OptionsClient, notify func() error) *OptionsUseCase {
	if client == nil {
		panic("NewOptionsUseCase: client dependency cannot be nil")
	}
	if notify == nil {
		notify = func() error { return nil }
	}
	return &OptionsUseCase{client: client, notify: notify}
}

// Show writes the stored options and records that they have been reviewed.
func (u *OptionsUseCase) Show(ctx context.Context, out io.Writer) error {
	raw, err := u.client.Raw(ctx)
	if err != nil {
		return fmt.Errorf("failed to load options: %w", err)
	}
	if _, err := io.WriteString(out, render.Options(options.Keys, raw)); err != nil {
		return err
	}
	if err := u.client.MarkShown(ctx); err != nil {
		return fmt.Errorf("failed to mark options as shown: %w", err)
	}
	return nil
}

// Set validates and stores one option, then asks a running daemon to reload.
func (u *OptionsUseCase) Set(ctx context.Context, key, value string) error {
	if err := u.client.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	if err := u.notify(); err != nil {
		colors.Warning(fmt.Sprintf("option saved but the daemon was not notified: %v", err))
		return nil
	}
	colors.Success(fmt.Sprintf("%s updated", key))
	return nil
}

// RequestReload asks a running daemon to re-read its options.
func RequestReload(notify func() error) error {
	if err := notify(); err != nil {
		return fmt.Errorf("failed to signal reload: %w", err)
	}
	colors.Success("reload requested")
	return nil
}

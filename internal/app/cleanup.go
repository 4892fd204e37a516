package app

import (
	"context"
	"fmt"
	"io"
	"time"
)

// CleanupClient defines dependencies required by the cleanup command.
type CleanupClient interface {
	CountDeliveriesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	PruneDeliveries(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupUseCase prunes old delivery records.
type CleanupUseCase struct {
	client CleanupClient
	now    func() time.Time
}

// NewCleanupUseCase creates a cleanup use-case.
func NewCleanupUseCase(client CleanupClient) *CleanupUseCase {
	if client == nil {
		panic("NewCleanupUseCase: client dependency cannot be nil")
	}
	return &CleanupUseCase{client: client, now: time.Now}
}

// CleanupInput holds parsed cleanup options.
type CleanupInput struct {
	Days         int
	DryRun       bool
	Output       io.Writer
	GetConfigInt func(key string, defaultValue int) int
}

// Execute removes deliveries older than the given number of days. Zero days means the
// configured journal_retention_days.
func (u *CleanupUseCase) Execute(ctx context.Context, input CleanupInput) error {
	days := input.Days
	if days == 0 && input.GetConfigInt != nil {
		days = input.GetConfigInt("journal_retention_days", 30)
	}
	if days <= 0 {
		return fmt.Errorf("days must be a positive integer")
	}
	out := input.Output
	if out == nil {
		out = io.Discard
	}

	cutoff := u.now().Add(-time.Duration(days) * 24 * time.Hour)
	if input.DryRun {
		n, err := u.client.CountDeliveriesBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		fmt.Fprintf(out, "Would remove %d deliveries older than %d days\n", n, days)
		return nil
	}

	n, err := u.client.PruneDeliveries(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Fprintf(out, "Removed %d deliveries older than %d days\n", n, days)
	return nil
}

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cristianoliveira/mailnotify/internal/domain"
	"github.com/cristianoliveira/mailnotify/internal/render"
)

// HistoryClient defines dependencies required by the history command.
type HistoryClient interface {
	ListDeliveries(ctx context.Context, limit int) ([]domain.DeliveryRecord, error)
}

// HistoryInput holds parsed history options.
type HistoryInput struct {
	Limit  int
	Width  int
	Output io.Writer
	Now    time.Time
}

// HistoryUseCase renders the delivery journal.
type HistoryUseCase struct {
	client HistoryClient
}

// NewHistoryUseCase creates a history use-case.
func NewHistoryUseCase(client HistoryClient) *HistoryUseCase {
	if client == nil {
		panic("NewHistoryUseCase: client dependency cannot be nil")
	}
	return &HistoryUseCase{client: client}
}

// Execute writes the latest deliveries, newest first.
func (u *HistoryUseCase) Execute(ctx context.Context, input HistoryInput) error {
	if input.Limit < 0 {
		return fmt.Errorf("history: limit must not be negative")
	}
	records, err := u.client.ListDeliveries(ctx, input.Limit)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}
	_, err = io.WriteString(input.Output, render.History(records, now, input.Width))
	return err
}

package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianoliveira/mailnotify/internal/domain"
	"github.com/cristianoliveira/mailnotify/internal/ports"
	"github.com/google/uuid"
)

var _ ports.DeliveryJournal = (*Storage)(nil)

// RecordDelivery appends rec to the journal. Missing ids and timestamps are filled in.
func (s *Storage) RecordDelivery(ctx context.Context, rec domain.DeliveryRecord) error {
	if !rec.Event.IsValid() || rec.Status == "" {
		return fmt.Errorf("sqlite storage: record delivery: %w", ErrInvalidRecord)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries (id, timestamp, event, mode, transport, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Timestamp.UTC().Format(timeLayout),
		string(rec.Event),
		string(rec.Mode),
		string(rec.Transport),
		string(rec.Status),
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("sqlite storage: record delivery: %w", err)
	}
	return nil
}

// ListDeliveries returns up to limit records, newest first. A non-positive limit returns all.
func (s *Storage) ListDeliveries(ctx context.Context, limit int) ([]domain.DeliveryRecord, error) {
	query := `SELECT id, timestamp, event, mode, transport, status, error FROM deliveries ORDER BY timestamp DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite storage: list deliveries: %w", err)
	}
	defer rows.Close()

	var records []domain.DeliveryRecord
	for rows.Next() {
		var rec domain.DeliveryRecord
		var ts, event, mode, tr, status string
		if err := rows.Scan(&rec.ID, &ts, &event, &mode, &tr, &status, &rec.Error); err != nil {
			return nil, fmt.Errorf("sqlite storage: scan delivery: %w", err)
		}
		parsed, err := time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("sqlite storage: parse delivery timestamp %q: %w", ts, err)
		}
		rec.Timestamp = parsed
		rec.Event = domain.EventKind(event)
		rec.Mode = domain.OperatingMode(mode)
		rec.Transport = domain.TransportMode(tr)
		rec.Status = domain.DeliveryStatus(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite storage: list deliveries: %w", err)
	}
	return records, nil
}

// PruneDeliveries removes records older than cutoff and returns how many were removed.
func (s *Storage) PruneDeliveries(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM deliveries WHERE timestamp < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("sqlite storage: prune deliveries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite storage: prune rows affected: %w", err)
	}
	return n, nil
}

// CountDeliveriesBefore returns how many records PruneDeliveries(cutoff) would remove.
func (s *Storage) CountDeliveriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deliveries WHERE timestamp < ?`, cutoff.UTC().Format(timeLayout)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite storage: count deliveries: %w", err)
	}
	return n, nil
}

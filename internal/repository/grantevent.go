package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gamaccess/gamaccess/internal/model"
)

// BulkInsertGrantEvents inserts a batch of audit records in one
// round trip. Duplicate ids are skipped so a re-delivered stream batch
// stays idempotent.
func (r *Repository) BulkInsertGrantEvents(ctx context.Context, events []*model.GrantEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO grant_events
			(id, email, network_code, status, user_id, role_id, error, requested_by, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	now := time.Now().UTC()
	for _, e := range events {
		batch.Queue(query,
			e.ID,
			e.Email,
			e.NetworkCode,
			string(e.Status),
			e.UserID,
			e.RoleID,
			e.Error,
			e.RequestedBy,
			e.OccurredAt,
			now,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert grant event: %w", err)
		}
	}
	return nil
}

// ListGrantEvents returns the most recent audit records, newest first.
func (r *Repository) ListGrantEvents(ctx context.Context, limit int) ([]*model.GrantEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	query := `
		SELECT id, email, network_code, status, user_id, role_id, error, requested_by, occurred_at, created_at
		FROM grant_events
		ORDER BY occurred_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list grant events: %w", err)
	}
	defer rows.Close()

	var events []*model.GrantEvent
	for rows.Next() {
		var e model.GrantEvent
		var status string
		err := rows.Scan(
			&e.ID,
			&e.Email,
			&e.NetworkCode,
			&status,
			&e.UserID,
			&e.RoleID,
			&e.Error,
			&e.RequestedBy,
			&e.OccurredAt,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan grant event: %w", err)
		}
		e.Status = model.GrantStatus(status)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grant events: %w", err)
	}
	return events, nil
}

package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore persists events in consent_audit_events.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts event. Re-delivery of the same event id is ignored.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO consent_audit_events (
			id, occurred_at, action, device_id, categories, source,
			region, country, policy_version, reason,
			ip_hash, ip_prefix, device, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Timestamp,
		string(event.Action),
		event.DeviceID,
		pq.Array(event.Categories),
		event.Source,
		event.Region,
		event.Country,
		event.PolicyVersion,
		event.Reason,
		event.IPHash,
		event.IPPrefix,
		event.Device,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert consent audit event: %w", err)
	}
	return nil
}

// ListByDevice returns the events of one device, newest first.
func (s *PostgresStore) ListByDevice(ctx context.Context, deviceID string) ([]Event, error) {
	query := `
		SELECT id, occurred_at, action, device_id, categories, source,
			   region, country, policy_version, reason,
			   ip_hash, ip_prefix, device, request_id
		FROM consent_audit_events
		WHERE device_id = $1
		ORDER BY occurred_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("query consent audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e      Event
			action string
		)
		if err := rows.Scan(
			&e.ID,
			&e.Timestamp,
			&action,
			&e.DeviceID,
			pq.Array(&e.Categories),
			&e.Source,
			&e.Region,
			&e.Country,
			&e.PolicyVersion,
			&e.Reason,
			&e.IPHash,
			&e.IPPrefix,
			&e.Device,
			&e.RequestID,
		); err != nil {
			return nil, fmt.Errorf("scan consent audit event: %w", err)
		}
		e.Action = Action(action)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consent audit events: %w", err)
	}
	return events, nil
}

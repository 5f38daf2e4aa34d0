package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Recorder persists and queries audit events
type Recorder interface {
	Record(ctx context.Context, event *Event) error
	Search(ctx context.Context, filter *SearchFilter) ([]*Event, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Migrate creates the audit_events table and its indexes
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS audit_events (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			event_type VARCHAR(100) NOT NULL,
			status VARCHAR(20) NOT NULL,
			actor_id VARCHAR(64),
			actor_email VARCHAR(255),
			organization_id VARCHAR(64),
			request_id VARCHAR(100),
			ip_address VARCHAR(45),
			method VARCHAR(10),
			path TEXT,
			status_code INTEGER,
			duration_ms BIGINT,
			metadata JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_actor_id ON audit_events(actor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_organization_id ON audit_events(organization_id)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run audit migration: %w", err)
		}
	}
	return nil
}

// PostgresRecorder stores audit events in PostgreSQL
type PostgresRecorder struct {
	db *sql.DB
}

// NewPostgresRecorder creates a new PostgresRecorder
func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Record inserts an audit event
func (r *PostgresRecorder) Record(ctx context.Context, event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var metadataJSON []byte
	if event.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO audit_events (
			timestamp, event_type, status, actor_id, actor_email,
			organization_id, request_id, ip_address, method, path,
			status_code, duration_ms, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		event.Timestamp, event.EventType, event.Status,
		nullable(event.ActorID), nullable(event.ActorEmail),
		nullable(event.OrganizationID), nullable(event.RequestID),
		nullable(event.IPAddress), event.Method, event.Path,
		event.StatusCode, event.DurationMS, metadataJSON,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// Search returns events matching the filter, newest first
func (r *PostgresRecorder) Search(ctx context.Context, filter *SearchFilter) ([]*Event, error) {
	query := `
		SELECT id, timestamp, event_type, status,
		       COALESCE(actor_id, ''), COALESCE(actor_email, ''),
		       COALESCE(organization_id, ''), COALESCE(request_id, ''),
		       COALESCE(ip_address, ''), method, path,
		       status_code, duration_ms, metadata
		FROM audit_events
		WHERE 1=1`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ActorID != "" {
		query += " AND actor_id = " + arg(filter.ActorID)
	}
	if filter.OrganizationID != "" {
		query += " AND organization_id = " + arg(filter.OrganizationID)
	}
	if len(filter.EventTypes) > 0 {
		types := make([]string, len(filter.EventTypes))
		for i, t := range filter.EventTypes {
			types[i] = string(t)
		}
		query += " AND event_type = ANY(" + arg(pq.Array(types)) + ")"
	}
	if filter.Status != "" {
		query += " AND status = " + arg(string(filter.Status))
	}
	if filter.Since != nil {
		query += " AND timestamp >= " + arg(*filter.Since)
	}
	if filter.Until != nil {
		query += " AND timestamp < " + arg(*filter.Until)
	}

	query += " ORDER BY timestamp DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += " LIMIT " + arg(limit)
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var metadataJSON []byte
		if err := rows.Scan(
			&e.ID, &e.Timestamp, &e.EventType, &e.Status,
			&e.ActorID, &e.ActorEmail, &e.OrganizationID, &e.RequestID,
			&e.IPAddress, &e.Method, &e.Path,
			&e.StatusCode, &e.DurationMS, &metadataJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// Prune deletes events older than the retention window and returns the
// number removed
func (r *PostgresRecorder) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM audit_events WHERE timestamp < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit events: %w", err)
	}
	return result.RowsAffected()
}

// nullable maps empty strings to NULL so the indexes stay lean
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

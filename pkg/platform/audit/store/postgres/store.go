package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/google/uuid"

	audit "shieldgate/pkg/platform/audit"
)

// Store implements audit.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts event into security_events. Re-delivering an event with the
// same id is a no-op, so publisher retries are idempotent.
func (s *Store) Append(ctx context.Context, event audit.SecurityEvent) error {
	query := `
		INSERT INTO security_events (
			id, kind, severity, client_ip, client_key, method, path,
			detail, request_id, user_agent, bot, occurred_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`

	eventID := event.ID
	if eventID == uuid.Nil {
		eventID = uuid.New()
	}

	_, err := s.db.ExecContext(ctx, query,
		eventID,
		string(event.Kind),
		string(event.Severity),
		event.ClientIP,
		event.ClientKey,
		event.Method,
		event.Path,
		event.Detail,
		event.RequestID,
		event.UserAgent,
		event.Bot,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert security event: %w", err)
	}
	return nil
}

// ListRecentByIP returns the most recent events for a client IP, newest first.
func (s *Store) ListRecentByIP(ctx context.Context, ip string, limit int) ([]audit.SecurityEvent, error) {
	query := `
		SELECT id, kind, severity, client_ip, client_key, method, path,
			   detail, request_id, user_agent, bot, occurred_at
		FROM security_events
		WHERE client_ip = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, ip, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query security events: %w", err)
	}
	defer rows.Close()

	var events []audit.SecurityEvent
	for rows.Next() {
		var (
			ev       audit.SecurityEvent
			kind     string
			severity string
		)
		if err := rows.Scan(
			&ev.ID, &kind, &severity, &ev.ClientIP, &ev.ClientKey, &ev.Method, &ev.Path,
			&ev.Detail, &ev.RequestID, &ev.UserAgent, &ev.Bot, &ev.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan security event: %w", err)
		}
		ev.Kind = audit.Kind(kind)
		ev.Severity = audit.Severity(severity)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate security events: %w", err)
	}
	return events, nil
}

// clampLimit keeps the LIMIT argument inside int32 so drivers never see a
// wrapped negative value.
func clampLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > math.MaxInt32 {
		return math.MaxInt32
	}
	return limit
}

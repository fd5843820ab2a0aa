// Package audit records an append-only trail of admin actions.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the admin action being recorded.
type EventType string

const (
	// EventLogin is logged on every successful admin login.
	EventLogin EventType = "auth.login"
	// EventAppointmentStatus is logged when an appointment changes status.
	EventAppointmentStatus EventType = "appointments.status_changed"
	// EventAppointmentUpdated is logged when appointment fields are edited.
	EventAppointmentUpdated EventType = "appointments.updated"
	// EventAppointmentDeleted is logged when an appointment is removed.
	EventAppointmentDeleted EventType = "appointments.deleted"
	// EventUserCreated / EventUserUpdated / EventUserDeleted cover staff
	// account management.
	EventUserCreated EventType = "users.created"
	EventUserUpdated EventType = "users.updated"
	EventUserDeleted EventType = "users.deleted"
	// EventClinicConfig is logged when the clinic settings change.
	EventClinicConfig EventType = "clinic.config_updated"
)

// Event is one immutable audit record.
type Event struct {
	ID         string          `json:"id"`
	EventType  EventType       `json:"event_type"`
	ActorID    string          `json:"actor_id,omitempty"`
	ActorEmail string          `json:"actor_email,omitempty"`
	EntityID   string          `json:"entity_id,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Service handles audit logging over database/sql.
type Service struct {
	db *sql.DB
}

// NewService creates a new audit service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Record persists one audit event. A nil receiver or nil db is a no-op so
// callers do not have to guard the optional dependency.
func (s *Service) Record(ctx context.Context, event Event) error {
	if s == nil || s.db == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_events (
			id, event_type, actor_id, actor_email, entity_id, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		nullString(event.ActorID),
		nullString(event.ActorEmail),
		nullString(event.EntityID),
		nullJSON(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to record event: %w", err)
	}
	return nil
}

// List returns the most recent events, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_type, COALESCE(actor_id, ''), COALESCE(actor_email, ''),
		       COALESCE(entity_id, ''), details, created_at
		FROM audit_events
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: list failed: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var details []byte // details is nullable
		if err := rows.Scan(&e.ID, &e.EventType, &e.ActorID, &e.ActorEmail, &e.EntityID, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan failed: %w", err)
		}
		e.Details = details
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullJSON binds an absent payload as NULL; empty bytes are not valid JSONB.
func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "kycgate/pkg/domain"
	audit "kycgate/pkg/platform/audit"
)

// Store implements audit.Store using the transactional outbox pattern.
// Entries are written to the outbox table and published to Kafka by the outbox
// relay. Kafka is the source of truth for the audit stream; audit_entries is a
// materialized view for querying.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// audit.Entry for deserialization by the consumer.
type outboxPayload struct {
	ID           string         `json:"ID"`
	Category     string         `json:"Category"`
	Timestamp    string         `json:"Timestamp"`
	ActorID      string         `json:"ActorID,omitempty"`
	Role         string         `json:"Role,omitempty"`
	Action       string         `json:"Action"`
	ResourceType string         `json:"ResourceType,omitempty"`
	ResourceID   string         `json:"ResourceID,omitempty"`
	Success      bool           `json:"Success"`
	Details      map[string]any `json:"Details,omitempty"`
	RequestID    string         `json:"RequestID,omitempty"`
	ClientIP     string         `json:"ClientIP,omitempty"`
	UserAgent    string         `json:"UserAgent,omitempty"`
	Browser      string         `json:"Browser,omitempty"`
	OS           string         `json:"OS,omitempty"`
}

// Append writes an audit entry to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	entryID := uuid.New()

	// Always derive category from action - actionCategories is the source of truth.
	category := audit.CategoryFor(entry.Action)

	payload := outboxPayload{
		ID:           entryID.String(),
		Category:     string(category),
		Timestamp:    entry.Timestamp.Format(time.RFC3339Nano),
		Role:         string(entry.Role),
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Success:      entry.Success,
		Details:      entry.Details,
		RequestID:    entry.RequestID,
		ClientIP:     entry.ClientIP,
		UserAgent:    entry.UserAgent,
		Browser:      entry.Browser,
		OS:           entry.OS,
	}
	if !entry.ActorID.IsNil() {
		payload.ActorID = entry.ActorID.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateType := "audit"
	aggregateID := entryID.String()
	if entry.ResourceID != "" {
		aggregateType = entry.ResourceType
		aggregateID = entry.ResourceID
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.New(), // outbox row ID, distinct from the entry ID in the payload
		aggregateType,
		aggregateID,
		entry.Action,
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// AppendWithID inserts an audit entry into the audit_entries table with a
// specific ID. Used by the Kafka consumer to materialize the stream for
// querying. Idempotent: duplicate inserts are ignored via ON CONFLICT.
func (s *Store) AppendWithID(ctx context.Context, entryID uuid.UUID, entry audit.Entry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	query := `
		INSERT INTO audit_entries (
			id, category, timestamp, actor_id, role, action,
			resource_type, resource_id, success, details,
			request_id, client_ip, user_agent, browser, os
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING
	`

	var actorID *uuid.UUID
	if !entry.ActorID.IsNil() {
		aid := uuid.UUID(entry.ActorID)
		actorID = &aid
	}

	_, err = s.db.ExecContext(ctx, query,
		entryID,
		string(audit.CategoryFor(entry.Action)),
		entry.Timestamp,
		actorID,
		string(entry.Role),
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.Success,
		details,
		entry.RequestID,
		entry.ClientIP,
		entry.UserAgent,
		entry.Browser,
		entry.OS,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByResource returns entries for a specific resource, newest first.
func (s *Store) ListByResource(ctx context.Context, resourceType, resourceID string) ([]audit.Entry, error) {
	query := selectEntries + `
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY timestamp DESC
	`
	rows, err := s.db.QueryContext(ctx, query, resourceType, resourceID)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListRecent returns the N most recent entries.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Entry, error) {
	query := selectEntries + `
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

const selectEntries = `
	SELECT category, timestamp, actor_id, role, action,
	       resource_type, resource_id, success, details,
	       request_id, client_ip, user_agent, browser, os
	FROM audit_entries
`

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var entries []audit.Entry
	for rows.Next() {
		var (
			entry   audit.Entry
			actorID *uuid.UUID
			role    string
			details []byte
		)
		if err := rows.Scan(
			&entry.Category,
			&entry.Timestamp,
			&actorID,
			&role,
			&entry.Action,
			&entry.ResourceType,
			&entry.ResourceID,
			&entry.Success,
			&details,
			&entry.RequestID,
			&entry.ClientIP,
			&entry.UserAgent,
			&entry.Browser,
			&entry.OS,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if actorID != nil {
			entry.ActorID = id.UserID(*actorID)
		}
		entry.Role = id.Role(role)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

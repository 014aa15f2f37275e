// Package repository implements audit event persistence. Events are
// append-only: there is no update or delete surface. Repositories support
// both PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	auditDomain "github.com/allisson/lockbox/internal/audit/domain"
	"github.com/allisson/lockbox/internal/database"
	apperrors "github.com/allisson/lockbox/internal/errors"
)

// PostgreSQLEventRepository implements audit event persistence for PostgreSQL.
type PostgreSQLEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLEventRepository creates a new PostgreSQL audit event repository.
func NewPostgreSQLEventRepository(db *sql.DB) *PostgreSQLEventRepository {
	return &PostgreSQLEventRepository{db: db}
}

// Create inserts a new audit event. Empty actor and resource fields are
// stored as NULL. Returns an error if context marshaling or insertion fails.
func (p *PostgreSQLEventRepository) Create(ctx context.Context, event *auditDomain.Event) error {
	querier := database.GetTx(ctx, p.db)

	var contextJSON []byte
	var err error

	// Handle nil context as NULL
	if event.Context != nil {
		contextJSON, err = json.Marshal(event.Context)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit event context")
		}
	}

	query := `INSERT INTO audit_events (id, event_type, actor_id, resource_type, resource_id, context, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = querier.ExecContext(
		ctx,
		query,
		event.ID,
		string(event.EventType),
		nullableString(event.ActorID),
		nullableString(event.ResourceType),
		nullableString(event.ResourceID),
		contextJSON,
		event.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit event")
	}

	return nil
}

// List retrieves audit events ordered by created_at descending (newest first)
// with pagination and optional filtering on event_type, actor_id and
// resource_type. Returns empty slice if no events match.
func (p *PostgreSQLEventRepository) List(
	ctx context.Context,
	filter auditDomain.Filter,
	offset, limit int,
) ([]*auditDomain.Event, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, event_type, actor_id, resource_type, resource_id, context, created_at
			  FROM audit_events WHERE 1=1`
	args := make([]any, 0, 5)

	if filter.EventType != "" {
		args = append(args, string(filter.EventType))
		query += fmt.Sprintf(" AND event_type = $%d", len(args))
	}
	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		query += fmt.Sprintf(" AND actor_id = $%d", len(args))
	}
	if filter.ResourceType != "" {
		args = append(args, filter.ResourceType)
		query += fmt.Sprintf(" AND resource_type = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	defer func() {
		_ = rows.Close()
	}()

	// Initialize empty slice to avoid returning nil for empty results
	events := make([]*auditDomain.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit events")
	}

	return events, nil
}

// scanEvent scans one audit event row, handling NULL columns.
func scanEvent(rows *sql.Rows) (*auditDomain.Event, error) {
	var event auditDomain.Event
	var eventType string
	var actorID, resourceType, resourceID sql.NullString
	var contextJSON []byte

	err := rows.Scan(
		&event.ID,
		&eventType,
		&actorID,
		&resourceType,
		&resourceID,
		&contextJSON,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan audit event")
	}

	event.EventType = auditDomain.EventType(eventType)
	event.ActorID = actorID.String
	event.ResourceType = resourceType.String
	event.ResourceID = resourceID.String

	// Unmarshal context if not NULL
	if contextJSON != nil {
		if err := json.Unmarshal(contextJSON, &event.Context); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit event context")
		}
	}

	return &event, nil
}

// nullableString converts an empty string to a database NULL.
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

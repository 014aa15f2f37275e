package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	auditDomain "github.com/allisson/lockbox/internal/audit/domain"
	"github.com/allisson/lockbox/internal/database"
	apperrors "github.com/allisson/lockbox/internal/errors"
)

// MySQLEventRepository implements audit event persistence for MySQL.
// UUIDs are stored as CHAR(36) strings since MySQL lacks a native UUID type.
type MySQLEventRepository struct {
	db *sql.DB
}

// NewMySQLEventRepository creates a new MySQL audit event repository.
func NewMySQLEventRepository(db *sql.DB) *MySQLEventRepository {
	return &MySQLEventRepository{db: db}
}

// Create inserts a new audit event. Empty actor and resource fields are
// stored as NULL.
func (m *MySQLEventRepository) Create(ctx context.Context, event *auditDomain.Event) error {
	querier := database.GetTx(ctx, m.db)

	var contextJSON []byte
	var err error

	if event.Context != nil {
		contextJSON, err = json.Marshal(event.Context)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit event context")
		}
	}

	query := `INSERT INTO audit_events (id, event_type, actor_id, resource_type, resource_id, context, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		event.ID.String(),
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

// List retrieves audit events ordered by created_at descending with
// pagination and optional filtering on event_type, actor_id and resource_type.
func (m *MySQLEventRepository) List(
	ctx context.Context,
	filter auditDomain.Filter,
	offset, limit int,
) ([]*auditDomain.Event, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, event_type, actor_id, resource_type, resource_id, context, created_at
			  FROM audit_events WHERE 1=1`
	args := make([]any, 0, 5)

	if filter.EventType != "" {
		query += " AND event_type = ?"
		args = append(args, string(filter.EventType))
	}
	if filter.ActorID != "" {
		query += " AND actor_id = ?"
		args = append(args, filter.ActorID)
	}
	if filter.ResourceType != "" {
		query += " AND resource_type = ?"
		args = append(args, filter.ResourceType)
	}

	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	defer func() {
		_ = rows.Close()
	}()

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

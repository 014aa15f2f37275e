// Package usecase implements the audit recorder: synchronous, best-effort
// recording of every security-relevant event plus the privileged query surface.
package usecase

import (
	"context"

	auditDomain "github.com/allisson/lockbox/internal/audit/domain"
)

// EventRepository defines the interface for audit event persistence.
type EventRepository interface {
	Create(ctx context.Context, event *auditDomain.Event) error
	List(ctx context.Context, filter auditDomain.Filter, offset, limit int) ([]*auditDomain.Event, error)
}

// EventUseCase defines the audit recorder contract.
//
// Record is attempted synchronously as part of the triggering operation. A
// recording failure must be logged by the caller as a second-order error and
// never reverses or masks the primary operation's outcome.
type EventUseCase interface {
	Record(
		ctx context.Context,
		eventType auditDomain.EventType,
		actorID, resourceID string,
		eventContext map[string]any,
	) error
	List(
		ctx context.Context,
		filter auditDomain.Filter,
		offset, limit int,
	) ([]*auditDomain.Event, error)
}

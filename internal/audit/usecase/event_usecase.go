package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/lockbox/internal/audit/domain"
	apperrors "github.com/allisson/lockbox/internal/errors"
)

// eventUseCase implements EventUseCase for recording and querying audit events.
type eventUseCase struct {
	eventRepo EventRepository
}

// NewEventUseCase creates a new EventUseCase with the provided dependencies.
func NewEventUseCase(eventRepo EventRepository) EventUseCase {
	return &eventUseCase{
		eventRepo: eventRepo,
	}
}

// Record appends an audit event. Generates a UUIDv7 identifier and a server
// timestamp. The eventContext parameter is optional and can be nil; it must
// never contain plaintext secret content or unwrapped key material.
func (e *eventUseCase) Record(
	ctx context.Context,
	eventType auditDomain.EventType,
	actorID, resourceID string,
	eventContext map[string]any,
) error {
	if !eventType.IsValid() {
		return apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("unknown event type: %s", eventType))
	}

	resourceType := ""
	if resourceID != "" {
		resourceType = auditDomain.ResourceTypeSecret
	}

	event := &auditDomain.Event{
		ID:           uuid.Must(uuid.NewV7()),
		EventType:    eventType,
		ActorID:      actorID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Context:      eventContext,
		CreatedAt:    time.Now().UTC(),
	}

	if err := e.eventRepo.Create(ctx, event); err != nil {
		return apperrors.Wrap(err, "failed to record audit event")
	}

	return nil
}

// List retrieves audit events ordered by created_at descending (newest first)
// with pagination and optional filtering. Returns empty slice if no events match.
func (e *eventUseCase) List(
	ctx context.Context,
	filter auditDomain.Filter,
	offset, limit int,
) ([]*auditDomain.Event, error) {
	events, err := e.eventRepo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}

	return events, nil
}

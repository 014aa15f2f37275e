// Package dto provides data transfer objects for audit event responses.
package dto

import (
	"time"

	auditDomain "github.com/allisson/lockbox/internal/audit/domain"
)

// EventResponse represents an audit event in API responses.
type EventResponse struct {
	ID           string         `json:"id"`
	EventType    string         `json:"event_type"`
	ActorID      string         `json:"actor_id,omitempty"`
	ResourceType string         `json:"resource_type,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ListEventsResponse represents a paginated list of audit events.
type ListEventsResponse struct {
	Data []EventResponse `json:"data"`
}

// MapEventsToListResponse converts domain audit events to a list response.
func MapEventsToListResponse(events []*auditDomain.Event) ListEventsResponse {
	data := make([]EventResponse, 0, len(events))
	for _, event := range events {
		data = append(data, EventResponse{
			ID:           event.ID.String(),
			EventType:    string(event.EventType),
			ActorID:      event.ActorID,
			ResourceType: event.ResourceType,
			ResourceID:   event.ResourceID,
			Context:      event.Context,
			CreatedAt:    event.CreatedAt,
		})
	}

	return ListEventsResponse{
		Data: data,
	}
}

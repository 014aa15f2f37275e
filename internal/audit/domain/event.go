// Package domain defines the audit trail model. Audit events are immutable,
// append-only facts: every lifecycle operation produces exactly one terminal
// event, success or failure, before returning to the caller.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ResourceTypeSecret is the resource type recorded for secret events.
const ResourceTypeSecret = "secret"

// Event records a security-relevant fact. The Context map carries structured
// detail (secret name, kms key id, failure reason) and must never contain
// plaintext secret content or unwrapped key material.
type Event struct {
	ID uuid.UUID
	// EventType is one of the closed vocabulary in const.go.
	EventType EventType
	// ActorID is the subject that triggered the event; empty only for
	// pre-authentication failures.
	ActorID string
	// ResourceType and ResourceID name the object acted upon; empty for
	// account-level events.
	ResourceType string
	ResourceID   string
	Context      map[string]any
	CreatedAt    time.Time
}

// Filter narrows an audit query. Zero values mean no filtering on that field.
type Filter struct {
	EventType    EventType
	ActorID      string
	ResourceType string
}

// Package usecase implements the secret lifecycle engine. The engine
// orchestrates the access policy, the crypto service, persistence and audit
// recording for every secret operation, under two hard rules: plaintext never
// reaches persistent storage, and every operation terminates in exactly one
// audit event whether it succeeds or fails.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/lockbox/internal/identity"
	secretsDomain "github.com/allisson/lockbox/internal/secrets/domain"
)

// SecretRepository defines the interface for Secret persistence operations.
type SecretRepository interface {
	Create(ctx context.Context, secret *secretsDomain.Secret) error
	Get(ctx context.Context, secretID uuid.UUID) (*secretsDomain.Secret, error)
	UpdateName(ctx context.Context, secretID uuid.UUID, name string, updatedAt time.Time) error
	// UpdateEnvelope replaces the envelope with a compare-and-swap on the
	// version column; returns false when the expected version lost a race.
	UpdateEnvelope(ctx context.Context, secret *secretsDomain.Secret, expectedVersion uint) (bool, error)
	SoftDelete(ctx context.Context, secretID uuid.UUID, deletedAt time.Time) error
	ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]*secretsDomain.Secret, error)
	ListAll(ctx context.Context, offset, limit int) ([]*secretsDomain.Secret, error)
	Search(ctx context.Context, ownerID, nameQuery string, offset, limit int) ([]*secretsDomain.Secret, error)
}

// UpdateInput carries the optional fields of an update. At least one of Name
// or Plaintext must be set; supplying Plaintext triggers a full re-encryption
// with a fresh envelope.
type UpdateInput struct {
	Name      *string
	Plaintext []byte
}

// SecretUseCase defines the interface for the secret lifecycle engine.
// Every method resolves the caller from ident, applies the access policy and
// records a terminal audit event on both success and failure paths.
type SecretUseCase interface {
	Create(
		ctx context.Context,
		ident identity.Identity,
		name string,
		plaintext []byte,
	) (*secretsDomain.Secret, error)
	// Reveal retrieves and decrypts a secret.
	//
	// Security Note: The returned Secret contains plaintext data in the
	// Plaintext field. Callers MUST zero this data after use by calling
	// cryptoDomain.Zero(secret.Plaintext).
	Reveal(ctx context.Context, ident identity.Identity, secretID uuid.UUID) (*secretsDomain.Secret, error)
	Update(
		ctx context.Context,
		ident identity.Identity,
		secretID uuid.UUID,
		input UpdateInput,
	) (*secretsDomain.Secret, error)
	Delete(ctx context.Context, ident identity.Identity, secretID uuid.UUID) error
	GetMetadata(ctx context.Context, ident identity.Identity, secretID uuid.UUID) (*secretsDomain.Secret, error)
	List(ctx context.Context, ident identity.Identity, offset, limit int) ([]*secretsDomain.Secret, error)
	Search(
		ctx context.Context,
		ident identity.Identity,
		nameQuery string,
		offset, limit int,
	) ([]*secretsDomain.Secret, error)
}

package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/lockbox/internal/identity"
	"github.com/allisson/lockbox/internal/metrics"
	secretsDomain "github.com/allisson/lockbox/internal/secrets/domain"
)

// secretUseCaseWithMetrics decorates SecretUseCase with metrics instrumentation.
type secretUseCaseWithMetrics struct {
	next    SecretUseCase
	metrics metrics.BusinessMetrics
}

// NewSecretUseCaseWithMetrics wraps a SecretUseCase with metrics recording.
func NewSecretUseCaseWithMetrics(useCase SecretUseCase, m metrics.BusinessMetrics) SecretUseCase {
	return &secretUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// record emits the operation counter and duration histogram for one call.
func (s *secretUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, "secrets", operation, status)
	s.metrics.RecordDuration(ctx, "secrets", operation, time.Since(start), status)
}

// Create records metrics for secret creation operations.
func (s *secretUseCaseWithMetrics) Create(
	ctx context.Context,
	ident identity.Identity,
	name string,
	plaintext []byte,
) (*secretsDomain.Secret, error) {
	start := time.Now()
	secret, err := s.next.Create(ctx, ident, name, plaintext)
	s.record(ctx, "secret_create", start, err)
	return secret, err
}

// Reveal records metrics for secret reveal operations.
func (s *secretUseCaseWithMetrics) Reveal(
	ctx context.Context,
	ident identity.Identity,
	secretID uuid.UUID,
) (*secretsDomain.Secret, error) {
	start := time.Now()
	secret, err := s.next.Reveal(ctx, ident, secretID)
	s.record(ctx, "secret_reveal", start, err)
	return secret, err
}

// Update records metrics for secret update operations.
func (s *secretUseCaseWithMetrics) Update(
	ctx context.Context,
	ident identity.Identity,
	secretID uuid.UUID,
	input UpdateInput,
) (*secretsDomain.Secret, error) {
	start := time.Now()
	secret, err := s.next.Update(ctx, ident, secretID, input)
	s.record(ctx, "secret_update", start, err)
	return secret, err
}

// Delete records metrics for secret deletion operations.
func (s *secretUseCaseWithMetrics) Delete(
	ctx context.Context,
	ident identity.Identity,
	secretID uuid.UUID,
) error {
	start := time.Now()
	err := s.next.Delete(ctx, ident, secretID)
	s.record(ctx, "secret_delete", start, err)
	return err
}

// GetMetadata records metrics for metadata retrieval operations.
func (s *secretUseCaseWithMetrics) GetMetadata(
	ctx context.Context,
	ident identity.Identity,
	secretID uuid.UUID,
) (*secretsDomain.Secret, error) {
	start := time.Now()
	secret, err := s.next.GetMetadata(ctx, ident, secretID)
	s.record(ctx, "secret_get_metadata", start, err)
	return secret, err
}

// List records metrics for list operations.
func (s *secretUseCaseWithMetrics) List(
	ctx context.Context,
	ident identity.Identity,
	offset, limit int,
) ([]*secretsDomain.Secret, error) {
	start := time.Now()
	secrets, err := s.next.List(ctx, ident, offset, limit)
	s.record(ctx, "secret_list", start, err)
	return secrets, err
}

// Search records metrics for search operations.
func (s *secretUseCaseWithMetrics) Search(
	ctx context.Context,
	ident identity.Identity,
	nameQuery string,
	offset, limit int,
) ([]*secretsDomain.Secret, error) {
	start := time.Now()
	secrets, err := s.next.Search(ctx, ident, nameQuery, offset, limit)
	s.record(ctx, "secret_search", start, err)
	return secrets, err
}

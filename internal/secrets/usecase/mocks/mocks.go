// Package mocks provides mock implementations for testing the secret
// lifecycle engine.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	auditDomain "github.com/allisson/lockbox/internal/audit/domain"
	cryptoDomain "github.com/allisson/lockbox/internal/crypto/domain"
	secretsDomain "github.com/allisson/lockbox/internal/secrets/domain"
)

// MockSecretRepository is a mock implementation of SecretRepository for testing.
type MockSecretRepository struct {
	mock.Mock
}

// Create mocks the Create method of SecretRepository.
func (m *MockSecretRepository) Create(ctx context.Context, secret *secretsDomain.Secret) error {
	args := m.Called(ctx, secret)
	return args.Error(0)
}

// Get mocks the Get method of SecretRepository.
func (m *MockSecretRepository) Get(
	ctx context.Context,
	secretID uuid.UUID,
) (*secretsDomain.Secret, error) {
	args := m.Called(ctx, secretID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsDomain.Secret), args.Error(1)
}

// UpdateName mocks the UpdateName method of SecretRepository.
func (m *MockSecretRepository) UpdateName(
	ctx context.Context,
	secretID uuid.UUID,
	name string,
	updatedAt time.Time,
) error {
	args := m.Called(ctx, secretID, name, updatedAt)
	return args.Error(0)
}

// UpdateEnvelope mocks the UpdateEnvelope method of SecretRepository.
func (m *MockSecretRepository) UpdateEnvelope(
	ctx context.Context,
	secret *secretsDomain.Secret,
	expectedVersion uint,
) (bool, error) {
	args := m.Called(ctx, secret, expectedVersion)
	return args.Bool(0), args.Error(1)
}

// SoftDelete mocks the SoftDelete method of SecretRepository.
func (m *MockSecretRepository) SoftDelete(
	ctx context.Context,
	secretID uuid.UUID,
	deletedAt time.Time,
) error {
	args := m.Called(ctx, secretID, deletedAt)
	return args.Error(0)
}

// ListByOwner mocks the ListByOwner method of SecretRepository.
func (m *MockSecretRepository) ListByOwner(
	ctx context.Context,
	ownerID string,
	offset, limit int,
) ([]*secretsDomain.Secret, error) {
	args := m.Called(ctx, ownerID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*secretsDomain.Secret), args.Error(1)
}

// ListAll mocks the ListAll method of SecretRepository.
func (m *MockSecretRepository) ListAll(
	ctx context.Context,
	offset, limit int,
) ([]*secretsDomain.Secret, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*secretsDomain.Secret), args.Error(1)
}

// Search mocks the Search method of SecretRepository.
func (m *MockSecretRepository) Search(
	ctx context.Context,
	ownerID, nameQuery string,
	offset, limit int,
) ([]*secretsDomain.Secret, error) {
	args := m.Called(ctx, ownerID, nameQuery, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*secretsDomain.Secret), args.Error(1)
}

// MockCryptoService is a mock implementation of CryptoService for testing.
type MockCryptoService struct {
	mock.Mock
}

// GenerateDek mocks the GenerateDek method of CryptoService.
func (m *MockCryptoService) GenerateDek(ctx context.Context, length int) ([]byte, error) {
	args := m.Called(ctx, length)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Encrypt mocks the Encrypt method of CryptoService.
func (m *MockCryptoService) Encrypt(
	ctx context.Context,
	key, plaintext, aad []byte,
) (*cryptoDomain.EncryptResult, error) {
	args := m.Called(ctx, key, plaintext, aad)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.EncryptResult), args.Error(1)
}

// Decrypt mocks the Decrypt method of CryptoService.
func (m *MockCryptoService) Decrypt(
	ctx context.Context,
	key, ciphertext, nonce, tag, aad []byte,
) ([]byte, error) {
	args := m.Called(ctx, key, ciphertext, nonce, tag, aad)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// WrapDek mocks the WrapDek method of CryptoService.
func (m *MockCryptoService) WrapDek(
	ctx context.Context,
	dek []byte,
	masterKeyID string,
) (*cryptoDomain.WrapResult, error) {
	args := m.Called(ctx, dek, masterKeyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.WrapResult), args.Error(1)
}

// UnwrapDek mocks the UnwrapDek method of CryptoService.
func (m *MockCryptoService) UnwrapDek(
	ctx context.Context,
	wrappedKey []byte,
	masterKeyID string,
) ([]byte, error) {
	args := m.Called(ctx, wrappedKey, masterKeyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockEventUseCase is a mock implementation of the audit EventUseCase for testing.
type MockEventUseCase struct {
	mock.Mock
}

// Record mocks the Record method of EventUseCase.
func (m *MockEventUseCase) Record(
	ctx context.Context,
	eventType auditDomain.EventType,
	actorID, resourceID string,
	eventContext map[string]any,
) error {
	args := m.Called(ctx, eventType, actorID, resourceID, eventContext)
	return args.Error(0)
}

// List mocks the List method of EventUseCase.
func (m *MockEventUseCase) List(
	ctx context.Context,
	filter auditDomain.Filter,
	offset, limit int,
) ([]*auditDomain.Event, error) {
	args := m.Called(ctx, filter, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.Event), args.Error(1)
}

// FakeTxManager runs the transaction function directly without a database.
type FakeTxManager struct{}

// WithTx executes fn with the given context.
func (f *FakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/allisson/lockbox/internal/access"
	auditDomain "github.com/allisson/lockbox/internal/audit/domain"
	cryptoDomain "github.com/allisson/lockbox/internal/crypto/domain"
	apperrors "github.com/allisson/lockbox/internal/errors"
	"github.com/allisson/lockbox/internal/identity"
	secretsDomain "github.com/allisson/lockbox/internal/secrets/domain"
	"github.com/allisson/lockbox/internal/secrets/usecase/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testMasterKeyID = "test-master-key"

type engineMocks struct {
	secretRepo *mocks.MockSecretRepository
	cryptoSvc  *mocks.MockCryptoService
	auditor    *mocks.MockEventUseCase
}

// setupEngine creates a lifecycle engine with mocked collaborators and the
// default (existence-revealing) access policy.
func setupEngine(t *testing.T) (SecretUseCase, *engineMocks) {
	t.Helper()

	m := &engineMocks{
		secretRepo: &mocks.MockSecretRepository{},
		cryptoSvc:  &mocks.MockCryptoService{},
		auditor:    &mocks.MockEventUseCase{},
	}

	engine := NewSecretUseCase(
		&mocks.FakeTxManager{},
		m.secretRepo,
		m.cryptoSvc,
		m.auditor,
		access.NewEvaluator(false),
		testMasterKeyID,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	return engine, m
}

// expectSealSuccess wires the full generate/encrypt/wrap sequence.
func expectSealSuccess(m *engineMocks, plaintext []byte) {
	dek := []byte("0123456789abcdef0123456789abcdef")

	m.cryptoSvc.On("GenerateDek", mock.Anything, cryptoDomain.DekLength).
		Return(dek, nil).Once()
	m.cryptoSvc.On("Encrypt", mock.Anything, dek, plaintext, []byte(nil)).
		Return(&cryptoDomain.EncryptResult{
			Ciphertext: []byte("ciphertext"),
			Nonce:      []byte("nonce"),
			Tag:        []byte("tag"),
			Algorithm:  cryptoDomain.AESGCM,
		}, nil).Once()
	m.cryptoSvc.On("WrapDek", mock.Anything, dek, testMasterKeyID).
		Return(&cryptoDomain.WrapResult{
			WrappedKey: []byte("wrapped-dek"),
			KMSKeyID:   testMasterKeyID,
			Algorithm:  "AES-256-GCM",
		}, nil).Once()
}

func storedSecret(ownerID string) *secretsDomain.Secret {
	return &secretsDomain.Secret{
		ID:           uuid.Must(uuid.NewV7()),
		OwnerID:      ownerID,
		Name:         "database password",
		Ciphertext:   []byte("ciphertext"),
		EncryptedDek: []byte("wrapped-dek"),
		KmsKeyID:     testMasterKeyID,
		Nonce:        []byte("nonce"),
		Tag:          []byte("tag"),
		Version:      1,
	}
}

func TestSecretUseCase_Create(t *testing.T) {
	owner := identity.Identity{SubjectID: "owner-1"}

	t.Run("Success", func(t *testing.T) {
		engine, m := setupEngine(t)
		plaintext := []byte("super-secret")

		expectSealSuccess(m, plaintext)
		m.secretRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Secret")).
			Return(nil).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretCreated, "owner-1",
			mock.AnythingOfType("string"), mock.Anything).Return(nil).Once()

		secret, err := engine.Create(context.Background(), owner, "database password", plaintext)

		require.NoError(t, err)
		assert.Equal(t, "owner-1", secret.OwnerID)
		assert.Equal(t, uint(1), secret.Version)
		assert.Equal(t, []byte("ciphertext"), secret.Ciphertext)
		assert.Equal(t, []byte("wrapped-dek"), secret.EncryptedDek)
		assert.Equal(t, testMasterKeyID, secret.KmsKeyID)
		assert.Equal(t, string(cryptoDomain.AESGCM), secret.Metadata["algorithm"])
		m.secretRepo.AssertExpectations(t)
		m.cryptoSvc.AssertExpectations(t)
		m.auditor.AssertExpectations(t)
	})

	t.Run("Error_BlankName", func(t *testing.T) {
		engine, m := setupEngine(t)
		m.auditor.On("Record", mock.Anything, auditDomain.SecretCreateFailed, "owner-1", "",
			map[string]any{"error_kind": "invalid_input"}).Return(nil).Once()

		_, err := engine.Create(context.Background(), owner, "   ", []byte("value"))

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		m.auditor.AssertExpectations(t)
	})

	t.Run("Error_CryptoFailureWritesNothing", func(t *testing.T) {
		engine, m := setupEngine(t)

		m.cryptoSvc.On("GenerateDek", mock.Anything, cryptoDomain.DekLength).
			Return(nil, apperrors.ErrCryptoService).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretCreateFailed, "owner-1", "",
			map[string]any{"error_kind": "crypto_service_error"}).Return(nil).Once()

		_, err := engine.Create(context.Background(), owner, "name", []byte("value"))

		assert.ErrorIs(t, err, apperrors.ErrCryptoService)
		m.secretRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.auditor.AssertExpectations(t)
	})

	t.Run("Error_WrapFailureWritesNothing", func(t *testing.T) {
		engine, m := setupEngine(t)
		dek := []byte("0123456789abcdef0123456789abcdef")

		m.cryptoSvc.On("GenerateDek", mock.Anything, cryptoDomain.DekLength).
			Return(dek, nil).Once()
		m.cryptoSvc.On("Encrypt", mock.Anything, dek, []byte("value"), []byte(nil)).
			Return(&cryptoDomain.EncryptResult{
				Ciphertext: []byte("c"), Nonce: []byte("n"), Tag: []byte("t"),
				Algorithm: cryptoDomain.AESGCM,
			}, nil).Once()
		m.cryptoSvc.On("WrapDek", mock.Anything, dek, testMasterKeyID).
			Return(nil, apperrors.ErrCryptoService).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretCreateFailed, "owner-1", "",
			map[string]any{"error_kind": "crypto_service_error"}).Return(nil).Once()

		_, err := engine.Create(context.Background(), owner, "name", []byte("value"))

		assert.ErrorIs(t, err, apperrors.ErrCryptoService)
		m.secretRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.auditor.AssertExpectations(t)
	})

	t.Run("AuditFailureDoesNotMaskSuccess", func(t *testing.T) {
		engine, m := setupEngine(t)
		plaintext := []byte("value")

		expectSealSuccess(m, plaintext)
		m.secretRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretCreated, "owner-1",
			mock.AnythingOfType("string"), mock.Anything).
			Return(apperrors.New("audit storage down")).Once()

		secret, err := engine.Create(context.Background(), owner, "name", plaintext)

		require.NoError(t, err)
		assert.NotNil(t, secret)
	})
}

func TestSecretUseCase_Reveal(t *testing.T) {
	owner := identity.Identity{SubjectID: "owner-1"}

	t.Run("Success", func(t *testing.T) {
		engine, m := setupEngine(t)
		stored := storedSecret("owner-1")
		dek := []byte("0123456789abcdef0123456789abcdef")

		m.secretRepo.On("Get", mock.Anything, stored.ID).Return(stored, nil).Once()
		m.cryptoSvc.On("UnwrapDek", mock.Anything, stored.EncryptedDek, testMasterKeyID).
			Return(dek, nil).Once()
		m.cryptoSvc.On("Decrypt", mock.Anything, dek, stored.Ciphertext, stored.Nonce, stored.Tag, []byte(nil)).
			Return([]byte("super-secret"), nil).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretRevealed, "owner-1",
			stored.ID.String(), mock.Anything).Return(nil).Once()

		secret, err := engine.Reveal(context.Background(), owner, stored.ID)

		require.NoError(t, err)
		assert.Equal(t, []byte("super-secret"), secret.Plaintext)
		m.auditor.AssertExpectations(t)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		engine, m := setupEngine(t)
		secretID := uuid.Must(uuid.NewV7())

		m.secretRepo.On("Get", mock.Anything, secretID).
			Return(nil, apperrors.ErrNotFound).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretRevealFailed, "owner-1",
			secretID.String(), map[string]any{"error_kind": "not_found"}).Return(nil).Once()

		_, err := engine.Reveal(context.Background(), owner, secretID)

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		m.auditor.AssertExpectations(t)
	})

	t.Run("Error_ForbiddenForNonOwner", func(t *testing.T) {
		engine, m := setupEngine(t)
		stored := storedSecret("someone-else")

		m.secretRepo.On("Get", mock.Anything, stored.ID).Return(stored, nil).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretRevealFailed, "owner-1",
			stored.ID.String(), map[string]any{"error_kind": "forbidden"}).Return(nil).Once()

		_, err := engine.Reveal(context.Background(), owner, stored.ID)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		m.cryptoSvc.AssertNotCalled(t, "UnwrapDek", mock.Anything, mock.Anything, mock.Anything)
		m.auditor.AssertExpectations(t)
	})

	t.Run("Error_ForbiddenForPrivilegedNonOwner", func(t *testing.T) {
		engine, m := setupEngine(t)
		stored := storedSecret("someone-else")
		auditor := identity.Identity{SubjectID: "auditor-1", Roles: []string{identity.RoleAuditor}}

		m.secretRepo.On("Get", mock.Anything, stored.ID).Return(stored, nil).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretRevealFailed, "auditor-1",
			stored.ID.String(), map[string]any{"error_kind": "forbidden"}).Return(nil).Once()

		_, err := engine.Reveal(context.Background(), auditor, stored.ID)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("Error_IntegrityFailure", func(t *testing.T) {
		engine, m := setupEngine(t)
		stored := storedSecret("owner-1")
		dek := []byte("0123456789abcdef0123456789abcdef")

		m.secretRepo.On("Get", mock.Anything, stored.ID).Return(stored, nil).Once()
		m.cryptoSvc.On("UnwrapDek", mock.Anything, stored.EncryptedDek, testMasterKeyID).
			Return(dek, nil).Once()
		m.cryptoSvc.On("Decrypt", mock.Anything, dek, stored.Ciphertext, stored.Nonce, stored.Tag, []byte(nil)).
			Return(nil, apperrors.ErrIntegrity).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretRevealFailed, "owner-1",
			stored.ID.String(), map[string]any{"error_kind": "integrity_error"}).Return(nil).Once()

		_, err := engine.Reveal(context.Background(), owner, stored.ID)

		assert.ErrorIs(t, err, apperrors.ErrIntegrity)
		m.auditor.AssertExpectations(t)
	})
}

func TestSecretUseCase_Update(t *testing.T) {
	owner := identity.Identity{SubjectID: "owner-1"}

	t.Run("Error_NoFields", func(t *testing.T) {
		engine, m := setupEngine(t)
		secretID := uuid.Must(uuid.NewV7())

		m.auditor.On("Record", mock.Anything, auditDomain.SecretUpdateFailed, "owner-1",
			secretID.String(), map[string]any{"error_kind": "invalid_input"}).Return(nil).Once()

		_, err := engine.Update(context.Background(), owner, secretID, UpdateInput{})

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		m.secretRepo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("Success_NameOnly", func(t *testing.T) {
		engine, m := setupEngine(t)
		stored := storedSecret("owner-1")
		newName := "rotated password"

		m.secretRepo.On("Get", mock.Anything, stored.ID).Return(stored, nil).Once()
		m.secretRepo.On("UpdateName", mock.Anything, stored.ID, newName, mock.Anything).
			Return(nil).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretUpdated, "owner-1",
			stored.ID.String(), mock.Anything).Return(nil).Once()

		secret, err := engine.Update(context.Background(), owner, stored.ID, UpdateInput{Name: &newName})

		require.NoError(t, err)
		assert.Equal(t, newName, secret.Name)
		assert.Equal(t, uint(1), secret.Version)
		m.cryptoSvc.AssertNotCalled(t, "GenerateDek", mock.Anything, mock.Anything)
	})

	t.Run("Success_ValueReencrypts", func(t *testing.T) {
		engine, m := setupEngine(t)
		stored := storedSecret("owner-1")
		plaintext := []byte("new-value")

		m.secretRepo.On("Get", mock.Anything, stored.ID).Return(stored, nil).Once()
		expectSealSuccess(m, plaintext)
		m.secretRepo.On("UpdateEnvelope", mock.Anything, mock.AnythingOfType("*domain.Secret"), uint(1)).
			Return(true, nil).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretUpdated, "owner-1",
			stored.ID.String(), mock.Anything).Return(nil).Once()

		secret, err := engine.Update(context.Background(), owner, stored.ID, UpdateInput{Plaintext: plaintext})

		require.NoError(t, err)
		assert.Equal(t, uint(2), secret.Version)
		m.secretRepo.AssertExpectations(t)
	})

	t.Run("Error_ConcurrentUpdateConflict", func(t *testing.T) {
		engine, m := setupEngine(t)
		stored := storedSecret("owner-1")
		plaintext := []byte("new-value")

		m.secretRepo.On("Get", mock.Anything, stored.ID).Return(stored, nil).Once()
		expectSealSuccess(m, plaintext)
		m.secretRepo.On("UpdateEnvelope", mock.Anything, mock.Anything, uint(1)).
			Return(false, nil).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretUpdateFailed, "owner-1",
			stored.ID.String(), map[string]any{"error_kind": "conflict"}).Return(nil).Once()

		_, err := engine.Update(context.Background(), owner, stored.ID, UpdateInput{Plaintext: plaintext})

		assert.ErrorIs(t, err, apperrors.ErrConflict)
		m.auditor.AssertExpectations(t)
	})
}

func TestSecretUseCase_Delete(t *testing.T) {
	owner := identity.Identity{SubjectID: "owner-1"}

	t.Run("Success", func(t *testing.T) {
		engine, m := setupEngine(t)
		stored := storedSecret("owner-1")

		m.secretRepo.On("Get", mock.Anything, stored.ID).Return(stored, nil).Once()
		m.secretRepo.On("SoftDelete", mock.Anything, stored.ID, mock.Anything).Return(nil).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretDeleted, "owner-1",
			stored.ID.String(), mock.Anything).Return(nil).Once()

		err := engine.Delete(context.Background(), owner, stored.ID)

		require.NoError(t, err)
		m.auditor.AssertExpectations(t)
	})

	t.Run("Error_ForbiddenForNonOwner", func(t *testing.T) {
		engine, m := setupEngine(t)
		stored := storedSecret("someone-else")

		m.secretRepo.On("Get", mock.Anything, stored.ID).Return(stored, nil).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretDeleteFailed, "owner-1",
			stored.ID.String(), map[string]any{"error_kind": "forbidden"}).Return(nil).Once()

		err := engine.Delete(context.Background(), owner, stored.ID)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		m.secretRepo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSecretUseCase_GetMetadata(t *testing.T) {
	t.Run("Success_AuditorCrossOwner", func(t *testing.T) {
		engine, m := setupEngine(t)
		stored := storedSecret("someone-else")
		auditor := identity.Identity{SubjectID: "auditor-1", Roles: []string{identity.RoleAuditor}}

		m.secretRepo.On("Get", mock.Anything, stored.ID).Return(stored, nil).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretMetadataViewed, "auditor-1",
			stored.ID.String(), mock.Anything).Return(nil).Once()

		secret, err := engine.GetMetadata(context.Background(), auditor, stored.ID)

		require.NoError(t, err)
		assert.Empty(t, secret.Plaintext)
		m.auditor.AssertExpectations(t)
	})
}

func TestSecretUseCase_List(t *testing.T) {
	t.Run("OwnerScopedByDefault", func(t *testing.T) {
		engine, m := setupEngine(t)
		owner := identity.Identity{SubjectID: "owner-1"}

		m.secretRepo.On("ListByOwner", mock.Anything, "owner-1", 0, 50).
			Return([]*secretsDomain.Secret{storedSecret("owner-1")}, nil).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretListed, "owner-1", "",
			map[string]any{"count": 1}).Return(nil).Once()

		secrets, err := engine.List(context.Background(), owner, 0, 50)

		require.NoError(t, err)
		assert.Len(t, secrets, 1)
		m.secretRepo.AssertNotCalled(t, "ListAll", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("PrivilegedSeesAllOwners", func(t *testing.T) {
		engine, m := setupEngine(t)
		admin := identity.Identity{SubjectID: "admin-1", Roles: []string{identity.RoleAdmin}}

		m.secretRepo.On("ListAll", mock.Anything, 0, 50).
			Return([]*secretsDomain.Secret{}, nil).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretListed, "admin-1", "",
			map[string]any{"count": 0}).Return(nil).Once()

		secrets, err := engine.List(context.Background(), admin, 0, 50)

		require.NoError(t, err)
		assert.Empty(t, secrets)
	})
}

func TestSecretUseCase_Search(t *testing.T) {
	owner := identity.Identity{SubjectID: "owner-1"}

	t.Run("Success_AlwaysOwnerScoped", func(t *testing.T) {
		engine, m := setupEngine(t)
		admin := identity.Identity{SubjectID: "admin-1", Roles: []string{identity.RoleAdmin}}

		m.secretRepo.On("Search", mock.Anything, "admin-1", "database", 0, 50).
			Return([]*secretsDomain.Secret{}, nil).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretSearched, "admin-1", "",
			map[string]any{"count": 0}).Return(nil).Once()

		_, err := engine.Search(context.Background(), admin, "database", 0, 50)

		require.NoError(t, err)
		m.secretRepo.AssertExpectations(t)
	})

	t.Run("Error_BlankQuery", func(t *testing.T) {
		engine, m := setupEngine(t)

		m.auditor.On("Record", mock.Anything, auditDomain.SecretSearchFailed, "owner-1", "",
			map[string]any{"error_kind": "invalid_input"}).Return(nil).Once()

		_, err := engine.Search(context.Background(), owner, "  ", 0, 50)

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		m.secretRepo.AssertNotCalled(t, "Search",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSecretUseCase_HiddenExistence(t *testing.T) {
	t.Run("DenialLooksLikeNotFound", func(t *testing.T) {
		m := &engineMocks{
			secretRepo: &mocks.MockSecretRepository{},
			cryptoSvc:  &mocks.MockCryptoService{},
			auditor:    &mocks.MockEventUseCase{},
		}
		engine := NewSecretUseCase(
			&mocks.FakeTxManager{},
			m.secretRepo,
			m.cryptoSvc,
			m.auditor,
			access.NewEvaluator(true),
			testMasterKeyID,
			slog.New(slog.NewTextHandler(io.Discard, nil)),
		)

		stored := storedSecret("someone-else")
		caller := identity.Identity{SubjectID: "owner-1"}

		m.secretRepo.On("Get", mock.Anything, stored.ID).Return(stored, nil).Once()
		m.auditor.On("Record", mock.Anything, auditDomain.SecretRevealFailed, "owner-1",
			stored.ID.String(), map[string]any{"error_kind": "not_found"}).Return(nil).Once()

		_, err := engine.Reveal(context.Background(), caller, stored.ID)

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.NotErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestSecretUseCase_CancelledContextStillAudits(t *testing.T) {
	engine, m := setupEngine(t)
	owner := identity.Identity{SubjectID: "owner-1"}
	secretID := uuid.Must(uuid.NewV7())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m.secretRepo.On("Get", mock.Anything, secretID).
		Return(nil, apperrors.Wrap(context.Canceled, "failed to get secret")).Once()
	m.auditor.On("Record", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), auditDomain.SecretRevealFailed, "owner-1", secretID.String(), mock.Anything).
		Return(nil).Once()

	_, err := engine.Reveal(ctx, owner, secretID)

	assert.Error(t, err)
	m.auditor.AssertExpectations(t)
}

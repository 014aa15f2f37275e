package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/lockbox/internal/access"
	auditDomain "github.com/allisson/lockbox/internal/audit/domain"
	auditUseCase "github.com/allisson/lockbox/internal/audit/usecase"
	cryptoDomain "github.com/allisson/lockbox/internal/crypto/domain"
	cryptoService "github.com/allisson/lockbox/internal/crypto/service"
	"github.com/allisson/lockbox/internal/database"
	apperrors "github.com/allisson/lockbox/internal/errors"
	"github.com/allisson/lockbox/internal/identity"
	secretsDomain "github.com/allisson/lockbox/internal/secrets/domain"
)

// secretUseCase implements the SecretUseCase interface.
type secretUseCase struct {
	txManager   database.TxManager
	secretRepo  SecretRepository
	cryptoSvc   cryptoService.CryptoService
	auditor     auditUseCase.EventUseCase
	evaluator   *access.Evaluator
	masterKeyID string
	logger      *slog.Logger
}

// NewSecretUseCase creates a new secret lifecycle engine with the provided
// dependencies. masterKeyID selects the key-management-service master key used
// to wrap every new data encryption key.
func NewSecretUseCase(
	txManager database.TxManager,
	secretRepo SecretRepository,
	cryptoSvc cryptoService.CryptoService,
	auditor auditUseCase.EventUseCase,
	evaluator *access.Evaluator,
	masterKeyID string,
	logger *slog.Logger,
) SecretUseCase {
	return &secretUseCase{
		txManager:   txManager,
		secretRepo:  secretRepo,
		cryptoSvc:   cryptoSvc,
		auditor:     auditor,
		evaluator:   evaluator,
		masterKeyID: masterKeyID,
		logger:      logger,
	}
}

// Create encrypts plaintext under a fresh data encryption key, wraps the DEK
// and persists the resulting envelope. Nothing is written if any crypto step
// fails, so a failed Create is always safe to retry.
func (s *secretUseCase) Create(
	ctx context.Context,
	ident identity.Identity,
	name string,
	plaintext []byte,
) (secret *secretsDomain.Secret, err error) {
	defer func() {
		if err != nil {
			s.emitAudit(ctx, auditDomain.SecretCreateFailed, ident.SubjectID, "", failureContext(err))
		} else {
			s.emitAudit(ctx, auditDomain.SecretCreated, ident.SubjectID, secret.ID.String(), map[string]any{
				"version": secret.Version,
			})
		}
	}()

	if strings.TrimSpace(name) == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "name cannot be blank")
	}
	if len(plaintext) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "plaintext cannot be empty")
	}

	envelope, metadata, err := s.seal(ctx, plaintext)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	newSecret := &secretsDomain.Secret{
		ID:           uuid.Must(uuid.NewV7()),
		OwnerID:      ident.SubjectID,
		Name:         name,
		Ciphertext:   envelope.Ciphertext,
		EncryptedDek: envelope.EncryptedDek,
		KmsKeyID:     envelope.KmsKeyID,
		Nonce:        envelope.Nonce,
		Tag:          envelope.Tag,
		Metadata:     metadata,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.secretRepo.Create(txCtx, newSecret)
	})
	if err != nil {
		return nil, err
	}

	return newSecret, nil
}

// Reveal retrieves a secret, unwraps its data encryption key and decrypts the
// ciphertext. The unwrapped DEK is zeroed before returning on every path; an
// authentication-tag mismatch surfaces as ErrIntegrity and is never retried.
func (s *secretUseCase) Reveal(
	ctx context.Context,
	ident identity.Identity,
	secretID uuid.UUID,
) (secret *secretsDomain.Secret, err error) {
	defer func() {
		if err != nil {
			s.emitAudit(ctx, auditDomain.SecretRevealFailed, ident.SubjectID, secretID.String(), failureContext(err))
		} else {
			s.emitAudit(ctx, auditDomain.SecretRevealed, ident.SubjectID, secretID.String(), map[string]any{
				"version": secret.Version,
			})
		}
	}()

	stored, err := s.authorize(ctx, access.ActionReveal, secretID, ident)
	if err != nil {
		return nil, err
	}

	dek, err := s.cryptoSvc.UnwrapDek(ctx, stored.EncryptedDek, stored.KmsKeyID)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(dek)

	plaintext, err := s.cryptoSvc.Decrypt(ctx, dek, stored.Ciphertext, stored.Nonce, stored.Tag, nil)
	if err != nil {
		return nil, err
	}

	stored.Plaintext = plaintext
	return stored, nil
}

// Update changes a secret's name, its value, or both. A value change performs
// a full create-style re-encryption with a fresh DEK and increments the
// version via compare-and-swap; losing the swap to a concurrent update returns
// ErrConflict so the secret never mixes envelope components from two writers.
func (s *secretUseCase) Update(
	ctx context.Context,
	ident identity.Identity,
	secretID uuid.UUID,
	input UpdateInput,
) (secret *secretsDomain.Secret, err error) {
	defer func() {
		if err != nil {
			s.emitAudit(ctx, auditDomain.SecretUpdateFailed, ident.SubjectID, secretID.String(), failureContext(err))
		} else {
			s.emitAudit(ctx, auditDomain.SecretUpdated, ident.SubjectID, secretID.String(), map[string]any{
				"version":     secret.Version,
				"reencrypted": input.Plaintext != nil,
			})
		}
	}()

	if input.Name == nil && input.Plaintext == nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "update requires a new name or a new value")
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "name cannot be blank")
	}
	if input.Plaintext != nil && len(input.Plaintext) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "plaintext cannot be empty")
	}

	stored, err := s.authorize(ctx, access.ActionUpdate, secretID, ident)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if input.Plaintext == nil {
		// Name-only update leaves the envelope and version untouched.
		err = s.txManager.WithTx(ctx, func(txCtx context.Context) error {
			return s.secretRepo.UpdateName(txCtx, secretID, *input.Name, now)
		})
		if err != nil {
			return nil, err
		}

		stored.Name = *input.Name
		stored.UpdatedAt = now
		return stored, nil
	}

	// Value change: build a complete fresh envelope before touching storage.
	envelope, metadata, err := s.seal(ctx, input.Plaintext)
	if err != nil {
		return nil, err
	}

	expectedVersion := stored.Version
	stored.Ciphertext = envelope.Ciphertext
	stored.EncryptedDek = envelope.EncryptedDek
	stored.KmsKeyID = envelope.KmsKeyID
	stored.Nonce = envelope.Nonce
	stored.Tag = envelope.Tag
	stored.Metadata = metadata
	stored.Version = expectedVersion + 1
	stored.UpdatedAt = now
	if input.Name != nil {
		stored.Name = *input.Name
	}

	err = s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		swapped, err := s.secretRepo.UpdateEnvelope(txCtx, stored, expectedVersion)
		if err != nil {
			return err
		}
		if !swapped {
			return apperrors.Wrap(apperrors.ErrConflict, "secret was modified concurrently")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}

// Delete soft-deletes a secret. Deletion is terminal: the secret disappears
// from every read path and there is no undelete.
func (s *secretUseCase) Delete(
	ctx context.Context,
	ident identity.Identity,
	secretID uuid.UUID,
) (err error) {
	defer func() {
		if err != nil {
			s.emitAudit(ctx, auditDomain.SecretDeleteFailed, ident.SubjectID, secretID.String(), failureContext(err))
		} else {
			s.emitAudit(ctx, auditDomain.SecretDeleted, ident.SubjectID, secretID.String(), nil)
		}
	}()

	if _, err = s.authorize(ctx, access.ActionDelete, secretID, ident); err != nil {
		return err
	}

	return s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.secretRepo.SoftDelete(txCtx, secretID, time.Now().UTC())
	})
}

// GetMetadata retrieves a secret without decrypting it. Privileged roles may
// read metadata across owners; the envelope stays opaque.
func (s *secretUseCase) GetMetadata(
	ctx context.Context,
	ident identity.Identity,
	secretID uuid.UUID,
) (secret *secretsDomain.Secret, err error) {
	defer func() {
		if err != nil {
			s.emitAudit(ctx, auditDomain.SecretMetadataFailed, ident.SubjectID, secretID.String(), failureContext(err))
		} else {
			s.emitAudit(ctx, auditDomain.SecretMetadataViewed, ident.SubjectID, secretID.String(), nil)
		}
	}()

	return s.authorize(ctx, access.ActionReadMetadata, secretID, ident)
}

// List retrieves secret metadata with pagination. Owners see their own
// secrets; admin and auditor roles see all owners.
func (s *secretUseCase) List(
	ctx context.Context,
	ident identity.Identity,
	offset, limit int,
) (secrets []*secretsDomain.Secret, err error) {
	defer func() {
		if err != nil {
			s.emitAudit(ctx, auditDomain.SecretListFailed, ident.SubjectID, "", failureContext(err))
		} else {
			s.emitAudit(ctx, auditDomain.SecretListed, ident.SubjectID, "", map[string]any{
				"count": len(secrets),
			})
		}
	}()

	if ident.IsPrivileged() {
		return s.secretRepo.ListAll(ctx, offset, limit)
	}
	return s.secretRepo.ListByOwner(ctx, ident.SubjectID, offset, limit)
}

// Search retrieves secret metadata whose name contains nameQuery,
// case-insensitively. Search is always scoped to the caller's own secrets.
func (s *secretUseCase) Search(
	ctx context.Context,
	ident identity.Identity,
	nameQuery string,
	offset, limit int,
) (secrets []*secretsDomain.Secret, err error) {
	defer func() {
		if err != nil {
			s.emitAudit(ctx, auditDomain.SecretSearchFailed, ident.SubjectID, "", failureContext(err))
		} else {
			s.emitAudit(ctx, auditDomain.SecretSearched, ident.SubjectID, "", map[string]any{
				"count": len(secrets),
			})
		}
	}()

	if strings.TrimSpace(nameQuery) == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "search query cannot be blank")
	}

	return s.secretRepo.Search(ctx, ident.SubjectID, nameQuery, offset, limit)
}

// envelope holds the persistable output of one seal operation.
type envelope struct {
	Ciphertext   []byte
	EncryptedDek []byte
	KmsKeyID     string
	Nonce        []byte
	Tag          []byte
}

// seal runs the full envelope-encryption sequence: generate a fresh DEK,
// encrypt the plaintext under it, wrap the DEK under the master key. The DEK
// is zeroed before returning on every path. No storage is touched here, which
// keeps the no-partial-write invariant trivially true for crypto failures.
func (s *secretUseCase) seal(
	ctx context.Context,
	plaintext []byte,
) (*envelope, map[string]any, error) {
	dek, err := s.cryptoSvc.GenerateDek(ctx, cryptoDomain.DekLength)
	if err != nil {
		return nil, nil, err
	}
	defer cryptoDomain.Zero(dek)

	encrypted, err := s.cryptoSvc.Encrypt(ctx, dek, plaintext, nil)
	if err != nil {
		return nil, nil, err
	}

	wrapped, err := s.cryptoSvc.WrapDek(ctx, dek, s.masterKeyID)
	if err != nil {
		return nil, nil, err
	}

	metadata := map[string]any{
		"algorithm":      string(encrypted.Algorithm),
		"kms_algorithm":  wrapped.Algorithm,
		"schema_version": secretsDomain.MetadataSchemaVersion,
	}

	return &envelope{
		Ciphertext:   encrypted.Ciphertext,
		EncryptedDek: wrapped.WrappedKey,
		KmsKeyID:     wrapped.KMSKeyID,
		Nonce:        encrypted.Nonce,
		Tag:          encrypted.Tag,
	}, metadata, nil
}

// authorize fetches the secret and applies the access policy for action.
// A denial maps to ErrForbidden, or to ErrNotFound when the policy hides
// resource existence from non-owners.
func (s *secretUseCase) authorize(
	ctx context.Context,
	action access.Action,
	secretID uuid.UUID,
	ident identity.Identity,
) (*secretsDomain.Secret, error) {
	secret, err := s.secretRepo.Get(ctx, secretID)
	if err != nil {
		return nil, err
	}

	decision := s.evaluator.Evaluate(action, secret.OwnerID, ident)
	if !decision.Allowed {
		if decision.Reason == access.DenyNotFound {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.ErrForbidden
	}

	return secret, nil
}

// emitAudit records the terminal audit event for an operation. It detaches
// from the caller's cancellation so a cancelled request cannot skip the event
// for steps already committed. Recording failures are logged and never mask
// the primary outcome.
func (s *secretUseCase) emitAudit(
	ctx context.Context,
	eventType auditDomain.EventType,
	actorID, resourceID string,
	eventContext map[string]any,
) {
	auditCtx := context.WithoutCancel(ctx)
	if err := s.auditor.Record(auditCtx, eventType, actorID, resourceID, eventContext); err != nil {
		s.logger.Error("audit event recording failed",
			"event_type", string(eventType),
			"actor_id", actorID,
			"resource_id", resourceID,
			"error", err,
		)
	}
}

// failureContext builds the audit context for a failed operation, recording
// only the machine-readable error kind, never raw error text or key material.
func failureContext(err error) map[string]any {
	return map[string]any{
		"error_kind": apperrors.Kind(err),
	}
}

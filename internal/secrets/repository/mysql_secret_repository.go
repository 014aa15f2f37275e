package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/lockbox/internal/database"
	apperrors "github.com/allisson/lockbox/internal/errors"
	secretsDomain "github.com/allisson/lockbox/internal/secrets/domain"
)

// MySQLSecretRepository implements Secret persistence for MySQL databases.
// UUIDs are stored as CHAR(36) strings since MySQL lacks a native UUID type.
type MySQLSecretRepository struct {
	db *sql.DB
}

// NewMySQLSecretRepository creates a new MySQL Secret repository instance.
func NewMySQLSecretRepository(db *sql.DB) *MySQLSecretRepository {
	return &MySQLSecretRepository{db: db}
}

// Create inserts a new secret with its full envelope into the database.
func (m *MySQLSecretRepository) Create(ctx context.Context, secret *secretsDomain.Secret) error {
	querier := database.GetTx(ctx, m.db)

	metadataJSON, err := marshalMetadata(secret.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO secrets (id, owner_id, name, ciphertext, encrypted_dek, kms_key_id, nonce, tag, metadata, version, is_deleted, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		secret.ID.String(),
		secret.OwnerID,
		secret.Name,
		secret.Ciphertext,
		secret.EncryptedDek,
		secret.KmsKeyID,
		secret.Nonce,
		secret.Tag,
		metadataJSON,
		secret.Version,
		secret.IsDeleted,
		secret.CreatedAt,
		secret.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create secret")
	}
	return nil
}

// Get retrieves a non-deleted secret by its ID. Soft-deleted secrets are
// indistinguishable from absent ones.
func (m *MySQLSecretRepository) Get(
	ctx context.Context,
	secretID uuid.UUID,
) (*secretsDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	query := secretColumnsQuery + ` WHERE id = ? AND is_deleted = false`

	row := querier.QueryRowContext(ctx, query, secretID.String())
	secret, err := scanSecretRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get secret")
	}

	return secret, nil
}

// UpdateName updates only the secret's display name; the envelope and version
// are untouched.
func (m *MySQLSecretRepository) UpdateName(
	ctx context.Context,
	secretID uuid.UUID,
	name string,
	updatedAt time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE secrets SET name = ?, updated_at = ? WHERE id = ? AND is_deleted = false`

	result, err := querier.ExecContext(ctx, query, name, updatedAt, secretID.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to update secret name")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check update result")
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// UpdateEnvelope replaces the full envelope (and name) of a secret using a
// compare-and-swap on the version column. Returns false without error when
// the expected version no longer matches.
func (m *MySQLSecretRepository) UpdateEnvelope(
	ctx context.Context,
	secret *secretsDomain.Secret,
	expectedVersion uint,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	metadataJSON, err := marshalMetadata(secret.Metadata)
	if err != nil {
		return false, err
	}

	query := `UPDATE secrets
			  SET name = ?, ciphertext = ?, encrypted_dek = ?, kms_key_id = ?, nonce = ?, tag = ?, metadata = ?, version = ?, updated_at = ?
			  WHERE id = ? AND version = ? AND is_deleted = false`

	result, err := querier.ExecContext(
		ctx,
		query,
		secret.Name,
		secret.Ciphertext,
		secret.EncryptedDek,
		secret.KmsKeyID,
		secret.Nonce,
		secret.Tag,
		metadataJSON,
		secret.Version,
		secret.UpdatedAt,
		secret.ID.String(),
		expectedVersion,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to update secret envelope")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check update result")
	}

	return affected > 0, nil
}

// SoftDelete marks a secret as deleted. The row and its envelope are retained
// for audit purposes but become invisible to all read paths.
func (m *MySQLSecretRepository) SoftDelete(
	ctx context.Context,
	secretID uuid.UUID,
	deletedAt time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE secrets SET is_deleted = true, updated_at = ? WHERE id = ? AND is_deleted = false`

	result, err := querier.ExecContext(ctx, query, deletedAt, secretID.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to delete secret")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check delete result")
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// ListByOwner retrieves non-deleted secrets for one owner ordered by
// created_at descending with pagination.
func (m *MySQLSecretRepository) ListByOwner(
	ctx context.Context,
	ownerID string,
	offset, limit int,
) ([]*secretsDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	query := secretColumnsQuery + ` WHERE owner_id = ? AND is_deleted = false
			  ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secrets by owner")
	}

	return collectSecrets(rows)
}

// ListAll retrieves all non-deleted secrets ordered by created_at descending
// with pagination. Used by privileged readers only.
func (m *MySQLSecretRepository) ListAll(
	ctx context.Context,
	offset, limit int,
) ([]*secretsDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	query := secretColumnsQuery + ` WHERE is_deleted = false
			  ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secrets")
	}

	return collectSecrets(rows)
}

// Search retrieves non-deleted secrets for one owner whose name contains the
// query, case-insensitively, ordered by created_at descending.
func (m *MySQLSecretRepository) Search(
	ctx context.Context,
	ownerID, nameQuery string,
	offset, limit int,
) ([]*secretsDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	query := secretColumnsQuery + ` WHERE owner_id = ? AND is_deleted = false
			  AND LOWER(name) LIKE CONCAT('%', LOWER(?), '%')
			  ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, ownerID, nameQuery, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to search secrets")
	}

	return collectSecrets(rows)
}

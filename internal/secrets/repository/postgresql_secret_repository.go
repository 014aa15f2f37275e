// Package repository implements data persistence for secret management.
// Repositories support both PostgreSQL and MySQL with soft deletion and
// optimistic locking on the envelope version.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/lockbox/internal/database"
	apperrors "github.com/allisson/lockbox/internal/errors"
	secretsDomain "github.com/allisson/lockbox/internal/secrets/domain"
)

// PostgreSQLSecretRepository implements Secret persistence for PostgreSQL databases.
type PostgreSQLSecretRepository struct {
	db *sql.DB
}

// NewPostgreSQLSecretRepository creates a new PostgreSQL Secret repository instance.
func NewPostgreSQLSecretRepository(db *sql.DB) *PostgreSQLSecretRepository {
	return &PostgreSQLSecretRepository{db: db}
}

// Create inserts a new secret with its full envelope into the database.
func (p *PostgreSQLSecretRepository) Create(ctx context.Context, secret *secretsDomain.Secret) error {
	querier := database.GetTx(ctx, p.db)

	metadataJSON, err := marshalMetadata(secret.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO secrets (id, owner_id, name, ciphertext, encrypted_dek, kms_key_id, nonce, tag, metadata, version, is_deleted, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = querier.ExecContext(
		ctx,
		query,
		secret.ID,
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
func (p *PostgreSQLSecretRepository) Get(
	ctx context.Context,
	secretID uuid.UUID,
) (*secretsDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	query := secretColumnsQuery + ` WHERE id = $1 AND is_deleted = false`

	row := querier.QueryRowContext(ctx, query, secretID)
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
func (p *PostgreSQLSecretRepository) UpdateName(
	ctx context.Context,
	secretID uuid.UUID,
	name string,
	updatedAt time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE secrets SET name = $1, updated_at = $2 WHERE id = $3 AND is_deleted = false`

	result, err := querier.ExecContext(ctx, query, name, updatedAt, secretID)
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
// the expected version no longer matches, which signals a lost concurrent
// update race.
func (p *PostgreSQLSecretRepository) UpdateEnvelope(
	ctx context.Context,
	secret *secretsDomain.Secret,
	expectedVersion uint,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	metadataJSON, err := marshalMetadata(secret.Metadata)
	if err != nil {
		return false, err
	}

	query := `UPDATE secrets
			  SET name = $1, ciphertext = $2, encrypted_dek = $3, kms_key_id = $4, nonce = $5, tag = $6, metadata = $7, version = $8, updated_at = $9
			  WHERE id = $10 AND version = $11 AND is_deleted = false`

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
		secret.ID,
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
func (p *PostgreSQLSecretRepository) SoftDelete(
	ctx context.Context,
	secretID uuid.UUID,
	deletedAt time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE secrets SET is_deleted = true, updated_at = $1 WHERE id = $2 AND is_deleted = false`

	result, err := querier.ExecContext(ctx, query, deletedAt, secretID)
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
func (p *PostgreSQLSecretRepository) ListByOwner(
	ctx context.Context,
	ownerID string,
	offset, limit int,
) ([]*secretsDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	query := secretColumnsQuery + ` WHERE owner_id = $1 AND is_deleted = false
			  ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secrets by owner")
	}

	return collectSecrets(rows)
}

// ListAll retrieves all non-deleted secrets ordered by created_at descending
// with pagination. Used by privileged readers only.
func (p *PostgreSQLSecretRepository) ListAll(
	ctx context.Context,
	offset, limit int,
) ([]*secretsDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	query := secretColumnsQuery + ` WHERE is_deleted = false
			  ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secrets")
	}

	return collectSecrets(rows)
}

// Search retrieves non-deleted secrets for one owner whose name contains the
// query, case-insensitively, ordered by created_at descending.
func (p *PostgreSQLSecretRepository) Search(
	ctx context.Context,
	ownerID, nameQuery string,
	offset, limit int,
) ([]*secretsDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	query := secretColumnsQuery + ` WHERE owner_id = $1 AND is_deleted = false
			  AND LOWER(name) LIKE '%' || LOWER($2) || '%'
			  ORDER BY created_at DESC LIMIT $3 OFFSET $4`

	rows, err := querier.QueryContext(ctx, query, ownerID, nameQuery, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to search secrets")
	}

	return collectSecrets(rows)
}

// secretColumnsQuery is the shared SELECT column list for secret scans.
const secretColumnsQuery = `SELECT id, owner_id, name, ciphertext, encrypted_dek, kms_key_id, nonce, tag, metadata, version, is_deleted, created_at, updated_at
			  FROM secrets`

// rowScanner abstracts sql.Row and sql.Rows for shared scanning logic.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSecretRow scans one secret row including its JSON metadata column.
func scanSecretRow(row rowScanner) (*secretsDomain.Secret, error) {
	var secret secretsDomain.Secret
	var metadataJSON []byte

	err := row.Scan(
		&secret.ID,
		&secret.OwnerID,
		&secret.Name,
		&secret.Ciphertext,
		&secret.EncryptedDek,
		&secret.KmsKeyID,
		&secret.Nonce,
		&secret.Tag,
		&metadataJSON,
		&secret.Version,
		&secret.IsDeleted,
		&secret.CreatedAt,
		&secret.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &secret.Metadata); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal secret metadata")
		}
	}

	return &secret, nil
}

// collectSecrets drains a result set into a slice, always returning an empty
// slice rather than nil for empty results.
func collectSecrets(rows *sql.Rows) ([]*secretsDomain.Secret, error) {
	defer func() {
		_ = rows.Close()
	}()

	secrets := make([]*secretsDomain.Secret, 0)
	for rows.Next() {
		secret, err := scanSecretRow(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan secret")
		}
		secrets = append(secrets, secret)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate secrets")
	}

	return secrets, nil
}

// marshalMetadata encodes the metadata map for storage, mapping nil to NULL.
func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal secret metadata")
	}
	return metadataJSON, nil
}

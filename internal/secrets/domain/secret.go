// Package domain defines the core entities for secret management.
// Secrets are stored with envelope encryption: the value is encrypted with a
// per-secret data encryption key (DEK), and the DEK is stored wrapped by a
// key-management service. Plaintext never reaches persistent storage.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MetadataSchemaVersion identifies the layout of the Metadata map so future
// envelope changes can be migrated per row.
const MetadataSchemaVersion = 1

// Secret represents an encrypted secret with its full envelope. The
// Ciphertext, EncryptedDek, Nonce and Tag fields hold the envelope components;
// Plaintext is populated only in memory during a reveal and must be zeroed by
// the caller after use.
type Secret struct {
	ID           uuid.UUID      `json:"id"`
	OwnerID      string         `json:"owner_id"`
	Name         string         `json:"name"`
	Ciphertext   []byte         `json:"-"`
	EncryptedDek []byte         `json:"-"`
	KmsKeyID     string         `json:"-"`
	Nonce        []byte         `json:"-"`
	Tag          []byte         `json:"-"`
	Metadata     map[string]any `json:"metadata"`
	Version      uint           `json:"version"`
	IsDeleted    bool           `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Plaintext    []byte         `json:"-"`
}

// Package service provides clients for the external cryptographic service.
// Two implementations exist: a remote HTTP client for the dedicated crypto
// service, and an in-process provider backed by a gocloud.dev KMS keeper.
// Neither implementation ever logs key material or call results verbatim.
package service

import (
	"context"

	cryptoDomain "github.com/allisson/lockbox/internal/crypto/domain"
)

// CryptoService is the typed boundary to the cryptographic service.
//
// Every call can fail independently; failures map to apperrors.ErrCryptoService,
// except an authentication-tag mismatch on Decrypt which maps to
// apperrors.ErrIntegrity.
type CryptoService interface {
	// GenerateDek returns freshly generated key material of the given byte length.
	GenerateDek(ctx context.Context, length int) ([]byte, error)

	// Encrypt performs an AEAD encryption of plaintext under key.
	// The optional aad is authenticated but not encrypted.
	Encrypt(ctx context.Context, key, plaintext, aad []byte) (*cryptoDomain.EncryptResult, error)

	// Decrypt reverses Encrypt. The same nonce, tag and aad supplied at
	// encryption time are required; a tag mismatch returns ErrIntegrity.
	Decrypt(ctx context.Context, key, ciphertext, nonce, tag, aad []byte) ([]byte, error)

	// WrapDek encrypts key material under the master key identified by
	// masterKeyID. The result records the master key actually used.
	WrapDek(ctx context.Context, dek []byte, masterKeyID string) (*cryptoDomain.WrapResult, error)

	// UnwrapDek decrypts a wrapped data encryption key using the master key
	// identified by masterKeyID.
	UnwrapDek(ctx context.Context, wrappedKey []byte, masterKeyID string) ([]byte, error)
}

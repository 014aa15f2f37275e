package service

import (
	"context"
	"crypto/rand"

	cryptoDomain "github.com/allisson/lockbox/internal/crypto/domain"
	apperrors "github.com/allisson/lockbox/internal/errors"
)

// LocalCryptoService implements CryptoService in-process: key generation with
// crypto/rand, AEAD encryption with AES-256-GCM or ChaCha20-Poly1305, and
// wrap/unwrap through a gocloud.dev KMS keeper. It exists for deployments
// that cannot reach the dedicated crypto service and for tests.
type LocalCryptoService struct {
	keeper    KMSKeeper
	keeperID  string
	algorithm cryptoDomain.Algorithm
}

// NewLocalCryptoService creates an in-process crypto provider. The keeper
// handles master-key operations; keeperID is the identifier recorded as the
// kms_key_id of every wrap (the keeper URI for gocloud.dev keepers).
func NewLocalCryptoService(
	keeper KMSKeeper,
	keeperID string,
	algorithm cryptoDomain.Algorithm,
) *LocalCryptoService {
	return &LocalCryptoService{
		keeper:    keeper,
		keeperID:  keeperID,
		algorithm: algorithm,
	}
}

// GenerateDek returns freshly generated random key material.
func (l *LocalCryptoService) GenerateDek(ctx context.Context, length int) ([]byte, error) {
	dek := make([]byte, length)
	if _, err := rand.Read(dek); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCryptoService, "failed to generate key material")
	}
	return dek, nil
}

// Encrypt performs an AEAD encryption under key with the configured algorithm.
func (l *LocalCryptoService) Encrypt(
	ctx context.Context,
	key, plaintext, aad []byte,
) (*cryptoDomain.EncryptResult, error) {
	cipher, err := newAEADCipher(key, l.algorithm)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCryptoService, err.Error())
	}

	ciphertext, nonce, tag, err := cipher.Encrypt(plaintext, aad)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCryptoService, "encryption failed")
	}

	return &cryptoDomain.EncryptResult{
		Ciphertext: ciphertext,
		Nonce:      nonce,
		Tag:        tag,
		Algorithm:  l.algorithm,
	}, nil
}

// Decrypt authenticates and decrypts ciphertext. Tag mismatch surfaces as
// ErrIntegrity from the underlying cipher.
func (l *LocalCryptoService) Decrypt(
	ctx context.Context,
	key, ciphertext, nonce, tag, aad []byte,
) ([]byte, error) {
	cipher, err := newAEADCipher(key, l.algorithm)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCryptoService, err.Error())
	}

	return cipher.Decrypt(ciphertext, nonce, tag, aad)
}

// WrapDek encrypts the data encryption key under the keeper's master key.
// The masterKeyID argument is accepted for interface parity; the local
// provider always uses its configured keeper.
func (l *LocalCryptoService) WrapDek(
	ctx context.Context,
	dek []byte,
	masterKeyID string,
) (*cryptoDomain.WrapResult, error) {
	wrapped, err := l.keeper.Encrypt(ctx, dek)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCryptoService, "failed to wrap key")
	}

	return &cryptoDomain.WrapResult{
		WrappedKey: wrapped,
		KMSKeyID:   l.keeperID,
		Algorithm:  string(l.algorithm),
	}, nil
}

// UnwrapDek decrypts a wrapped data encryption key with the keeper's master key.
func (l *LocalCryptoService) UnwrapDek(
	ctx context.Context,
	wrappedKey []byte,
	masterKeyID string,
) ([]byte, error) {
	dek, err := l.keeper.Decrypt(ctx, wrappedKey)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCryptoService, "failed to unwrap key")
	}
	return dek, nil
}

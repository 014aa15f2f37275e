package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	cryptoDomain "github.com/allisson/lockbox/internal/crypto/domain"
	apperrors "github.com/allisson/lockbox/internal/errors"
)

// aeadCipher is the AEAD contract used by the local crypto provider. Unlike
// the combined Seal output of crypto/cipher, the authentication tag is carried
// as a separate value so it can be persisted in its own column.
type aeadCipher interface {
	// Encrypt encrypts plaintext and returns ciphertext, a fresh random
	// nonce, and the authentication tag as separate values.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce, tag []byte, err error)

	// Decrypt authenticates and decrypts ciphertext. A tag mismatch or
	// corrupted ciphertext returns ErrIntegrity.
	Decrypt(ciphertext, nonce, tag, aad []byte) ([]byte, error)
}

// newAEADCipher creates an AEAD cipher instance for the given algorithm.
// The key must be exactly 32 bytes (256 bits).
func newAEADCipher(key []byte, alg cryptoDomain.Algorithm) (aeadCipher, error) {
	if len(key) != cryptoDomain.DekLength {
		return nil, errors.New("key must be exactly 32 bytes")
	}

	switch alg {
	case cryptoDomain.AESGCM:
		return newAESGCM(key)
	case cryptoDomain.ChaCha20:
		return newChaCha20Poly1305(key)
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", alg)
	}
}

// splitTagCipher wraps a crypto/cipher AEAD and separates the authentication
// tag from the sealed output. Both AES-GCM and ChaCha20-Poly1305 append a
// 16-byte tag, exposed via Overhead().
type splitTagCipher struct {
	aead cipher.AEAD
}

// Encrypt seals plaintext under a fresh random nonce and splits the
// authentication tag off the sealed output. Nonces are single-use: a new one
// is generated per call and must never be reused with the same key.
func (s *splitTagCipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce, tag []byte, err error) {
	nonce = make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nil, nonce, plaintext, aad)
	tagSize := s.aead.Overhead()
	boundary := len(sealed) - tagSize

	return sealed[:boundary], nonce, sealed[boundary:], nil
}

// Decrypt reassembles the sealed form and opens it. Authentication failure
// returns ErrIntegrity without any plaintext.
func (s *splitTagCipher) Decrypt(ciphertext, nonce, tag, aad []byte) ([]byte, error) {
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := s.aead.Open(nil, nonce, sealed, aad)
	if err != nil {
		return nil, apperrors.ErrIntegrity
	}
	return plaintext, nil
}

// newAESGCM creates an AES-256-GCM cipher with a 12-byte nonce and 16-byte tag.
// AES-GCM is hardware-accelerated on most modern processors and is the default
// algorithm for the local provider.
func newAESGCM(key []byte) (*splitTagCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &splitTagCipher{aead: aead}, nil
}

// newChaCha20Poly1305 creates a ChaCha20-Poly1305 cipher. Preferred on
// platforms without AES hardware acceleration.
func newChaCha20Poly1305(key []byte) (*splitTagCipher, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 cipher: %w", err)
	}

	return &splitTagCipher{aead: aead}, nil
}

// Package domain defines the types exchanged with the cryptographic service.
// All key material is transient: data encryption keys exist unwrapped only for
// the duration of a single lifecycle operation and are never persisted.
package domain

// Algorithm identifies an AEAD algorithm supported by the cryptographic service.
type Algorithm string

// Supported algorithms.
const (
	AESGCM   Algorithm = "AES-256-GCM"
	ChaCha20 Algorithm = "ChaCha20-Poly1305"
)

// DekLength is the data encryption key length in bytes (256 bits).
const DekLength = 32

// EncryptResult is the outcome of an AEAD encryption call. Ciphertext, nonce
// and tag are opaque blobs; only the algorithm identifier is audit-safe.
type EncryptResult struct {
	Ciphertext []byte
	Nonce      []byte
	Tag        []byte
	Algorithm  Algorithm
}

// WrapResult is the outcome of wrapping a data encryption key under a
// key-management-service master key. KMSKeyID records the master key actually
// used, which is required for a later unwrap.
type WrapResult struct {
	WrappedKey []byte
	KMSKeyID   string
	Algorithm  string
}

// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	secretsDomain "github.com/allisson/lockbox/internal/secrets/domain"
)

// SecretResponse represents a secret in API responses.
// SECURITY: The Value field contains plaintext and is only populated by the
// reveal endpoint. Must be transmitted over HTTPS in production.
type SecretResponse struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"owner_id"`
	Name      string         `json:"name"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Version   uint           `json:"version"`
	Value     []byte         `json:"value,omitempty"` // Only populated by reveal
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// MapSecretToMetadataResponse converts a domain secret to an API response
// without the plaintext value.
func MapSecretToMetadataResponse(secret *secretsDomain.Secret) SecretResponse {
	return SecretResponse{
		ID:        secret.ID.String(),
		OwnerID:   secret.OwnerID,
		Name:      secret.Name,
		Metadata:  secret.Metadata,
		Version:   secret.Version,
		CreatedAt: secret.CreatedAt,
		UpdatedAt: secret.UpdatedAt,
	}
}

// MapSecretToRevealResponse converts a domain secret to an API response
// including the plaintext value. SECURITY: Caller must zero plaintext from
// the domain object after the response is written using
// cryptoDomain.Zero(secret.Plaintext).
func MapSecretToRevealResponse(secret *secretsDomain.Secret) SecretResponse {
	response := MapSecretToMetadataResponse(secret)
	response.Value = secret.Plaintext
	return response
}

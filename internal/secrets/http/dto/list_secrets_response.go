// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	secretsDomain "github.com/allisson/lockbox/internal/secrets/domain"
)

// ListSecretsResponse represents a paginated list of secrets in API responses.
// Entries carry metadata only, never plaintext.
type ListSecretsResponse struct {
	Data []SecretResponse `json:"data"`
}

// MapSecretsToListResponse converts a slice of domain secrets to a list response.
func MapSecretsToListResponse(secrets []*secretsDomain.Secret) ListSecretsResponse {
	data := make([]SecretResponse, 0, len(secrets))
	for _, secret := range secrets {
		data = append(data, MapSecretToMetadataResponse(secret))
	}

	return ListSecretsResponse{
		Data: data,
	}
}

// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"
	"github.com/jellydator/validation/is"

	customValidation "github.com/allisson/lockbox/internal/validation"
)

// CreateSecretRequest contains the parameters for creating a secret.
// Value carries the plaintext encoded as standard base64.
type CreateSecretRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Validate checks if the create secret request is valid.
func (r *CreateSecretRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&r.Value,
			validation.Required,
			is.Base64,
		),
	)
}

// UpdateSecretRequest contains the parameters for updating a secret. Both
// fields are optional but at least one must be supplied; Value carries the
// new plaintext encoded as standard base64.
type UpdateSecretRequest struct {
	Name  *string `json:"name"`
	Value *string `json:"value"`
}

// Validate checks if the update secret request is valid.
func (r *UpdateSecretRequest) Validate() error {
	if r.Name == nil && r.Value == nil {
		return validation.NewError("validation_update_empty", "either name or value must be provided")
	}

	return validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.NilOrNotEmpty,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&r.Value,
			validation.NilOrNotEmpty,
			is.Base64,
		),
	)
}

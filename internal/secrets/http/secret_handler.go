// Package http provides HTTP handlers for secret management operations.
// Secrets are encrypted at rest using envelope encryption; plaintext appears
// only in reveal responses and is zeroed immediately after writing.
package http

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/lockbox/internal/crypto/domain"
	"github.com/allisson/lockbox/internal/httputil"
	"github.com/allisson/lockbox/internal/identity"
	"github.com/allisson/lockbox/internal/secrets/http/dto"
	secretsUseCase "github.com/allisson/lockbox/internal/secrets/usecase"
	customValidation "github.com/allisson/lockbox/internal/validation"
)

// SecretHandler handles HTTP requests for secret management operations.
// It resolves the caller identity from the request context and delegates to
// the secret lifecycle engine, which applies the access policy and audits.
type SecretHandler struct {
	secretUseCase secretsUseCase.SecretUseCase
	logger        *slog.Logger
}

// NewSecretHandler creates a new secret handler with required dependencies.
func NewSecretHandler(
	secretUseCase secretsUseCase.SecretUseCase,
	logger *slog.Logger,
) *SecretHandler {
	return &SecretHandler{
		secretUseCase: secretUseCase,
		logger:        logger,
	}
}

// CreateHandler creates a new secret.
// POST /v1/secrets
// Returns 201 Created with secret metadata (never echoes the plaintext value).
func (h *SecretHandler) CreateHandler(c *gin.Context) {
	ident, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req dto.CreateSecretRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	value, err := base64.StdEncoding.DecodeString(req.Value)
	if err != nil {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("invalid base64 value: %w", err),
			h.logger,
		)
		return
	}

	secret, err := h.secretUseCase.Create(c.Request.Context(), ident, req.Name, value)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.MapSecretToMetadataResponse(secret)
	c.JSON(http.StatusCreated, response)
}

// GetHandler retrieves secret metadata without decrypting the value.
// GET /v1/secrets/:id
// Returns 200 OK with metadata only.
func (h *SecretHandler) GetHandler(c *gin.Context) {
	ident, ok := callerIdentity(c)
	if !ok {
		return
	}

	secretID, ok := secretIDParam(c, h.logger)
	if !ok {
		return
	}

	secret, err := h.secretUseCase.GetMetadata(c.Request.Context(), ident, secretID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.MapSecretToMetadataResponse(secret)
	c.JSON(http.StatusOK, response)
}

// RevealHandler retrieves and decrypts a secret.
// POST /v1/secrets/:id/reveal
// Returns 200 OK with the plaintext value. SECURITY: Plaintext is zeroed
// after the response is written.
func (h *SecretHandler) RevealHandler(c *gin.Context) {
	ident, ok := callerIdentity(c)
	if !ok {
		return
	}

	secretID, ok := secretIDParam(c, h.logger)
	if !ok {
		return
	}

	secret, err := h.secretUseCase.Reveal(c.Request.Context(), ident, secretID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	// SECURITY: Zero plaintext after mapping to response
	defer cryptoDomain.Zero(secret.Plaintext)

	response := dto.MapSecretToRevealResponse(secret)
	c.JSON(http.StatusOK, response)
}

// UpdateHandler updates a secret's name, value or both. A value update
// re-encrypts under a fresh envelope and increments the version.
// PUT /v1/secrets/:id
// Returns 200 OK with updated metadata.
func (h *SecretHandler) UpdateHandler(c *gin.Context) {
	ident, ok := callerIdentity(c)
	if !ok {
		return
	}

	secretID, ok := secretIDParam(c, h.logger)
	if !ok {
		return
	}

	var req dto.UpdateSecretRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input := secretsUseCase.UpdateInput{Name: req.Name}
	if req.Value != nil {
		value, err := base64.StdEncoding.DecodeString(*req.Value)
		if err != nil {
			httputil.HandleValidationErrorGin(
				c,
				fmt.Errorf("invalid base64 value: %w", err),
				h.logger,
			)
			return
		}
		input.Plaintext = value
	}

	secret, err := h.secretUseCase.Update(c.Request.Context(), ident, secretID, input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.MapSecretToMetadataResponse(secret)
	c.JSON(http.StatusOK, response)
}

// DeleteHandler soft deletes a secret. Deletion is terminal.
// DELETE /v1/secrets/:id
// Returns 204 No Content.
func (h *SecretHandler) DeleteHandler(c *gin.Context) {
	ident, ok := callerIdentity(c)
	if !ok {
		return
	}

	secretID, ok := secretIDParam(c, h.logger)
	if !ok {
		return
	}

	if err := h.secretUseCase.Delete(c.Request.Context(), ident, secretID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// ListHandler retrieves secret metadata with pagination support.
// GET /v1/secrets?offset=0&limit=50
// Returns 200 OK with a paginated list; plaintext values are never included.
func (h *SecretHandler) ListHandler(c *gin.Context) {
	ident, ok := callerIdentity(c)
	if !ok {
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	secrets, err := h.secretUseCase.List(c.Request.Context(), ident, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.MapSecretsToListResponse(secrets)
	c.JSON(http.StatusOK, response)
}

// SearchHandler retrieves the caller's secrets whose name contains the query,
// case-insensitively.
// GET /v1/secrets/search?q=term&offset=0&limit=50
// Returns 200 OK with a paginated list; plaintext values are never included.
func (h *SecretHandler) SearchHandler(c *gin.Context) {
	ident, ok := callerIdentity(c)
	if !ok {
		return
	}

	query := c.Query("q")
	if query == "" {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("query parameter q cannot be empty"),
			h.logger,
		)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	secrets, err := h.secretUseCase.Search(c.Request.Context(), ident, query, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.MapSecretsToListResponse(secrets)
	c.JSON(http.StatusOK, response)
}

// callerIdentity resolves the authenticated identity from the request
// context. The identity middleware always sets it; a missing identity means
// the route was wired without the middleware, which is refused outright.
func callerIdentity(c *gin.Context) (identity.Identity, bool) {
	ident, ok := identity.GetIdentity(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httputil.ErrorResponse{
			Error:   "unauthorized",
			Message: "missing caller identity",
		})
		return identity.Identity{}, false
	}
	return ident, true
}

// secretIDParam parses the :id path parameter as a UUID.
func secretIDParam(c *gin.Context, logger *slog.Logger) (uuid.UUID, bool) {
	secretID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("invalid secret id: must be a valid UUID"),
			logger,
		)
		return uuid.Nil, false
	}
	return secretID, true
}

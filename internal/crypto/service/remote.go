package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	cryptoDomain "github.com/allisson/lockbox/internal/crypto/domain"
	apperrors "github.com/allisson/lockbox/internal/errors"
)

// RemoteCryptoService implements CryptoService against the dedicated
// cryptographic service over HTTP. Payloads carry key material and plaintext
// base64-encoded; responses are decoded and returned as raw bytes.
//
// The client never logs request or response bodies. Callers own zeroing of
// returned key material.
type RemoteCryptoService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// RemoteConfig holds the remote crypto service connection settings.
type RemoteConfig struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRemoteCryptoService creates a new HTTP client for the cryptographic service.
// If cfg.Client is nil, http.DefaultClient is used; production configuration
// supplies a client with a timeout.
func NewRemoteCryptoService(cfg RemoteConfig) *RemoteCryptoService {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteCryptoService{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  client,
	}
}

// generateDekRequest and friends mirror the crypto service wire format.
type generateDekRequest struct {
	Length int `json:"length"`
}

type generateDekResponse struct {
	Dek string `json:"dek"`
}

type encryptRequest struct {
	Dek       string `json:"dek"`
	Plaintext string `json:"plaintext"`
	Aad       string `json:"aad,omitempty"`
}

type encryptResponse struct {
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
	Tag        string `json:"tag"`
	Algorithm  string `json:"algorithm"`
}

type decryptRequest struct {
	Dek        string `json:"dek"`
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
	Tag        string `json:"tag"`
	Aad        string `json:"aad,omitempty"`
}

type decryptResponse struct {
	Plaintext string `json:"plaintext"`
}

type wrapDekRequest struct {
	Dek      string `json:"dek"`
	KmsKeyID string `json:"kms_key_id"`
}

type wrapDekResponse struct {
	EncryptedDek string `json:"encrypted_dek"`
	KmsKeyID     string `json:"kms_key_id"`
	Algorithm    string `json:"algorithm"`
}

type unwrapDekRequest struct {
	EncryptedDek string `json:"encrypted_dek"`
	KmsKeyID     string `json:"kms_key_id"`
}

type unwrapDekResponse struct {
	Dek string `json:"dek"`
}

// GenerateDek requests freshly generated key material from the crypto service.
func (r *RemoteCryptoService) GenerateDek(ctx context.Context, length int) ([]byte, error) {
	var resp generateDekResponse
	if err := r.post(ctx, "/crypto/generate-dek", generateDekRequest{Length: length}, &resp); err != nil {
		return nil, err
	}
	return decodeField(resp.Dek, "dek")
}

// Encrypt performs an AEAD encryption through the crypto service.
func (r *RemoteCryptoService) Encrypt(
	ctx context.Context,
	key, plaintext, aad []byte,
) (*cryptoDomain.EncryptResult, error) {
	req := encryptRequest{
		Dek:       base64.StdEncoding.EncodeToString(key),
		Plaintext: base64.StdEncoding.EncodeToString(plaintext),
	}
	if aad != nil {
		req.Aad = base64.StdEncoding.EncodeToString(aad)
	}

	var resp encryptResponse
	if err := r.post(ctx, "/crypto/encrypt", req, &resp); err != nil {
		return nil, err
	}

	ciphertext, err := decodeField(resp.Ciphertext, "ciphertext")
	if err != nil {
		return nil, err
	}
	nonce, err := decodeField(resp.Nonce, "nonce")
	if err != nil {
		return nil, err
	}
	tag, err := decodeField(resp.Tag, "tag")
	if err != nil {
		return nil, err
	}

	return &cryptoDomain.EncryptResult{
		Ciphertext: ciphertext,
		Nonce:      nonce,
		Tag:        tag,
		Algorithm:  cryptoDomain.Algorithm(resp.Algorithm),
	}, nil
}

// Decrypt reverses Encrypt through the crypto service. The service reports an
// authentication failure with a 400 status, which surfaces as ErrIntegrity.
func (r *RemoteCryptoService) Decrypt(
	ctx context.Context,
	key, ciphertext, nonce, tag, aad []byte,
) ([]byte, error) {
	req := decryptRequest{
		Dek:        base64.StdEncoding.EncodeToString(key),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Tag:        base64.StdEncoding.EncodeToString(tag),
	}
	if aad != nil {
		req.Aad = base64.StdEncoding.EncodeToString(aad)
	}

	var resp decryptResponse
	if err := r.postWithIntegrity(ctx, "/crypto/decrypt", req, &resp); err != nil {
		return nil, err
	}
	return decodeField(resp.Plaintext, "plaintext")
}

// WrapDek wraps key material under the given master key through the crypto service.
func (r *RemoteCryptoService) WrapDek(
	ctx context.Context,
	dek []byte,
	masterKeyID string,
) (*cryptoDomain.WrapResult, error) {
	req := wrapDekRequest{
		Dek:      base64.StdEncoding.EncodeToString(dek),
		KmsKeyID: masterKeyID,
	}

	var resp wrapDekResponse
	if err := r.post(ctx, "/crypto/wrap-dek", req, &resp); err != nil {
		return nil, err
	}

	wrapped, err := decodeField(resp.EncryptedDek, "encrypted_dek")
	if err != nil {
		return nil, err
	}

	return &cryptoDomain.WrapResult{
		WrappedKey: wrapped,
		KMSKeyID:   resp.KmsKeyID,
		Algorithm:  resp.Algorithm,
	}, nil
}

// UnwrapDek unwraps a wrapped data encryption key through the crypto service.
func (r *RemoteCryptoService) UnwrapDek(
	ctx context.Context,
	wrappedKey []byte,
	masterKeyID string,
) ([]byte, error) {
	req := unwrapDekRequest{
		EncryptedDek: base64.StdEncoding.EncodeToString(wrappedKey),
		KmsKeyID:     masterKeyID,
	}

	var resp unwrapDekResponse
	if err := r.post(ctx, "/crypto/unwrap-dek", req, &resp); err != nil {
		return nil, err
	}
	return decodeField(resp.Dek, "dek")
}

// post executes a JSON POST and maps every failure to ErrCryptoService.
func (r *RemoteCryptoService) post(ctx context.Context, path string, reqBody, respBody any) error {
	status, err := r.doPost(ctx, path, reqBody, respBody)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return apperrors.Wrap(
			apperrors.ErrCryptoService,
			fmt.Sprintf("crypto service returned status %d for %s", status, path),
		)
	}
	return nil
}

// postWithIntegrity is post for the decrypt endpoint: the service signals an
// authentication-tag failure with a 400 status, which must surface as
// ErrIntegrity rather than a retryable service error.
func (r *RemoteCryptoService) postWithIntegrity(
	ctx context.Context,
	path string,
	reqBody, respBody any,
) error {
	status, err := r.doPost(ctx, path, reqBody, respBody)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest:
		return apperrors.ErrIntegrity
	default:
		return apperrors.Wrap(
			apperrors.ErrCryptoService,
			fmt.Sprintf("crypto service returned status %d for %s", status, path),
		)
	}
}

// doPost sends the request and decodes a successful response body into respBody.
// Transport-level failures map to ErrCryptoService.
func (r *RemoteCryptoService) doPost(
	ctx context.Context,
	path string,
	reqBody, respBody any,
) (int, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrCryptoService, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrCryptoService, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-API-Key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrCryptoService, "crypto service request failed")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return 0, apperrors.Wrap(apperrors.ErrCryptoService, "failed to decode response")
		}
	}

	return resp.StatusCode, nil
}

// decodeField decodes a base64 response field, mapping failures to ErrCryptoService.
func decodeField(value, name string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, apperrors.Wrap(
			apperrors.ErrCryptoService,
			fmt.Sprintf("invalid base64 in %s field", name),
		)
	}
	return decoded, nil
}

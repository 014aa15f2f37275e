package app

import (
	"context"
	"fmt"
	"net/http"

	cryptoDomain "github.com/allisson/lockbox/internal/crypto/domain"
	cryptoService "github.com/allisson/lockbox/internal/crypto/service"
)

// CryptoService returns the cryptographic service client selected by the
// CRYPTO_PROVIDER configuration ("remote" or "local").
func (c *Container) CryptoService() (cryptoService.CryptoService, error) {
	var err error
	c.cryptoServiceInit.Do(func() {
		c.cryptoService, err = c.initCryptoService()
		if err != nil {
			c.initErrors["cryptoService"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["cryptoService"]; exists {
		return nil, storedErr
	}
	return c.cryptoService, nil
}

// KMSKeeper returns the gocloud.dev keeper used by the local crypto provider.
func (c *Container) KMSKeeper() (cryptoService.KMSKeeper, error) {
	var err error
	c.kmsKeeperInit.Do(func() {
		c.kmsKeeper, err = cryptoService.OpenKeeper(context.Background(), c.config.KMSKeyID)
		if err != nil {
			c.initErrors["kmsKeeper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["kmsKeeper"]; exists {
		return nil, storedErr
	}
	return c.kmsKeeper, nil
}

// initCryptoService creates the crypto service client based on configuration.
func (c *Container) initCryptoService() (cryptoService.CryptoService, error) {
	switch c.config.CryptoProvider {
	case "remote":
		return cryptoService.NewRemoteCryptoService(cryptoService.RemoteConfig{
			BaseURL: c.config.CryptoServiceURL,
			APIKey:  c.config.CryptoServiceAPIKey,
			Client:  &http.Client{Timeout: c.config.CryptoServiceTimeout},
		}), nil

	case "local":
		algorithm, err := parseLocalAlgorithm(c.config.CryptoLocalAlgorithm)
		if err != nil {
			return nil, err
		}

		keeper, err := c.KMSKeeper()
		if err != nil {
			return nil, fmt.Errorf("failed to open kms keeper for local crypto provider: %w", err)
		}

		return cryptoService.NewLocalCryptoService(keeper, c.config.KMSKeyID, algorithm), nil

	default:
		return nil, fmt.Errorf("unsupported crypto provider: %s", c.config.CryptoProvider)
	}
}

// parseLocalAlgorithm converts the configured algorithm name to a domain algorithm.
func parseLocalAlgorithm(name string) (cryptoDomain.Algorithm, error) {
	switch name {
	case "aes-gcm":
		return cryptoDomain.AESGCM, nil
	case "chacha20-poly1305":
		return cryptoDomain.ChaCha20, nil
	default:
		return "", fmt.Errorf(
			"invalid local crypto algorithm: %s (valid options: aes-gcm, chacha20-poly1305)",
			name,
		)
	}
}

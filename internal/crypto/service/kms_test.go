package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/lockbox/internal/crypto/domain"
)

// base64key keeper with a fixed 256-bit key, usable without any cloud access.
const testKeeperURI = "base64key://smGbjm71Nxd1Ig5FS0wj9SlbzAIrnolCz9bQQ6uAhl4="

func TestOpenKeeper(t *testing.T) {
	t.Run("Base64KeyRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		keeper, err := OpenKeeper(ctx, testKeeperURI)
		require.NoError(t, err)
		defer func() { _ = keeper.Close() }()

		dek := []byte("0123456789abcdef0123456789abcdef")

		wrapped, err := keeper.Encrypt(ctx, dek)
		require.NoError(t, err)
		assert.NotEqual(t, dek, wrapped)

		unwrapped, err := keeper.Decrypt(ctx, wrapped)
		require.NoError(t, err)
		assert.Equal(t, dek, unwrapped)
	})

	t.Run("UnknownScheme", func(t *testing.T) {
		_, err := OpenKeeper(context.Background(), "bogus://key")

		assert.Error(t, err)
	})
}

func TestLocalCryptoService_WithBase64KeyKeeper(t *testing.T) {
	ctx := context.Background()

	keeper, err := OpenKeeper(ctx, testKeeperURI)
	require.NoError(t, err)
	defer func() { _ = keeper.Close() }()

	svc := NewLocalCryptoService(keeper, testKeeperURI, cryptoDomain.AESGCM)

	dek, err := svc.GenerateDek(ctx, cryptoDomain.DekLength)
	require.NoError(t, err)

	wrapResult, err := svc.WrapDek(ctx, dek, "")
	require.NoError(t, err)
	assert.Equal(t, testKeeperURI, wrapResult.KMSKeyID)

	unwrapped, err := svc.UnwrapDek(ctx, wrapResult.WrappedKey, "")
	require.NoError(t, err)
	assert.Equal(t, dek, unwrapped)
}

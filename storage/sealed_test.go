package storage_test

import (
	"testing"

	"github.com/jrsteele09/go-merch-storefront/internal/errors"
	"github.com/jrsteele09/go-merch-storefront/storage"
	"github.com/jrsteele09/go-merch-storefront/storage/memstore"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) *[32]byte {
	var k [32]byte
	for i := range k {
		k[i] = b
	}
	return &k
}

func TestSealedRepo(t *testing.T) {
	t.Run("sealed keys round trip and are not stored in clear", func(t *testing.T) {
		inner := memstore.New()
		repo := storage.Sealed(inner, testKey(7), storage.KeyAccessToken)

		require.NoError(t, repo.Set(storage.KeyAccessToken, "secret-token"))

		raw, err := inner.Get(storage.KeyAccessToken)
		require.NoError(t, err)
		require.NotContains(t, raw, "secret-token")

		value, err := repo.Get(storage.KeyAccessToken)
		require.NoError(t, err)
		require.Equal(t, "secret-token", value)
	})

	t.Run("other keys pass through", func(t *testing.T) {
		inner := memstore.New()
		repo := storage.Sealed(inner, testKey(7), storage.KeyAccessToken)

		require.NoError(t, repo.Set(storage.KeyCart, "[]"))
		raw, err := inner.Get(storage.KeyCart)
		require.NoError(t, err)
		require.Equal(t, "[]", raw)
	})

	t.Run("wrong key fails to open", func(t *testing.T) {
		inner := memstore.New()
		require.NoError(t, storage.Sealed(inner, testKey(1), storage.KeyRefreshToken).Set(storage.KeyRefreshToken, "rt"))

		_, err := storage.Sealed(inner, testKey(2), storage.KeyRefreshToken).Get(storage.KeyRefreshToken)
		require.ErrorIs(t, err, errors.ErrSealed)
	})

	t.Run("tampered value fails to open", func(t *testing.T) {
		inner := memstore.New()
		require.NoError(t, inner.Set(storage.KeyRefreshToken, "not-a-box"))

		_, err := storage.Sealed(inner, testKey(1), storage.KeyRefreshToken).Get(storage.KeyRefreshToken)
		require.ErrorIs(t, err, errors.ErrSealed)
	})

	t.Run("missing key keeps not found", func(t *testing.T) {
		repo := storage.Sealed(memstore.New(), testKey(1), storage.KeyRefreshToken)
		_, err := repo.Get(storage.KeyRefreshToken)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestGetOptional(t *testing.T) {
	repo := memstore.New()

	_, ok, err := storage.GetOptional(repo, storage.KeyCart)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.Set(storage.KeyCart, "[]"))
	value, ok, err := storage.GetOptional(repo, storage.KeyCart)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "[]", value)
}

package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-auth-client/store"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]store.TokenStore {
	t.Helper()
	return map[string]store.TokenStore{
		"memory": store.NewMemoryStore(),
		"file":   store.NewFileStore(filepath.Join(t.TempDir(), "tokens.json")),
	}
}

func TestTokenStore_CredentialsRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			pair := token.CredentialPair{AccessToken: "at", RefreshToken: "rt", TokenID: "lineage-1"}

			loaded, err := s.LoadCredentials(ctx)
			require.NoError(t, err)
			require.Nil(t, loaded, "empty store loads nothing")

			require.NoError(t, s.SaveCredentials(ctx, pair))
			loaded, err = s.LoadCredentials(ctx)
			require.NoError(t, err)
			require.Equal(t, &pair, loaded)

			// Replacement is wholesale.
			rotated := token.CredentialPair{AccessToken: "at2", RefreshToken: "rt2", TokenID: "lineage-1"}
			require.NoError(t, s.SaveCredentials(ctx, rotated))
			loaded, err = s.LoadCredentials(ctx)
			require.NoError(t, err)
			require.Equal(t, &rotated, loaded)

			require.NoError(t, s.ClearCredentials(ctx))
			loaded, err = s.LoadCredentials(ctx)
			require.NoError(t, err)
			require.Nil(t, loaded)
		})
	}
}

func TestTokenStore_ShopIDIndependentOfCredentials(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			shopID, err := s.LoadShopID(ctx)
			require.NoError(t, err)
			require.Empty(t, shopID)

			require.NoError(t, s.SaveShopID(ctx, "S1"))
			require.NoError(t, s.SaveCredentials(ctx, token.CredentialPair{AccessToken: "at", RefreshToken: "rt"}))

			// Clearing credentials keeps the shop selection.
			require.NoError(t, s.ClearCredentials(ctx))
			shopID, err = s.LoadShopID(ctx)
			require.NoError(t, err)
			require.Equal(t, "S1", shopID)
		})
	}
}

func TestTokenStore_ClearWipesEverything(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.SaveCredentials(ctx, token.CredentialPair{AccessToken: "at", RefreshToken: "rt"}))
			require.NoError(t, s.SaveShopID(ctx, "S1"))

			require.NoError(t, s.Clear(ctx))

			loaded, err := s.LoadCredentials(ctx)
			require.NoError(t, err)
			require.Nil(t, loaded)
			shopID, err := s.LoadShopID(ctx)
			require.NoError(t, err)
			require.Empty(t, shopID)
		})
	}
}

func TestFileStore_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")

	first := store.NewFileStore(path)
	pair := token.CredentialPair{AccessToken: "at", RefreshToken: "rt", TokenID: "lineage-1"}
	require.NoError(t, first.SaveCredentials(ctx, pair))
	require.NoError(t, first.SaveShopID(ctx, "S2"))

	// A new store over the same path sees the persisted state.
	second := store.NewFileStore(path)
	loaded, err := second.LoadCredentials(ctx)
	require.NoError(t, err)
	require.Equal(t, &pair, loaded)
	shopID, err := second.LoadShopID(ctx)
	require.NoError(t, err)
	require.Equal(t, "S2", shopID)
}

func TestFileStore_CorruptFileTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := store.NewFileStore(path)
	loaded, err := s.LoadCredentials(ctx)
	require.NoError(t, err)
	require.Nil(t, loaded)
}

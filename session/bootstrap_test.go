package session_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-auth-client/identity"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/stretchr/testify/require"
)

// restartedManager simulates a process restart: a fresh Manager over the
// fixture's surviving store and identity service.
func restartedManager(t *testing.T, f *testFixture) *session.Manager {
	t.Helper()
	m, err := session.New(session.Deps{
		Identity: f.identity,
		Store:    f.store,
	})
	require.NoError(t, err)
	return m
}

func TestBootstrap_EmptyStoreLandsAnonymous(t *testing.T) {
	f := setupTestFixture(t)

	require.Equal(t, session.StateBootstrapping, f.manager.State())
	require.NoError(t, f.manager.Bootstrap(context.Background()))
	require.Equal(t, session.StateAnonymous, f.manager.State())
}

func TestBootstrap_RestoresPersistedSession(t *testing.T) {
	f := setupTestFixture(t)
	f.seedShopAccount(t)
	f.bootstrapAnonymous(t)
	f.login(t)
	require.NoError(t, f.manager.SwitchShop(context.Background(), "S2"))

	restarted := restartedManager(t, f)
	require.NoError(t, restarted.Bootstrap(context.Background()))

	require.Equal(t, session.StateAuthenticated, restarted.State())
	require.Equal(t, "user-1", restarted.User().ID)
	require.Equal(t, "S2", restarted.Permissions().CurrentShopID(), "previous shop selection is restored")
	require.True(t, restarted.Permissions().Has("canViewSales"))
	require.False(t, restarted.Permissions().Has("canEditProducts"), "S2's set, not S1's")
}

func TestBootstrap_StaleShopSelectionFallsBack(t *testing.T) {
	f := setupTestFixture(t)
	f.seedShopAccount(t)
	f.bootstrapAnonymous(t)
	f.login(t)

	// The persisted selection no longer matches any access.
	require.NoError(t, f.store.SaveShopID(context.Background(), "closed-shop"))

	restarted := restartedManager(t, f)
	require.NoError(t, restarted.Bootstrap(context.Background()))
	require.Equal(t, "S1", restarted.Permissions().CurrentShopID())
}

func TestBootstrap_RevokedCredentialsClearEverything(t *testing.T) {
	f := setupTestFixture(t)
	f.seedShopAccount(t)
	f.bootstrapAnonymous(t)
	f.login(t)

	f.identity.RevokeAll()

	restarted := restartedManager(t, f)
	require.NoError(t, restarted.Bootstrap(context.Background()))

	// Never authenticated with stale data.
	require.Equal(t, session.StateAnonymous, restarted.State())
	require.Nil(t, restarted.User())
	pair, err := f.store.LoadCredentials(context.Background())
	require.NoError(t, err)
	require.Nil(t, pair, "rejected liveness check empties the token store")
	require.Zero(t, f.identity.RefreshCalls(), "bootstrap never attempts a refresh")
}

func TestBootstrap_UnreachableServiceIsRetryable(t *testing.T) {
	f := setupTestFixture(t)
	f.seedShopAccount(t)
	f.bootstrapAnonymous(t)
	f.login(t)

	f.identity.SetNetworkError(identity.ErrNetworkUnavailable)

	restarted := restartedManager(t, f)
	err := restarted.Bootstrap(context.Background())
	require.ErrorIs(t, err, identity.ErrNetworkUnavailable)
	require.Equal(t, session.StateBootstrapping, restarted.State(), "no verdict without reaching the service")

	// Connectivity returns; the same manager can bootstrap successfully.
	f.identity.SetNetworkError(nil)
	require.NoError(t, restarted.Bootstrap(context.Background()))
	require.Equal(t, session.StateAuthenticated, restarted.State())
}

func TestBootstrap_RunsOnlyOnce(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapAnonymous(t)

	err := f.manager.Bootstrap(context.Background())
	require.ErrorIs(t, err, session.ErrInvalidState)
}

func TestCommands_InvalidBeforeBootstrap(t *testing.T) {
	f := setupTestFixture(t)
	f.seedShopAccount(t)

	_, err := f.manager.SubmitCredentials(context.Background(), testIdentifier, testSecret)
	require.ErrorIs(t, err, session.ErrInvalidState)
}

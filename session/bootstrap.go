package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-auth-client/identity"
)

// Bootstrap reconciles persisted state with the identity service. It runs
// exactly once, at process start, while the Manager is still in
// StateBootstrapping.
//
// No persisted pair means StateAnonymous. A persisted pair is verified with
// a single liveness check: success restores the session exactly as a login
// would, including the previously selected shop when still valid; a rejected
// check wipes the store and lands in StateAnonymous — bootstrap never
// attempts a refresh. Only an unreachable identity service leaves the
// Manager in StateBootstrapping, so the caller may retry.
func (m *Manager) Bootstrap(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateBootstrapping {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: bootstrap from %q", ErrInvalidState, state)
	}
	m.mu.Unlock()

	pair, err := m.store.LoadCredentials(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("failed to read persisted credentials; treating as absent")
		pair = nil
	}
	if pair == nil || !pair.Valid() {
		m.mu.Lock()
		m.transitionLocked(StateAnonymous, "no-persisted-credentials")
		m.mu.Unlock()
		return nil
	}

	res, err := m.identitySvc.GetCurrentUser(ctx, pair.AccessToken)
	if err != nil {
		if errors.Is(err, identity.ErrNetworkUnavailable) {
			return err
		}
		// Expired or revoked: no session, full stop. Recovery is an
		// explicit login, never a bootstrap-time refresh.
		m.log.Info().Msg("persisted credentials rejected by liveness check")
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.log.Warn().Err(clearErr).Msg("failed to clear token store")
		}
		m.mu.Lock()
		m.transitionLocked(StateAnonymous, "liveness-check-failed")
		m.mu.Unlock()
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	loginRes := &identity.LoginResult{
		User:           res.User,
		Credentials:    pair,
		ShopAccesses:   res.ShopAccesses,
		OrgPermissions: res.OrgPermissions,
	}
	// The pair is already persisted; only the in-memory session needs
	// populating.
	if err := m.completeAuthenticationLocked(ctx, loginRes, false, "bootstrap"); err != nil {
		m.transitionLocked(StateAnonymous, "bootstrap-failed")
		return err
	}
	return nil
}

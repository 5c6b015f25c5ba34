package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-auth-client/identity"
	"github.com/jrsteele09/go-auth-client/token"
)

// AccessToken returns the current access token for attaching to a protected
// request. ErrNotAuthenticated when the session holds no credentials.
func (m *Manager) AccessToken() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if (m.state != StateAuthenticated && m.state != StateRefreshing) || m.credentials == nil {
		return "", ErrNotAuthenticated
	}
	return m.credentials.AccessToken, nil
}

// AuthorizeRequest attaches the current access token to req. This is the
// hook every protected call must pass through before dispatch.
func (m *Manager) AuthorizeRequest(req *http.Request) error {
	accessToken, err := m.AccessToken()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return nil
}

// OnUnauthorized is the hook a protected caller invokes after its request
// was rejected as unauthorized. It routes through the refresh coordinator:
// the first caller leads the refresh, any concurrent caller waits for the
// same settlement. nil means a fresh pair is in place and the caller should
// retry its original request exactly once; ErrRefreshFailed means the
// session has been invalidated and the caller must surface a sign-out.
func (m *Manager) OnUnauthorized(ctx context.Context) error {
	_, err := m.coordinator.Do(ctx, func() (token.CredentialPair, error) {
		return m.leadRefresh(ctx)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrNotAuthenticated) {
		return err
	}
	if errors.Is(err, identity.ErrNetworkUnavailable) {
		// Not a verdict on the refresh token; the session survives and the
		// caller decides whether to retry.
		return err
	}
	return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
}

// Do runs call with the current access token attached, and on an
// unauthorized outcome refreshes once and retries. call must surface an
// unauthorized rejection as identity.ErrUnauthorized (wrapped or not).
func (m *Manager) Do(ctx context.Context, call func(ctx context.Context, accessToken string) error) error {
	accessToken, err := m.AccessToken()
	if err != nil {
		return err
	}
	err = call(ctx, accessToken)
	if err == nil || !errors.Is(err, identity.ErrUnauthorized) {
		return err
	}
	if err := m.OnUnauthorized(ctx); err != nil {
		return err
	}
	accessToken, err = m.AccessToken()
	if err != nil {
		return err
	}
	return call(ctx, accessToken)
}

// leadRefresh is the leader body run under the coordinator: exactly one of
// the concurrent unauthorized callers executes it per flight.
func (m *Manager) leadRefresh(ctx context.Context) (token.CredentialPair, error) {
	m.mu.Lock()
	if m.state != StateAuthenticated && m.state != StateRefreshing {
		m.mu.Unlock()
		return token.CredentialPair{}, ErrNotAuthenticated
	}
	if m.credentials == nil || m.credentials.RefreshToken == "" {
		// Nothing to refresh with; terminal without a network call.
		m.recorder.RecordRefresh(OutcomeMissingRefresh)
		m.invalidateLocked(ctx, "missing-refresh-token")
		m.mu.Unlock()
		return token.CredentialPair{}, errors.New("refresh token absent")
	}
	gen := m.generation
	refreshToken := m.credentials.RefreshToken
	m.transitionLocked(StateRefreshing, "unauthorized-response")
	m.mu.Unlock()

	pair, err := m.identitySvc.Refresh(ctx, refreshToken)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		// Session cleared while the refresh was in flight; the settlement
		// must not resurrect it.
		m.recorder.RecordRefresh(OutcomeSessionSuperseded)
		return token.CredentialPair{}, ErrSessionSuperseded
	}
	if err != nil {
		if errors.Is(err, identity.ErrNetworkUnavailable) {
			m.recorder.RecordRefresh(OutcomeNetworkError)
			m.transitionLocked(StateAuthenticated, "refresh-unreachable")
			return token.CredentialPair{}, err
		}
		m.recorder.RecordRefresh(OutcomeRejected)
		m.invalidateLocked(ctx, "refresh-failed")
		return token.CredentialPair{}, err
	}

	// Whole-object replacement of the pair, then persist as one write.
	newPair := *pair
	m.credentials = &newPair
	if err := m.store.SaveCredentials(ctx, newPair); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist refreshed credential pair")
	}
	m.lastActivityAt = m.nowTime()
	m.transitionLocked(StateAuthenticated, "refresh-settled")
	m.recorder.RecordRefresh(OutcomeSuccess)
	m.log.Info().Str("token_id", newPair.TokenID).Msg("credential pair refreshed")
	return newPair, nil
}

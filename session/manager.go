// Package session implements the authentication lifecycle behind every
// protected screen of the admin application: credential submission, optional
// two-factor step-up, the authenticated steady state with single-flight token
// refresh, shop-context switching, and bootstrap from persisted state.
//
// The Manager owns the Session aggregate exclusively. Other components read
// its state through accessors but never mutate it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-auth-client/identity"
	"github.com/jrsteele09/go-auth-client/permissions"
	"github.com/jrsteele09/go-auth-client/store"
	"github.com/jrsteele09/go-auth-client/token"
)

// Deps holds the collaborators a Manager requires.
type Deps struct {
	Identity identity.Service // identity-service client
	Store    store.TokenStore // durable token/shop persistence
}

// Manager is the session state machine. Construct with New; a Manager begins
// in StateBootstrapping and must run Bootstrap once before commands are
// accepted.
type Manager struct {
	identitySvc identity.Service
	store       store.TokenStore
	perms       *permissions.Engine
	coordinator *token.Coordinator
	log         zerolog.Logger
	recorder    Recorder
	nowTime     func() time.Time
	staleAfter  time.Duration
	listener    func(from, to State, reason string)

	mu             sync.Mutex
	state          State
	user           *identity.User
	credentials    *token.CredentialPair
	tempCredential string
	lastActivityAt time.Time

	// generation increments whenever the session is cleared. In-flight
	// network calls capture it before suspending and discard their result
	// if it moved, so a settled refresh cannot resurrect a logged-out
	// session.
	generation uint64
}

// Option modifies a Manager instance.
type Option func(*Manager)

// WithLogger sets the logger for lifecycle events.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

// WithStaleAfter sets the permission-staleness threshold.
func WithStaleAfter(d time.Duration) Option {
	return func(m *Manager) {
		m.staleAfter = d
	}
}

// WithStateListener registers a callback invoked on every state transition,
// after the transition has been applied. The listener runs on the
// transitioning goroutine and must not call back into the Manager.
func WithStateListener(fn func(from, to State, reason string)) Option {
	return func(m *Manager) {
		m.listener = fn
	}
}

// New creates a Manager in StateBootstrapping.
func New(deps Deps, options ...Option) (*Manager, error) {
	if deps.Identity == nil {
		return nil, errors.New("[session.New] Identity service is required")
	}
	if deps.Store == nil {
		return nil, errors.New("[session.New] TokenStore is required")
	}

	m := &Manager{
		identitySvc: deps.Identity,
		store:       deps.Store,
		log:         zerolog.Nop(),
		recorder:    nopRecorder{},
		nowTime:     time.Now,
		staleAfter:  permissions.DefaultStaleAfter,
		state:       StateBootstrapping,
	}
	for _, opt := range options {
		opt(m)
	}

	m.perms = permissions.NewEngine(
		permissions.WithStaleAfter(m.staleAfter),
		permissions.WithNowTime(m.nowTime),
	)
	m.coordinator = token.NewCoordinator(
		token.WithCoordinatorLogger(m.log),
		token.WithWaitHook(m.recorder.RecordRefreshWaiter),
	)
	return m, nil
}

// LoginOutcome is the discriminated result of SubmitCredentials and
// CompleteTwoFactor. SecondFactorRequired set means the session is now
// pending step-up and holds no credentials yet.
type LoginOutcome struct {
	SecondFactorRequired bool
	User                 *identity.User
}

// SubmitCredentials submits the primary identifier/secret pair. Valid only
// from StateAnonymous.
//
// Success without a second factor authenticates fully: user, credentials and
// permissions are populated, the pair is persisted, and a current shop is
// selected deterministically. When the identity service demands a second
// factor, only the short-lived temp credential is retained and the session
// moves to StatePendingTwoFactor. Failure leaves no partial state behind.
func (m *Manager) SubmitCredentials(ctx context.Context, identifier, secret string) (*LoginOutcome, error) {
	m.mu.Lock()
	if m.state != StateAnonymous {
		state := m.state
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: submit credentials from %q", ErrInvalidState, state)
	}
	gen := m.generation
	m.transitionLocked(StateAuthenticating, "credentials-submitted")
	m.mu.Unlock()

	res, err := m.identitySvc.Login(ctx, identifier, secret)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		return nil, ErrSessionSuperseded
	}
	if err != nil {
		m.transitionLocked(StateAnonymous, "login-failed")
		m.recorder.RecordLogin(loginOutcomeLabel(err))
		return nil, err
	}

	if res.RequiresSecondFactor {
		m.tempCredential = res.TempCredential
		m.transitionLocked(StatePendingTwoFactor, "second-factor-required")
		m.recorder.RecordLogin(OutcomeStepUp)
		return &LoginOutcome{SecondFactorRequired: true}, nil
	}

	if err := m.completeAuthenticationLocked(ctx, res, true, "login"); err != nil {
		m.clearSessionLocked(ctx, "login-persist-failed")
		m.recorder.RecordLogin(OutcomeRejected)
		return nil, err
	}
	m.recorder.RecordLogin(OutcomeSuccess)
	return &LoginOutcome{User: m.userCopyLocked()}, nil
}

// CompleteTwoFactor finishes a pending step-up with the caller's proof. Valid
// only from StatePendingTwoFactor. On success it behaves exactly like a
// successful SubmitCredentials completion and discards the temp credential;
// on rejection the session stays pending with the same temp credential so
// the caller may retry.
func (m *Manager) CompleteTwoFactor(ctx context.Context, proof string) (*LoginOutcome, error) {
	m.mu.Lock()
	if m.state != StatePendingTwoFactor {
		state := m.state
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: complete two-factor from %q", ErrInvalidState, state)
	}
	gen := m.generation
	tempCredential := m.tempCredential
	m.mu.Unlock()

	res, err := m.identitySvc.CompleteSecondFactor(ctx, tempCredential, proof)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		return nil, ErrSessionSuperseded
	}
	if err != nil {
		// Still pending; the temp credential bridges the retry.
		m.recorder.RecordSecondFactor(loginOutcomeLabel(err))
		return nil, err
	}

	if err := m.completeAuthenticationLocked(ctx, res, true, "two-factor"); err != nil {
		m.clearSessionLocked(ctx, "login-persist-failed")
		m.recorder.RecordSecondFactor(OutcomeRejected)
		return nil, err
	}
	m.recorder.RecordSecondFactor(OutcomeSuccess)
	return &LoginOutcome{User: m.userCopyLocked()}, nil
}

// Logout clears the session unconditionally: local state, derived permission
// state and persisted credentials all go, and the remote sign-out is only
// best effort afterwards. Already-anonymous sessions are left untouched.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateAnonymous || m.state == StateBootstrapping {
		m.mu.Unlock()
		return nil
	}
	var refreshToken string
	if m.credentials != nil {
		refreshToken = m.credentials.RefreshToken
	}
	m.clearSessionLocked(ctx, "logout")
	m.mu.Unlock()

	if refreshToken != "" {
		if err := m.identitySvc.Logout(ctx, refreshToken); err != nil {
			m.log.Warn().Err(err).Msg("remote sign-out failed; local session already cleared")
		}
	}
	return nil
}

// SwitchShop changes the current shop context. Valid only from
// StateAuthenticated and only for a shop present in the session's access
// list; an unknown shop returns permissions.ErrShopNotFound and leaves the
// context unchanged.
func (m *Manager) SwitchShop(ctx context.Context, shopID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated {
		return fmt.Errorf("%w: switch shop from %q", ErrInvalidState, m.state)
	}
	if err := m.perms.SwitchShop(shopID); err != nil {
		return err
	}
	if err := m.store.SaveShopID(ctx, shopID); err != nil {
		m.log.Warn().Err(err).Str("shop_id", shopID).Msg("failed to persist shop selection")
	}
	m.lastActivityAt = m.nowTime()
	m.recorder.RecordShopSwitch()
	m.log.Info().Str("shop_id", shopID).Msg("shop context switched")
	return nil
}

// State returns the current lifecycle tag.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Authenticated reports whether the session holds live credentials. A
// session mid-refresh still counts as authenticated.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateAuthenticated || m.state == StateRefreshing
}

// User returns a copy of the authenticated principal, or nil.
func (m *Manager) User() *identity.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userCopyLocked()
}

// LastActivityAt returns the time of the last successful command, zero when
// none.
func (m *Manager) LastActivityAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActivityAt
}

// Permissions exposes the session's permission resolution engine.
func (m *Manager) Permissions() *permissions.Engine {
	return m.perms
}

// completeAuthenticationLocked populates the session from a successful
// authentication response: user, credentials, permission state and the
// deterministic shop selection, persisting the pair when asked to.
func (m *Manager) completeAuthenticationLocked(ctx context.Context, res *identity.LoginResult, persistPair bool, reason string) error {
	preferredShopID, err := m.store.LoadShopID(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("failed to load persisted shop selection")
		preferredShopID = ""
	}

	if persistPair {
		if err := m.store.SaveCredentials(ctx, *res.Credentials); err != nil {
			return fmt.Errorf("persist credential pair: %w", err)
		}
	}

	selected := m.perms.Populate(res.OrgPermissions, res.ShopAccesses, preferredShopID)
	if selected != "" && selected != preferredShopID {
		if err := m.store.SaveShopID(ctx, selected); err != nil {
			m.log.Warn().Err(err).Str("shop_id", selected).Msg("failed to persist shop selection")
		}
	}

	user := *res.User
	m.user = &user
	pair := *res.Credentials
	m.credentials = &pair
	m.tempCredential = ""
	m.lastActivityAt = m.nowTime()
	m.transitionLocked(StateAuthenticated, reason)

	m.log.Info().
		Str("user_id", user.ID).
		Str("shop_id", selected).
		Bool("org_level", m.perms.OrgLevel()).
		Msg("session authenticated")
	return nil
}

// clearSessionLocked wipes the session aggregate, its derived permission
// state and the token store, and bumps the generation so any in-flight call
// discards its result.
func (m *Manager) clearSessionLocked(ctx context.Context, reason string) {
	m.generation++
	m.user = nil
	m.credentials = nil
	m.tempCredential = ""
	m.lastActivityAt = time.Time{}
	m.perms.Clear()
	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn().Err(err).Msg("failed to clear token store")
	}
	m.transitionLocked(StateAnonymous, reason)
}

// invalidateLocked is the internal forced sign-out used on irrecoverable
// refresh failure. Identical effect to logout, tagged with a reason.
func (m *Manager) invalidateLocked(ctx context.Context, reason string) {
	m.log.Warn().Str("reason", reason).Msg("session invalidated")
	m.recorder.RecordInvalidation(reason)
	m.clearSessionLocked(ctx, reason)
}

func (m *Manager) transitionLocked(to State, reason string) {
	from := m.state
	if from == to {
		return
	}
	m.state = to
	m.log.Debug().
		Str("from", string(from)).
		Str("to", string(to)).
		Str("reason", reason).
		Msg("session state transition")
	if m.listener != nil {
		m.listener(from, to, reason)
	}
}

func (m *Manager) userCopyLocked() *identity.User {
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func loginOutcomeLabel(err error) string {
	if errors.Is(err, identity.ErrNetworkUnavailable) {
		return OutcomeNetworkError
	}
	return OutcomeRejected
}

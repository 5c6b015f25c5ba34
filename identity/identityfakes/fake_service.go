// Package identityfakes provides an in-memory, scriptable identity service
// for tests and local demos.
package identityfakes

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-client/identity"
	"github.com/jrsteele09/go-auth-client/permissions"
	"github.com/jrsteele09/go-auth-client/token"
)

var _ identity.Service = (*FakeService)(nil)

// Account seeds one user the fake will authenticate.
type Account struct {
	Identifier     string
	Secret         string
	User           identity.User
	ShopAccesses   []permissions.ShopAccess
	OrgPermissions permissions.Set

	// SecondFactorProof, when non-empty, makes Login demand a step-up that
	// only this proof completes.
	SecondFactorProof string
}

// FakeService implements identity.Service against in-memory state. Tokens it
// mints are random opaque strings; it tracks which are live so revocation and
// refresh behave like the real service.
type FakeService struct {
	mu              sync.Mutex
	accounts        map[string]*Account // identifier -> account
	accessTokens    map[string]string   // access token -> identifier
	refreshTokens   map[string]string   // refresh token -> identifier
	tempCredentials map[string]string   // temp credential -> identifier

	refreshCalls   int
	refreshErr     error
	refreshBarrier chan struct{}
	networkErr     error
}

// NewFakeService creates an empty fake. Seed it with AddAccount.
func NewFakeService() *FakeService {
	return &FakeService{
		accounts:        make(map[string]*Account),
		accessTokens:    make(map[string]string),
		refreshTokens:   make(map[string]string),
		tempCredentials: make(map[string]string),
	}
}

// AddAccount registers an account the fake will authenticate.
func (f *FakeService) AddAccount(acc Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[acc.Identifier] = &acc
}

// SetRefreshError forces every subsequent Refresh call to fail with err.
func (f *FakeService) SetRefreshError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshErr = err
}

// SetNetworkError makes every call fail with err, simulating an unreachable
// service. Pass nil to restore connectivity.
func (f *FakeService) SetNetworkError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.networkErr = err
}

// HoldRefresh blocks Refresh calls until the returned release function is
// invoked. Used to keep a refresh in flight while a test queues waiters.
func (f *FakeService) HoldRefresh() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	barrier := make(chan struct{})
	f.refreshBarrier = barrier
	var once sync.Once
	return func() {
		once.Do(func() { close(barrier) })
	}
}

// RefreshCalls returns how many refresh round-trips the fake has served.
func (f *FakeService) RefreshCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

// RevokeAll invalidates every live token and temp credential, as a server
// side revocation would.
func (f *FakeService) RevokeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessTokens = make(map[string]string)
	f.refreshTokens = make(map[string]string)
	f.tempCredentials = make(map[string]string)
}

// Login implements identity.Service.
func (f *FakeService) Login(ctx context.Context, identifier, secret string) (*identity.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.networkErr != nil {
		return nil, f.networkErr
	}

	acc, ok := f.accounts[identifier]
	if !ok || acc.Secret != secret {
		return nil, identity.ErrInvalidCredentials
	}

	if acc.SecondFactorProof != "" {
		temp := "temp-" + uuid.New().String()
		f.tempCredentials[temp] = identifier
		return &identity.LoginResult{
			RequiresSecondFactor: true,
			TempCredential:       temp,
		}, nil
	}
	return f.issueLocked(acc), nil
}

// CompleteSecondFactor implements identity.Service.
func (f *FakeService) CompleteSecondFactor(ctx context.Context, tempCredential, proof string) (*identity.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.networkErr != nil {
		return nil, f.networkErr
	}

	identifier, ok := f.tempCredentials[tempCredential]
	if !ok {
		return nil, identity.ErrUnauthorized
	}
	acc := f.accounts[identifier]
	if acc == nil || acc.SecondFactorProof != proof {
		return nil, identity.ErrInvalidCredentials
	}
	delete(f.tempCredentials, tempCredential)
	return f.issueLocked(acc), nil
}

// Refresh implements identity.Service.
func (f *FakeService) Refresh(ctx context.Context, refreshToken string) (*token.CredentialPair, error) {
	f.mu.Lock()
	if f.networkErr != nil {
		defer f.mu.Unlock()
		return nil, f.networkErr
	}
	f.refreshCalls++
	barrier := f.refreshBarrier
	f.mu.Unlock()

	if barrier != nil {
		select {
		case <-barrier:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	identifier, ok := f.refreshTokens[refreshToken]
	if !ok {
		return nil, identity.ErrUnauthorized
	}
	delete(f.refreshTokens, refreshToken)

	pair := f.mintLocked(identifier)
	return &pair, nil
}

// GetCurrentUser implements identity.Service.
func (f *FakeService) GetCurrentUser(ctx context.Context, accessToken string) (*identity.CurrentUserResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.networkErr != nil {
		return nil, f.networkErr
	}

	identifier, ok := f.accessTokens[accessToken]
	if !ok {
		return nil, identity.ErrUnauthorized
	}
	acc := f.accounts[identifier]
	if acc == nil {
		return nil, identity.ErrUnauthorized
	}
	user := acc.User
	return &identity.CurrentUserResult{
		User:           &user,
		ShopAccesses:   acc.ShopAccesses,
		OrgPermissions: acc.OrgPermissions,
	}, nil
}

// Logout implements identity.Service.
func (f *FakeService) Logout(ctx context.Context, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.networkErr != nil {
		return f.networkErr
	}
	delete(f.refreshTokens, refreshToken)
	return nil
}

func (f *FakeService) issueLocked(acc *Account) *identity.LoginResult {
	pair := f.mintLocked(acc.Identifier)
	user := acc.User
	return &identity.LoginResult{
		User:           &user,
		Credentials:    &pair,
		ShopAccesses:   acc.ShopAccesses,
		OrgPermissions: acc.OrgPermissions,
	}
}

func (f *FakeService) mintLocked(identifier string) token.CredentialPair {
	pair := token.CredentialPair{
		AccessToken:  "access-" + uuid.New().String(),
		RefreshToken: "refresh-" + uuid.New().String(),
		TokenID:      "lineage-" + uuid.New().String(),
	}
	f.accessTokens[pair.AccessToken] = identifier
	f.refreshTokens[pair.RefreshToken] = identifier
	return pair
}

// Package identity defines the contract toward the identity service: the
// handful of calls the session core needs for login, two-factor step-up,
// token refresh, liveness checks and sign-out. The wire format beyond the
// fields consumed here is the service's business.
package identity

import (
	"context"
	"errors"

	"github.com/jrsteele09/go-auth-client/permissions"
	"github.com/jrsteele09/go-auth-client/token"
)

var (
	// ErrInvalidCredentials is returned when a login or second-factor proof
	// is rejected. Recoverable: the caller may try again.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized is returned when the presented token (access, refresh
	// or temp credential) is expired, revoked or unknown.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNetworkUnavailable is returned when the identity service could not
	// be reached at all. No authentication conclusion can be drawn from it.
	ErrNetworkUnavailable = errors.New("identity service unreachable")
)

// User is the reference to the authenticated principal that the session
// carries. It is display data only; authorization decisions come from the
// permission sets, never from user fields.
type User struct {
	ID          string
	Email       string
	DisplayName string
}

// LoginResult is the shape shared by Login and CompleteSecondFactor.
//
// When RequiresSecondFactor is set, only TempCredential is populated: the
// caller is mid step-up and holds no usable credentials yet. Otherwise
// Credentials, User and exactly one of OrgPermissions / ShopAccesses carry
// the full authenticated state.
type LoginResult struct {
	User                 *User
	Credentials          *token.CredentialPair
	TempCredential       string
	RequiresSecondFactor bool
	ShopAccesses         []permissions.ShopAccess
	OrgPermissions       permissions.Set
}

// CurrentUserResult is returned by the liveness check.
type CurrentUserResult struct {
	User           *User
	ShopAccesses   []permissions.ShopAccess
	OrgPermissions permissions.Set
}

// Service is the abstract identity-service contract consumed by the session
// core. Implementations translate these calls onto whatever transport the
// deployment uses; all methods are blocking and honour ctx.
type Service interface {
	// Login submits primary credentials.
	Login(ctx context.Context, identifier, secret string) (*LoginResult, error)

	// CompleteSecondFactor finishes a pending two-factor step-up. The temp
	// credential is the short-lived value issued by Login; the returned
	// result never requires a further factor.
	CompleteSecondFactor(ctx context.Context, tempCredential, proof string) (*LoginResult, error)

	// Refresh exchanges a refresh token for a replacement credential pair.
	// A rejected refresh token returns ErrUnauthorized.
	Refresh(ctx context.Context, refreshToken string) (*token.CredentialPair, error)

	// GetCurrentUser validates an access token and returns the principal it
	// belongs to, with fresh permission data.
	GetCurrentUser(ctx context.Context, accessToken string) (*CurrentUserResult, error)

	// Logout revokes the refresh-token lineage server side. Best effort:
	// callers invalidate locally regardless of its outcome.
	Logout(ctx context.Context, refreshToken string) error
}

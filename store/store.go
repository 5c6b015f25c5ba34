// Package store persists the session's durable remnants: the credential pair
// and the last-selected shop id. Pure storage, no policy — callers decide
// what to write and when.
package store

import (
	"context"

	"github.com/jrsteele09/go-auth-client/token"
)

// TokenStore is the durable key-value persistence contract.
//
// The credential pair is always written and cleared as a whole object, never
// field by field, so a concurrently scheduled reader can never observe a torn
// pair. The shop id is the one entry that may be written independently.
type TokenStore interface {
	// SaveCredentials replaces the stored pair atomically.
	SaveCredentials(ctx context.Context, pair token.CredentialPair) error

	// LoadCredentials returns the stored pair, or nil when none is stored.
	LoadCredentials(ctx context.Context) (*token.CredentialPair, error)

	// ClearCredentials removes the stored pair, leaving the shop id intact.
	ClearCredentials(ctx context.Context) error

	// SaveShopID records the last-selected shop.
	SaveShopID(ctx context.Context, shopID string) error

	// LoadShopID returns the last-selected shop id, or "" when none.
	LoadShopID(ctx context.Context) (string, error)

	// Clear wipes everything: credentials and shop id.
	Clear(ctx context.Context) error
}

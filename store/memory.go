package store

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-client/token"
)

var _ TokenStore = (*MemoryStore)(nil)

// MemoryStore is an in-process TokenStore for tests and short-lived tools.
type MemoryStore struct {
	mu     sync.RWMutex
	pair   *token.CredentialPair
	shopID string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveCredentials(_ context.Context, pair token.CredentialPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = &pair
	return nil
}

func (s *MemoryStore) LoadCredentials(_ context.Context) (*token.CredentialPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pair == nil {
		return nil, nil
	}
	pair := *s.pair
	return &pair, nil
}

func (s *MemoryStore) ClearCredentials(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = nil
	return nil
}

func (s *MemoryStore) SaveShopID(_ context.Context, shopID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shopID = shopID
	return nil
}

func (s *MemoryStore) LoadShopID(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shopID, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = nil
	s.shopID = ""
	return nil
}

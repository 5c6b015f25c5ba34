package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/go-auth-client/token"
)

var _ TokenStore = (*RedisStore)(nil)

// RedisStore keeps the session remnants in Redis, for deployments where the
// session core runs in a backend-for-frontend and must survive process
// restarts across replicas.
//
// The credential pair is stored as one JSON value under a single key, so
// replacement stays a whole-object write. The shop id lives under its own
// key, the one entry written independently of the pair.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store using the given client. keyPrefix namespaces
// the entries, typically per end user (e.g. "session:<userID>").
func NewRedisStore(client redis.UniversalClient, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, prefix: keyPrefix}
}

func (s *RedisStore) credentialsKey() string { return s.prefix + ":credentials" }
func (s *RedisStore) shopKey() string        { return s.prefix + ":shop_id" }

type redisCredentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenID      string `json:"tokenId"`
}

func (s *RedisStore) SaveCredentials(ctx context.Context, pair token.CredentialPair) error {
	data, err := json.Marshal(redisCredentials{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenID:      pair.TokenID,
	})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := s.client.Set(ctx, s.credentialsKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadCredentials(ctx context.Context) (*token.CredentialPair, error) {
	data, err := s.client.Get(ctx, s.credentialsKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	var c redisCredentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	return &token.CredentialPair{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenID:      c.TokenID,
	}, nil
}

func (s *RedisStore) ClearCredentials(ctx context.Context) error {
	if err := s.client.Del(ctx, s.credentialsKey()).Err(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func (s *RedisStore) SaveShopID(ctx context.Context, shopID string) error {
	if err := s.client.Set(ctx, s.shopKey(), shopID, 0).Err(); err != nil {
		return fmt.Errorf("save shop id: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadShopID(ctx context.Context) (string, error) {
	shopID, err := s.client.Get(ctx, s.shopKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load shop id: %w", err)
	}
	return shopID, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.credentialsKey(), s.shopKey()).Err(); err != nil {
		return fmt.Errorf("clear token store: %w", err)
	}
	return nil
}

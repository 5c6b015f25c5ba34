package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-auth-client/token"
)

var _ TokenStore = (*FileStore)(nil)

// FileStore persists the session remnants as a single JSON file. Every write
// rewrites the whole file through a temp-file rename, so a crash mid-write
// leaves either the old state or the new one, never a torn pair.
type FileStore struct {
	path string
	mu   sync.Mutex
}

type fileState struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenID      string `json:"tokenId,omitempty"`
	ShopID       string `json:"shopId,omitempty"`
}

// NewFileStore creates a store backed by the JSON file at path. The file is
// created on first write; its directory must exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) SaveCredentials(_ context.Context, pair token.CredentialPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.read()
	if err != nil {
		return err
	}
	state.AccessToken = pair.AccessToken
	state.RefreshToken = pair.RefreshToken
	state.TokenID = pair.TokenID
	return s.write(state)
}

func (s *FileStore) LoadCredentials(_ context.Context) (*token.CredentialPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.read()
	if err != nil {
		return nil, err
	}
	if state.AccessToken == "" && state.RefreshToken == "" {
		return nil, nil
	}
	return &token.CredentialPair{
		AccessToken:  state.AccessToken,
		RefreshToken: state.RefreshToken,
		TokenID:      state.TokenID,
	}, nil
}

func (s *FileStore) ClearCredentials(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.read()
	if err != nil {
		return err
	}
	state.AccessToken = ""
	state.RefreshToken = ""
	state.TokenID = ""
	return s.write(state)
}

func (s *FileStore) SaveShopID(_ context.Context, shopID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.read()
	if err != nil {
		return err
	}
	state.ShopID = shopID
	return s.write(state)
}

func (s *FileStore) LoadShopID(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.read()
	if err != nil {
		return "", err
	}
	return state.ShopID, nil
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear token store: %w", err)
	}
	return nil
}

func (s *FileStore) read() (*fileState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &fileState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token store: %w", err)
	}
	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		// A corrupt store is treated as empty rather than wedging the
		// session core at startup.
		return &fileState{}, nil
	}
	return &state, nil
}

func (s *FileStore) write(state *fileState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode token store: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tokenstore-*")
	if err != nil {
		return fmt.Errorf("write token store: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write token store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write token store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write token store: %w", err)
	}
	return nil
}

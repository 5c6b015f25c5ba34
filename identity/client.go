package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-client/permissions"
	"github.com/jrsteele09/go-auth-client/token"
)

const defaultHTTPTimeout = 10 * time.Second

// Client is the default HTTP implementation of Service, speaking JSON to the
// identity service's auth endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Service = (*Client)(nil)

// ClientOption modifies a Client instance.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying http.Client (primarily for testing and
// for deployments with custom transports).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates an identity-service client for the given base URL.
func NewClient(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

type userDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type credentialPairDTO struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenID      string `json:"tokenId"`
}

type shopAccessDTO struct {
	ShopID      string          `json:"shopId"`
	Role        string          `json:"role"`
	Permissions map[string]bool `json:"permissions"`
	IsActive    bool            `json:"isActive"`
}

type loginResponseDTO struct {
	User                 *userDTO           `json:"user"`
	Credentials          *credentialPairDTO `json:"credentials"`
	TempCredential       string             `json:"tempCredential"`
	RequiresSecondFactor bool               `json:"requiresSecondFactor"`
	ShopAccesses         []shopAccessDTO    `json:"shopAccesses"`
	OrgPermissions       map[string]bool    `json:"orgPermissions"`
}

type currentUserResponseDTO struct {
	User           *userDTO        `json:"user"`
	ShopAccesses   []shopAccessDTO `json:"shopAccesses"`
	OrgPermissions map[string]bool `json:"orgPermissions"`
}

// Login implements Service.
func (c *Client) Login(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	body := map[string]string{"identifier": identifier, "secret": secret}
	var dto loginResponseDTO
	if err := c.postJSON(ctx, "/v1/auth/login", body, &dto, ErrInvalidCredentials); err != nil {
		return nil, err
	}
	return loginResultFromDTO(&dto)
}

// CompleteSecondFactor implements Service.
func (c *Client) CompleteSecondFactor(ctx context.Context, tempCredential, proof string) (*LoginResult, error) {
	body := map[string]string{"tempCredential": tempCredential, "proof": proof}
	var dto loginResponseDTO
	if err := c.postJSON(ctx, "/v1/auth/two-factor", body, &dto, ErrInvalidCredentials); err != nil {
		return nil, err
	}
	return loginResultFromDTO(&dto)
}

// Refresh implements Service.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*token.CredentialPair, error) {
	body := map[string]string{"refreshToken": refreshToken}
	var dto credentialPairDTO
	if err := c.postJSON(ctx, "/v1/auth/refresh", body, &dto, ErrUnauthorized); err != nil {
		return nil, err
	}
	pair := credentialPairFromDTO(&dto)
	if !pair.Valid() {
		return nil, fmt.Errorf("refresh response missing token fields")
	}
	return &pair, nil
}

// GetCurrentUser implements Service.
func (c *Client) GetCurrentUser(ctx context.Context, accessToken string) (*CurrentUserResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("GetCurrentUser build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var dto currentUserResponseDTO
	if err := c.do(req, &dto, ErrUnauthorized); err != nil {
		return nil, err
	}
	if dto.User == nil {
		return nil, fmt.Errorf("current-user response missing user")
	}
	return &CurrentUserResult{
		User:           userFromDTO(dto.User),
		ShopAccesses:   shopAccessesFromDTO(dto.ShopAccesses),
		OrgPermissions: dto.OrgPermissions,
	}, nil
}

// Logout implements Service.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refreshToken": refreshToken}
	return c.postJSON(ctx, "/v1/auth/logout", body, nil, ErrUnauthorized)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any, unauthorizedErr error) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out, unauthorizedErr)
}

func (c *Client) do(req *http.Request, out any, unauthorizedErr error) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return unauthorizedErr
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("identity service returned status %d for %s", resp.StatusCode, req.URL.Path)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func loginResultFromDTO(dto *loginResponseDTO) (*LoginResult, error) {
	if dto.RequiresSecondFactor {
		if dto.TempCredential == "" {
			return nil, fmt.Errorf("second-factor response missing temp credential")
		}
		return &LoginResult{
			RequiresSecondFactor: true,
			TempCredential:       dto.TempCredential,
		}, nil
	}
	if dto.User == nil || dto.Credentials == nil {
		return nil, fmt.Errorf("login response missing user or credentials")
	}
	pair := credentialPairFromDTO(dto.Credentials)
	if !pair.Valid() {
		return nil, fmt.Errorf("login response missing token fields")
	}
	return &LoginResult{
		User:           userFromDTO(dto.User),
		Credentials:    &pair,
		ShopAccesses:   shopAccessesFromDTO(dto.ShopAccesses),
		OrgPermissions: dto.OrgPermissions,
	}, nil
}

func userFromDTO(dto *userDTO) *User {
	return &User{ID: dto.ID, Email: dto.Email, DisplayName: dto.DisplayName}
}

func credentialPairFromDTO(dto *credentialPairDTO) token.CredentialPair {
	return token.CredentialPair{
		AccessToken:  dto.AccessToken,
		RefreshToken: dto.RefreshToken,
		TokenID:      dto.TokenID,
	}
}

func shopAccessesFromDTO(dtos []shopAccessDTO) []permissions.ShopAccess {
	if len(dtos) == 0 {
		return nil
	}
	out := make([]permissions.ShopAccess, len(dtos))
	for i, d := range dtos {
		out[i] = permissions.ShopAccess{
			ShopID:      d.ShopID,
			Role:        d.Role,
			Permissions: d.Permissions,
			IsActive:    d.IsActive,
		}
	}
	return out
}

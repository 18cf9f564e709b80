package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultExpirySkew = 60 * time.Second
	defaultTokenTTL   = 30 * time.Minute
)

// ClientCredentials configures an OAuth2 client-credentials token client.
type ClientCredentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
	// ExpirySkew refreshes tokens this long before they actually expire.
	ExpirySkew time.Duration
	Now        func() time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenClient owns one cached access token and refreshes it on demand.
// Create one per upstream per process and share it.
type TokenClient struct {
	cfg ClientCredentials

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewTokenClient(cfg ClientCredentials) *TokenClient {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.ExpirySkew <= 0 {
		cfg.ExpirySkew = defaultExpirySkew
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenClient{cfg: cfg}
}

// Configured reports whether credentials are present.
func (c *TokenClient) Configured() bool {
	return strings.TrimSpace(c.cfg.ClientID) != "" && strings.TrimSpace(c.cfg.ClientSecret) != ""
}

// GetValidToken returns the cached token, exchanging the client credentials
// for a new one when it is missing or about to expire. Concurrent callers
// share a single refresh.
func (c *TokenClient) GetValidToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.cfg.Now().Add(c.cfg.ExpirySkew).Before(c.expiresAt) {
		return c.token, nil
	}

	if !c.Configured() {
		return "", fmt.Errorf("client credentials not configured")
	}

	tok, err := c.exchange(ctx)
	if err != nil {
		return "", err
	}

	ttl := time.Duration(tok.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	c.token = tok.AccessToken
	c.expiresAt = c.cfg.Now().Add(ttl)
	return c.token, nil
}

// ExpiresAt returns the expiry of the cached token (zero when none).
func (c *TokenClient) ExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresAt
}

// Invalidate drops the cached token, e.g. after the upstream answered 401.
func (c *TokenClient) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}

func (c *TokenClient) exchange(ctx context.Context) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("token exchange failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	return &token, nil
}

package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"racecalc/internal/store"
)

// refreshBuffer refreshes tokens this long before they expire
const refreshBuffer = 60 * time.Second

// TokenStore persists tokens between runs
type TokenStore interface {
	GetAuth(ctx context.Context) (*store.Auth, error)
	UpdateTokens(ctx context.Context, accessToken, refreshToken string, expiresAt time.Time) error
}

// TokenSource wraps oauth2.TokenSource with persistence.
// It refreshes tokens when close to expiry and calls onRefresh with each new token.
type TokenSource struct {
	ctx       context.Context
	config    *oauth2.Config
	token     *oauth2.Token
	onRefresh func(*oauth2.Token) error
	mu        sync.Mutex
}

// NewTokenSource creates a TokenSource that refreshes tokens as needed
// and calls onRefresh to persist new tokens
func NewTokenSource(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token, onRefresh func(*oauth2.Token) error) *TokenSource {
	return &TokenSource{
		ctx:       ctx,
		config:    cfg,
		token:     token,
		onRefresh: onRefresh,
	}
}

// NewStoredTokenSource loads the saved token and writes refreshed tokens back.
// A login recorded without profile:read_all fails with ErrScopeMissing.
func NewStoredTokenSource(ctx context.Context, cfg *oauth2.Config, ts TokenStore) (*TokenSource, error) {
	a, err := ts.GetAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading stored tokens: %w", err)
	}
	if !a.Grants(ProfileScope) {
		return nil, fmt.Errorf("stored login has scope %q: %w", a.Scope, ErrScopeMissing)
	}
	persist := func(t *oauth2.Token) error {
		return ts.UpdateTokens(ctx, t.AccessToken, t.RefreshToken, t.Expiry)
	}
	return NewTokenSource(ctx, cfg, TokenFromAuth(a), persist), nil
}

// Token returns a valid token, refreshing if necessary
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if time.Until(ts.token.Expiry) > refreshBuffer {
		return ts.token, nil
	}

	src := ts.config.TokenSource(ts.ctx, ts.token)
	newToken, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	if ts.onRefresh != nil {
		if err := ts.onRefresh(newToken); err != nil {
			return nil, fmt.Errorf("saving refreshed token: %w", err)
		}
	}

	ts.token = newToken
	return newToken, nil
}

// IsExpired checks if the current token is expired or will expire within the buffer
func (ts *TokenSource) IsExpired() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return time.Until(ts.token.Expiry) <= refreshBuffer
}

// Client returns an HTTP client that authorizes every request
func (ts *TokenSource) Client() *http.Client {
	return oauth2.NewClient(ts.ctx, ts)
}

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"racecalc/internal/store"
)

func TestExtractAthleteID(t *testing.T) {
	tok := (&oauth2.Token{AccessToken: "a"}).WithExtra(map[string]interface{}{
		"athlete": map[string]interface{}{"id": float64(1234)},
	})
	assert.Equal(t, int64(1234), ExtractAthleteID(tok))
	assert.Equal(t, int64(0), ExtractAthleteID(&oauth2.Token{}))
}

func TestNewOAuthConfig(t *testing.T) {
	cfg := NewOAuthConfig(Config{ClientID: "id", ClientSecret: "secret"})
	assert.Equal(t, DefaultRedirectURL(), cfg.RedirectURL)
	assert.Equal(t, TokenURL, cfg.Endpoint.TokenURL)
	assert.Contains(t, cfg.Scopes[0], "profile:read_all")
}

func TestCallback(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
	}{
		{"success", "?state=s1&code=abc&scope=read,profile:read_all,activity:read_all", http.StatusOK, "abc"},
		{"wrong state", "?state=nope&code=abc", http.StatusBadRequest, ""},
		{"denied", "?state=s1&error=access_denied", http.StatusBadRequest, ""},
		{"missing profile scope", "?state=s1&code=abc&scope=read", http.StatusForbidden, ""},
		{"lookalike scope", "?state=s1&code=abc&scope=read,profile:read_allx", http.StatusForbidden, ""},
		{"no code", "?state=s1", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := newCallback("s1")
			rec := httptest.NewRecorder()
			cb.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				g := <-cb.grants
				assert.Equal(t, tt.wantCode, g.code)
				assert.Equal(t, "read,profile:read_all,activity:read_all", g.scope)
				return
			}
			err := <-cb.errs
			assert.Error(t, err)
			if tt.wantStatus == http.StatusForbidden {
				assert.True(t, errors.Is(err, ErrScopeMissing))
			}
			if tt.name == "wrong state" {
				assert.True(t, errors.Is(err, ErrStateMismatch))
			}
		})
	}
}

type memTokens struct {
	auth    *store.Auth
	updated bool
}

func (m *memTokens) GetAuth(context.Context) (*store.Auth, error) {
	if m.auth == nil {
		return nil, store.ErrNoAuth
	}
	return m.auth, nil
}

func (m *memTokens) UpdateTokens(_ context.Context, access, refresh string, exp time.Time) error {
	m.updated = true
	m.auth.AccessToken, m.auth.RefreshToken, m.auth.ExpiresAt = access, refresh, exp
	return nil
}

func TestStoredTokenSource(t *testing.T) {
	ctx := context.Background()
	cfg := NewOAuthConfig(Config{ClientID: "id", ClientSecret: "secret"})

	_, err := NewStoredTokenSource(ctx, cfg, &memTokens{})
	assert.ErrorIs(t, err, store.ErrNoAuth)

	mem := &memTokens{auth: &store.Auth{AthleteID: 1, AccessToken: "fresh", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)}}
	ts, err := NewStoredTokenSource(ctx, cfg, mem)
	require.NoError(t, err)
	assert.False(t, ts.IsExpired())

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.False(t, mem.updated)
}

func TestAuthResultKeepsScope(t *testing.T) {
	res := &AuthResult{
		Token:     &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Unix(1_700_000_000, 0)},
		AthleteID: 7,
		Scope:     "read,profile:read_all",
	}
	a := res.StoreAuth()
	assert.Equal(t, int64(7), a.AthleteID)
	assert.Equal(t, "read,profile:read_all", a.Scope)
	assert.True(t, a.Grants(ProfileScope))
}

func TestStoredTokenSourceRequiresProfileScope(t *testing.T) {
	ctx := context.Background()
	cfg := NewOAuthConfig(Config{ClientID: "id", ClientSecret: "secret"})
	exp := time.Now().Add(time.Hour)

	mem := &memTokens{auth: &store.Auth{AccessToken: "a", RefreshToken: "r", ExpiresAt: exp, Scope: "read,activity:read_all"}}
	_, err := NewStoredTokenSource(ctx, cfg, mem)
	assert.ErrorIs(t, err, ErrScopeMissing)

	mem.auth.Scope = "read,profile:read_all,activity:read_all"
	_, err = NewStoredTokenSource(ctx, cfg, mem)
	assert.NoError(t, err)
}

func TestStoredTokenSourceRefreshes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new","refresh_token":"r2","token_type":"Bearer","expires_in":21600}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	cfg := NewOAuthConfig(Config{ClientID: "id", ClientSecret: "secret"})
	cfg.Endpoint.TokenURL = srv.URL

	mem := &memTokens{auth: &store.Auth{AccessToken: "old", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Minute)}}
	ts, err := NewStoredTokenSource(ctx, cfg, mem)
	require.NoError(t, err)
	assert.True(t, ts.IsExpired())

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "new", tok.AccessToken)
	assert.True(t, mem.updated)
	assert.Equal(t, "r2", mem.auth.RefreshToken)
}

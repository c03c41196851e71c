package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// The auth table holds a single row (id = 1) with the Strava tokens and
// the scope list the athlete granted at login.

// GetAuth returns the stored Strava login, or ErrNoAuth before the first one
func (s *Store) GetAuth(ctx context.Context) (*Auth, error) {
	var (
		a       Auth
		expires int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT athlete_id, access_token, refresh_token, expires_at, scope FROM auth WHERE id = 1`,
	).Scan(&a.AthleteID, &a.AccessToken, &a.RefreshToken, &expires, &a.Scope)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNoAuth
	case err != nil:
		return nil, err
	}
	a.ExpiresAt = time.Unix(expires, 0)
	return &a, nil
}

// SaveAuth replaces the login, scope included
func (s *Store) SaveAuth(ctx context.Context, a *Auth) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth (id, athlete_id, access_token, refresh_token, expires_at, scope, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			athlete_id = excluded.athlete_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			scope = excluded.scope,
			updated_at = CURRENT_TIMESTAMP
	`, a.AthleteID, a.AccessToken, a.RefreshToken, a.ExpiresAt.Unix(), a.Scope)
	return err
}

// UpdateTokens stores a refreshed token pair. A refresh never changes the
// granted scope, so the scope column is left alone.
func (s *Store) UpdateTokens(ctx context.Context, accessToken, refreshToken string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE auth SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1`,
		accessToken, refreshToken, expiresAt.Unix())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoAuth
	}
	return nil
}

// Grants reports whether the stored login includes scope. An empty scope
// list means Strava did not report one, which is treated as granted.
func (a *Auth) Grants(scope string) bool {
	return a.Scope == "" || ScopeGrants(a.Scope, scope)
}

// ScopeGrants reports whether a comma-separated Strava scope list holds want
func ScopeGrants(scopes, want string) bool {
	for _, s := range strings.Split(scopes, ",") {
		if strings.TrimSpace(s) == want {
			return true
		}
	}
	return false
}

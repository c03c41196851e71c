package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"racecalc/internal/store"
)

const (
	// CallbackPort is the port for the OAuth callback server
	CallbackPort = 8089
	// AuthTimeout is how long to wait for the user to complete auth
	AuthTimeout = 5 * time.Minute
)

// ErrStateMismatch means the callback did not come from our auth request
var ErrStateMismatch = errors.New("state mismatch - possible CSRF attack")

const successPage = `<!DOCTYPE html>
<html>
<head><title>racecalc connected</title></head>
<body style="font-family: system-ui; text-align: center; margin-top: 20vh;">
<h1 style="color: #10B981;">Connected</h1>
<p>racecalc can now read your Strava profile. You can close this window.</p>
</body>
</html>`

// grant is what the Strava redirect carries on success
type grant struct {
	code  string
	scope string
}

// callback receives the redirect from Strava and hands over the grant once
type callback struct {
	state  string
	grants chan grant
	errs   chan error
}

func newCallback(state string) *callback {
	return &callback{state: state, grants: make(chan grant, 1), errs: make(chan error, 1)}
}

func (c *callback) fail(w http.ResponseWriter, status int, err error) {
	select {
	case c.errs <- err:
	default:
	}
	http.Error(w, err.Error(), status)
}

func (c *callback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("state") != c.state {
		c.fail(w, http.StatusBadRequest, ErrStateMismatch)
		return
	}
	if msg := q.Get("error"); msg != "" {
		c.fail(w, http.StatusBadRequest, fmt.Errorf("auth error: %s", msg))
		return
	}
	// Strava lets the user untick scopes; FTP and weight need profile:read_all
	scope := q.Get("scope")
	if scope != "" && !store.ScopeGrants(scope, ProfileScope) {
		c.fail(w, http.StatusForbidden, fmt.Errorf("%w (got %q)", ErrScopeMissing, scope))
		return
	}
	code := q.Get("code")
	if code == "" {
		c.fail(w, http.StatusBadRequest, errors.New("no code in callback"))
		return
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, successPage)
	select {
	case c.grants <- grant{code: code, scope: scope}:
	default:
	}
}

// Authenticate runs the OAuth flow with a local callback server.
// Instructions for the user are written to out.
func Authenticate(ctx context.Context, cfg *oauth2.Config, out io.Writer) (*AuthResult, error) {
	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	cb := newCallback(state)
	mux := http.NewServeMux()
	mux.Handle("/callback", cb)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", CallbackPort))
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != http.ErrServerClosed {
			cb.errs <- fmt.Errorf("server error: %w", err)
		}
	}()
	defer shutdownServer(server)

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("approval_prompt", "auto"))
	fmt.Fprintf(out, "\nTo connect racecalc to Strava, open this URL in your browser:\n\n  %s\n\nWaiting for authentication...\n", authURL)

	var g grant
	select {
	case g = <-cb.grants:
	case err := <-cb.errs:
		return nil, err
	case <-time.After(AuthTimeout):
		return nil, fmt.Errorf("authentication timeout after %v", AuthTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := cfg.Exchange(ctx, g.code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}

	return &AuthResult{
		Token:     token,
		AthleteID: ExtractAthleteID(token),
		Scope:     g.scope,
	}, nil
}

// generateState creates a random state string for CSRF protection
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// shutdownServer gracefully shuts down the HTTP server
func shutdownServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}

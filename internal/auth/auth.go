package auth

import (
	"context"
	"net/http"
	"sync"

	"github.com/gennadis/facultydash/internal/client"
	"github.com/gennadis/facultydash/internal/config"
	"github.com/gennadis/facultydash/internal/logger"
	"github.com/gennadis/facultydash/internal/session"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Profile is the signed-in faculty member
type Profile struct {
	FacultyEmail string
	Courses      []session.Assignment
}

// AuthenticationHandler owns the bearer token and the two backend clients:
// one without credentials for login and one that signs every request.
type AuthenticationHandler struct {
	Tokens *TokenStore

	public *client.Client
	api    *client.Client
	log    *logger.Logger

	mu      sync.RWMutex
	profile *Profile
}

// NewAuthenticationHandler creates a handler with no one signed in
func NewAuthenticationHandler(cfg *config.Config, log *logger.Logger) *AuthenticationHandler {
	tokens := NewTokenStore()
	signed := &http.Client{
		Transport: &oauth2.Transport{Source: tokens, Base: http.DefaultTransport},
		Timeout:   cfg.HTTPTimeout,
	}
	ah := &AuthenticationHandler{
		Tokens: tokens,
		public: client.NewClient(cfg.BaseURL, &http.Client{Timeout: cfg.HTTPTimeout}, log),
		api:    client.NewClient(cfg.BaseURL, signed, log),
		log:    log,
	}
	tokens.OnDropped(func() {
		ah.mu.Lock()
		ah.profile = nil
		ah.mu.Unlock()
		log.Info("Access token dropped")
	})
	return ah
}

// API returns the bearer-authenticated backend client
func (ah *AuthenticationHandler) API() *client.Client {
	return ah.api
}

// Login signs in and keeps the issued token
func (ah *AuthenticationHandler) Login(ctx context.Context, email, password string) (*Profile, error) {
	resp, err := ah.public.Login(ctx, email, password)
	if err != nil {
		ah.log.Error("Failed to log in", "email", email, "error", err)
		return nil, err
	}

	token, err := ah.Tokens.Set(resp.Token)
	if err != nil {
		return nil, errors.Wrap(err, "login returned an unusable token")
	}

	profile := &Profile{FacultyEmail: resp.FacultyEmail, Courses: resp.Courses}
	ah.mu.Lock()
	ah.profile = profile
	ah.mu.Unlock()

	ah.log.Info("Logged in",
		"email", resp.FacultyEmail,
		"courses", len(resp.Courses),
		"expires_at", token.ExpiresAt,
	)
	return profile, nil
}

// Profile returns the signed-in profile, if any
func (ah *AuthenticationHandler) Profile() (*Profile, bool) {
	ah.mu.RLock()
	defer ah.mu.RUnlock()
	if ah.profile == nil {
		return nil, false
	}
	if _, ok := ah.Tokens.Get(); !ok {
		return nil, false
	}
	return ah.profile, true
}

// Verify checks the token against the backend and logs out on 401
func (ah *AuthenticationHandler) Verify(ctx context.Context) error {
	err := ah.api.Verify(ctx)
	if err == nil {
		return nil
	}
	if client.IsUnauthorized(err) {
		ah.Logout(ctx)
		return ErrSessionExpired
	}
	if errors.Is(err, ErrSessionExpired) {
		return ErrSessionExpired
	}
	// token state is unknown; keep the session
	ah.log.Warn("Failed to verify token", "error", err)
	return nil
}

// Logout asks the backend to purge all materials, then forgets the token.
// The purge is best effort.
func (ah *AuthenticationHandler) Logout(ctx context.Context) {
	if _, ok := ah.Tokens.Get(); ok {
		if err := ah.api.ClearAll(ctx); err != nil {
			ah.log.Warn("Failed to clear materials on logout", "error", err)
		}
	}
	ah.Tokens.Clear()

	ah.mu.Lock()
	ah.profile = nil
	ah.mu.Unlock()
}

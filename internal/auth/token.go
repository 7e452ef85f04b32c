package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	tokenCacheKey         = "bearer"
	expiryCleanupInterval = time.Minute
)

var ErrSessionExpired = errors.New("session expired, please log in again")

// Token is the bearer credential issued at login. ExpiresAt is zero for
// tokens that carry no exp claim.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// TokenStore keeps the current bearer token and drops it when it expires.
// It implements oauth2.TokenSource.
type TokenStore struct {
	cache *cache.Cache
}

// NewTokenStore creates an empty TokenStore
func NewTokenStore() *TokenStore {
	return &TokenStore{cache: cache.New(cache.NoExpiration, expiryCleanupInterval)}
}

// Set stores raw. A JWT's exp claim bounds how long it is kept; opaque
// tokens are kept until cleared.
func (s *TokenStore) Set(raw string) (Token, error) {
	if raw == "" {
		return Token{}, errors.New("empty token")
	}
	expiresAt := parseExpiry(raw)

	ttl := cache.NoExpiration
	if !expiresAt.IsZero() {
		ttl = time.Until(expiresAt)
		if ttl <= 0 {
			return Token{}, errors.Wrapf(ErrSessionExpired, "token expired at %s", expiresAt.Format(time.RFC3339))
		}
	}

	token := Token{AccessToken: raw, ExpiresAt: expiresAt}
	s.cache.Set(tokenCacheKey, token, ttl)
	return token, nil
}

// Get returns the token if one is stored and not expired
func (s *TokenStore) Get() (Token, bool) {
	v, found := s.cache.Get(tokenCacheKey)
	if !found {
		return Token{}, false
	}
	return v.(Token), true
}

func (s *TokenStore) Clear() {
	s.cache.Delete(tokenCacheKey)
}

// OnDropped registers fn to run when the token is cleared or evicted on expiry
func (s *TokenStore) OnDropped(fn func()) {
	s.cache.OnEvicted(func(key string, _ interface{}) {
		if key == tokenCacheKey {
			fn()
		}
	})
}

// Token implements oauth2.TokenSource
func (s *TokenStore) Token() (*oauth2.Token, error) {
	t, ok := s.Get()
	if !ok {
		return nil, ErrSessionExpired
	}
	return &oauth2.Token{
		AccessToken: t.AccessToken,
		TokenType:   "Bearer",
		Expiry:      t.ExpiresAt,
	}, nil
}

// parseExpiry reads the exp claim without verifying the signature; the
// backend is the one that verifies.
func parseExpiry(raw string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

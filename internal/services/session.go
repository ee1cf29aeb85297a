package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/gmx/internal/shared"
)

// CookieSession authenticates with headers and cookies lifted from a browser request.
//
// It is valid while it holds a cookie and, when an expiry is set, until that time.
type CookieSession struct {
	mu      sync.RWMutex
	capture *shared.SessionCapture
	expires time.Time
}

// NewCookieSession wraps a parsed capture.
func NewCookieSession(capture *shared.SessionCapture) *CookieSession {
	return &CookieSession{capture: capture}
}

// LoadCookieSession parses the cURL command stored at path.
func LoadCookieSession(path string) (*CookieSession, error) {
	capture, err := shared.ParseCurlFile(path)
	if err != nil {
		return nil, err
	}
	return NewCookieSession(capture), nil
}

// SetExpiry bounds the session's validity.
func (s *CookieSession) SetExpiry(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expires = t
}

// Capture returns the underlying capture.
func (s *CookieSession) Capture() *shared.SessionCapture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capture
}

func (s *CookieSession) Valid(ctx context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ctx.Err() != nil || s.capture == nil || s.capture.Cookie == "" {
		return false
	}
	return s.expires.IsZero() || time.Now().Before(s.expires)
}

func (s *CookieSession) Apply(req *http.Request) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.capture == nil {
		return fmt.Errorf("%w: no captured session", shared.ErrMissingCredentials)
	}
	s.capture.Apply(req.Header)
	return nil
}

// TokenSession authenticates with bearer tokens from an [oauth2.TokenSource].
type TokenSession struct {
	source oauth2.TokenSource
}

// NewTokenSession wraps src. Refreshing sources are reused across calls.
func NewTokenSession(src oauth2.TokenSource) *TokenSession {
	return &TokenSession{source: oauth2.ReuseTokenSource(nil, src)}
}

// StaticTokenSession authenticates with a fixed access token.
func StaticTokenSession(accessToken string) *TokenSession {
	return NewTokenSession(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
}

func (s *TokenSession) Valid(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	tok, err := s.source.Token()
	return err == nil && tok.Valid()
}

func (s *TokenSession) Apply(req *http.Request) error {
	tok, err := s.source.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrSessionExpired, err)
	}
	tok.SetAuthHeader(req)
	return nil
}

var (
	_ SessionProvider = (*CookieSession)(nil)
	_ SessionProvider = (*TokenSession)(nil)
)

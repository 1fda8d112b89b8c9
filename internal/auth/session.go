// Package auth issues and verifies session cookies, hashes passwords and
// talks to Google for OAuth sign-in.
//
// SESSION FLOW:
//  1. Sign-in (password or Google) succeeds in the service layer
//  2. SessionService.Issue signs an HS256 JWT whose subject is the user ID
//  3. The handler stores it in the HttpOnly "session" cookie (one week)
//  4. RequireAuth / OptionalAuth read the cookie on later requests,
//     verify the token and put the user ID in the request context
//
// The token is the whole session: nothing is stored server-side, so signing
// out only clears the cookie.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// CookieName is the session cookie set after sign-in.
	CookieName = "session"

	// OneWeek is the default session lifetime.
	OneWeek = 7 * 24 * time.Hour

	issuer = "interview-me"
)

// SessionService signs and verifies session tokens.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// SessionOption tweaks a SessionService.
type SessionOption func(*SessionService)

// WithTTL overrides the one-week session lifetime.
func WithTTL(d time.Duration) SessionOption {
	return func(s *SessionService) { s.ttl = d }
}

// WithSecureCookies marks issued cookies Secure (HTTPS only).
func WithSecureCookies(secure bool) SessionOption {
	return func(s *SessionService) { s.secure = secure }
}

// withClock is used by tests to pin token timestamps.
func withClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

// NewSessionService creates a SessionService. The secret must be at least
// 16 characters; use e.g. SESSION_SECRET=$(openssl rand -hex 32).
func NewSessionService(secret string, opts ...SessionOption) (*SessionService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	s := &SessionService{
		secret: []byte(secret),
		ttl:    OneWeek,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ttl <= 0 {
		return nil, errors.New("auth: session ttl must be positive")
	}
	return s, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// TTL returns the configured session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a signed session token for userID.
func (s *SessionService) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("auth: cannot issue a session without a user id")
	}
	now := s.now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session: %w", err)
	}
	return signed, nil
}

// Verify parses a session token and returns the user ID it belongs to.
// Expired, tampered, foreign-issuer and non-HS256 tokens are rejected.
func (s *SessionService) Verify(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.New("auth: session expired")
		}
		return "", fmt.Errorf("auth: invalid session: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", errors.New("auth: invalid session claims")
	}
	if c.Subject == "" {
		return "", errors.New("auth: session has no subject")
	}
	return c.Subject, nil
}

// Cookie wraps a token in the session cookie.
func (s *SessionService) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie returns a cookie that deletes the session in the browser.
func (s *SessionService) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

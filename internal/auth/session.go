// Package auth provides the cookie session store, the request guards built on
// it, password hashing, and the optional GitHub OAuth provider.
//
// SESSION FLOW OVERVIEW:
//  1. POST /login verifies the password, puts userId into a Session
//  2. SessionStore.Commit serializes the Session into a signed cookie value
//  3. The browser sends the cookie back on every request
//  4. LoadSession middleware calls SessionStore.Get once per request and
//     stores the Session in the request context
//  5. RequireUser redirects to /login when the Session has no userId
//
// COOKIE FORMAT:
// The cookie value is an HS256 JWT. The claims carry the session data map,
// an expiry, and a random token ID (jti). Nothing is stored server-side: the
// signature alone proves the cookie was issued by this server and not edited.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// SessionCookieName is the cookie holding the signed session.
	SessionCookieName = "__session"

	// KeyUserID is the session key set on login.
	KeyUserID = "userId"

	sessionIssuer = "snippet-saver"
)

// Session is a small string key/value bag read from and written to the cookie.
type Session struct {
	data map[string]string
}

// NewSession returns an empty session (anonymous visitor).
func NewSession() *Session {
	return &Session{data: make(map[string]string)}
}

func (s *Session) Get(key string) string {
	return s.data[key]
}

func (s *Session) Set(key, value string) {
	s.data[key] = value
}

func (s *Session) Unset(key string) {
	delete(s.data, key)
}

// UserID is shorthand for Get(KeyUserID).
func (s *Session) UserID() string {
	return s.data[KeyUserID]
}

// Empty reports whether the session carries no data at all.
func (s *Session) Empty() bool {
	return len(s.data) == 0
}

// SessionOptions tunes the cookie the store writes.
type SessionOptions struct {
	TTL    time.Duration // cookie Max-Age and token expiry
	Secure bool          // set the Secure attribute (HTTPS only)
}

// SessionStore signs and verifies session cookies with an HMAC secret.
type SessionStore struct {
	secret []byte
	opts   SessionOptions
}

// NewSessionStore creates a store. The secret must be at least 16 characters.
// A zero TTL defaults to 30 days.
func NewSessionStore(secret string, opts SessionOptions) (*SessionStore, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * 24 * time.Hour
	}
	return &SessionStore{secret: []byte(secret), opts: opts}, nil
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Data map[string]string `json:"data,omitempty"`
}

// Get decodes the session from a raw Cookie request header.
//
// A missing, expired, or tampered cookie never produces an error: it just
// yields an empty session, exactly like a first-time visitor.
func (s *SessionStore) Get(cookieHeader string) *Session {
	if cookieHeader == "" {
		return NewSession()
	}
	req := &http.Request{Header: http.Header{"Cookie": []string{cookieHeader}}}
	cookie, err := req.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return NewSession()
	}

	data, err := s.decode(cookie.Value)
	if err != nil {
		return NewSession()
	}
	return &Session{data: data}
}

// Commit serializes the session and returns a Set-Cookie header value.
func (s *SessionStore) Commit(sess *Session) (string, error) {
	value, err := s.encode(sess, s.opts.TTL)
	if err != nil {
		return "", err
	}
	return s.cookie(value, int(s.opts.TTL.Seconds())).String(), nil
}

// Destroy returns a Set-Cookie header value that deletes the session cookie.
func (s *SessionStore) Destroy() string {
	return s.cookie("", -1).String()
}

func (s *SessionStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// encode signs the session data with the given lifetime. A negative ttl
// produces an already-expired token.
func (s *SessionStore) encode(sess *Session, ttl time.Duration) (string, error) {
	now := time.Now()
	c := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   sess.UserID(),
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Data: sess.data,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session: %w", err)
	}
	return signed, nil
}

func (s *SessionStore) decode(value string) (map[string]string, error) {
	token, err := jwt.ParseWithClaims(
		value,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: invalid session: %w", err)
	}

	c, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid session claims")
	}
	if c.Data == nil {
		c.Data = make(map[string]string)
	}
	return c.Data, nil
}

// Package auth guards every write to the vault.
//
// There is exactly ONE credential: the admin password. A successful login
// yields a signed session token, stored in an HttpOnly cookie (or sent as a
// Bearer header by scripts). Requests carrying a valid token get a Session in
// their context; the service layer asks IsAdmin(ctx) before any mutation.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"iss":"snippet-vault","sub":"admin","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// The server verifies the signature with the secret alone, so sessions need
// no storage.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Issuer is stamped into and required on every token.
	Issuer = "snippet-vault"
	// AdminSubject is the only subject a token is ever issued for.
	AdminSubject = "admin"
	// DefaultSessionTTL applies when no TTL is configured.
	DefaultSessionTTL = 12 * time.Hour
)

// TokenService handles session token creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService. A ttl of zero means
// DefaultSessionTTL.
// Example secret: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL reports how long issued tokens stay valid.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Generate signs a new admin session token and returns it with its expiry.
func (s *TokenService) Generate() (string, time.Time, error) {
	return s.generate(s.ttl)
}

func (s *TokenService) generate(ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(ttl)

	c := jwt.RegisteredClaims{
		Subject:   AdminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		Issuer:    Issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: signing token: %w", err)
	}

	// NumericDate has second precision; report what the token actually says.
	return signed, c.ExpiresAt.Time, nil
}

// Validate parses and verifies a session token.
//
// The jwt library checks the signature, expiry, issuer and algorithm.
// Pinning the method list to HS256 blocks the "alg":"none" confusion attack.
func (s *TokenService) Validate(tokenStr string) (Session, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithSubject(AdminSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, errors.New("auth: token expired")
		}
		return Session{}, fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return Session{}, errors.New("auth: invalid token claims")
	}

	return Session{Subject: c.Subject, ExpiresAt: c.ExpiresAt.Time}, nil
}

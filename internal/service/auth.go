package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/auth"
)

// AuthService checks the admin credential and issues session tokens.
//
//	AuthHandler (HTTP) → AuthService → PasswordService (bcrypt)
//	                                 ↘ TokenService (JWT)
//
// It does NOT set cookies; that is an HTTP concern left to the handler.
type AuthService struct {
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	adminHash string
	logger    *slog.Logger
}

// NewAuthService creates an AuthService for the given bcrypt hash of the
// admin password.
func NewAuthService(
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	adminHash string,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		passwords: passwords,
		tokens:    tokens,
		adminHash: adminHash,
		logger:    logger,
	}
}

// Login verifies the admin password and returns a signed session token with
// its expiry. A wrong password yields ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, password string) (string, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return "", time.Time{}, err
	}

	if err := s.passwords.Verify(s.adminHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("admin login failed")
			return "", time.Time{}, apperror.Unauthorized("invalid password")
		}
		return "", time.Time{}, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	token, expires, err := s.tokens.Generate()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("service/auth: generating token: %w", err)
	}

	s.logger.Info("admin logged in", slog.Time("expiresAt", expires))
	return token, expires, nil
}

// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

// Package auth provides account signup/login, JWT session tokens and
// logout revocation for the storefront API.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookhubhq/bookhub/internal/config"
	"github.com/bookhubhq/bookhub/internal/logging"
	"github.com/bookhubhq/bookhub/internal/metrics"
	"github.com/bookhubhq/bookhub/internal/models"
	"github.com/bookhubhq/bookhub/internal/store"
)

// Sentinel errors surfaced to the HTTP layer.
var (
	// ErrInvalidCredentials covers both unknown email and wrong
	// password, so responses never leak which one failed.
	ErrInvalidCredentials = errors.New("auth: invalid email or password")

	// ErrEmailTaken is returned when signup hits an existing account.
	ErrEmailTaken = errors.New("auth: user with this email already exists")

	// ErrTokenRevoked is returned for tokens invalidated by logout.
	ErrTokenRevoked = errors.New("auth: token has been revoked")
)

// Service implements the account lifecycle on top of the catalog
// store.
type Service struct {
	store   *store.Store
	jwt     *JWTManager
	revoked *RevocationStore
}

// NewService wires the auth service to the store and token manager.
// Revocation shares the store's Badger database.
func NewService(st *store.Store, cfg *config.SecurityConfig) (*Service, error) {
	jwtManager, err := NewJWTManager(cfg)
	if err != nil {
		return nil, err
	}
	return &Service{
		store:   st,
		jwt:     jwtManager,
		revoked: NewRevocationStore(st.DB()),
	}, nil
}

// Signup creates an account with the user role and returns it with a
// fresh session token.
func (s *Service) Signup(ctx context.Context, name, email, password string) (*models.User, string, error) {
	hash, err := HashPassword(password)
	if err != nil {
		metrics.RecordAuthAttempt("signup", false)
		return nil, "", err
	}

	user, err := s.store.CreateUser(ctx, &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	})
	if err != nil {
		metrics.RecordAuthAttempt("signup", false)
		if errors.Is(err, store.ErrEmailTaken) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		metrics.RecordAuthAttempt("signup", false)
		return nil, "", err
	}

	metrics.RecordAuthAttempt("signup", true)
	logging.Ctx(ctx).Info().Str("user_id", user.ID).Msg("account created")
	return user, token, nil
}

// Login authenticates by email and password and returns the user with
// a fresh session token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		metrics.RecordAuthAttempt("login", false)
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !CheckPassword(user.PasswordHash, password) {
		metrics.RecordAuthAttempt("login", false)
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		metrics.RecordAuthAttempt("login", false)
		return nil, "", err
	}

	metrics.RecordAuthAttempt("login", true)
	logging.Ctx(ctx).Info().Str("user_id", user.ID).Str("role", user.Role).Msg("user logged in")
	return user, token, nil
}

// Logout revokes the given token for the rest of its lifetime. An
// invalid token is a no-op: the client is logging out either way.
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwt.ValidateToken(tokenString)
	if err != nil {
		return nil
	}
	return s.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
}

// Authenticate validates a token and checks it against the revocation
// list.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.jwt.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revoked.IsRevoked(claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// EnsureAdmin bootstraps the admin account from configuration on
// startup. An existing account with the admin email is left untouched.
func (s *Service) EnsureAdmin(ctx context.Context, cfg *config.SecurityConfig) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	if _, err := s.store.GetUserByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup admin account: %w", err)
	}

	hash, err := HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	admin, err := s.store.CreateUser(ctx, &models.User{
		Name:         "Administrator",
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("create admin account: %w", err)
	}

	logging.Info().Str("user_id", admin.ID).Msg("admin account bootstrapped")
	return nil
}

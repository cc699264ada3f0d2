// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package auth

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bookhubhq/bookhub/internal/config"
	"github.com/bookhubhq/bookhub/internal/logging"
	"github.com/bookhubhq/bookhub/internal/models"
	"github.com/bookhubhq/bookhub/internal/store"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		JWTSecret:      "test-secret-key-with-enough-length!!",
		SessionTimeout: time.Hour,
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	st, err := store.Open(config.StoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	svc, err := NewService(st, testSecurityConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestService_SignupAndLogin(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	user, token, err := svc.Signup(ctx, "Alice", "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Role != models.RoleUser {
		t.Errorf("signup role = %q, want %q", user.Role, models.RoleUser)
	}
	if user.PasswordHash == "s3cret-pass" {
		t.Error("password stored in plain text")
	}
	if token == "" {
		t.Fatal("signup returned empty token")
	}

	claims, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("authenticate signup token: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != "alice@example.com" {
		t.Errorf("claims mismatch: %+v", claims)
	}

	if _, _, err := svc.Login(ctx, "alice@example.com", "s3cret-pass"); err != nil {
		t.Errorf("login with correct password: %v", err)
	}
}

func TestService_LoginFailures(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "Alice", "alice@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "s3cret-pass"},
		{"wrong password", "alice@example.com", "wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Login(ctx, tt.email, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Login(%q) error = %v, want ErrInvalidCredentials", tt.email, err)
			}
		})
	}
}

func TestService_DuplicateSignup(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "Alice", "alice@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	_, _, err := svc.Signup(ctx, "Other Alice", "Alice@Example.com", "different")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate signup error = %v, want ErrEmailTaken", err)
	}
}

func TestService_LogoutRevokesToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	_, token, err := svc.Signup(ctx, "Alice", "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := svc.Authenticate(ctx, token); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("authenticate after logout error = %v, want ErrTokenRevoked", err)
	}

	// A second session for the same user is unaffected.
	_, second, err := svc.Login(ctx, "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Authenticate(ctx, second); err != nil {
		t.Errorf("second session rejected after first logout: %v", err)
	}
}

func TestService_LogoutWithGarbageToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	if err := svc.Logout(context.Background(), "not-a-token"); err != nil {
		t.Errorf("logout with garbage token = %v, want nil", err)
	}
}

func TestService_EnsureAdmin(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	cfg := testSecurityConfig()
	cfg.AdminEmail = "admin@bookhub.com"
	cfg.AdminPassword = "admin-pass-123"

	if err := svc.EnsureAdmin(ctx, cfg); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	admin, _, err := svc.Login(ctx, "admin@bookhub.com", "admin-pass-123")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if admin.Role != models.RoleAdmin {
		t.Errorf("admin role = %q, want %q", admin.Role, models.RoleAdmin)
	}

	// Idempotent across restarts.
	if err := svc.EnsureAdmin(ctx, cfg); err != nil {
		t.Errorf("second ensure admin: %v", err)
	}
}

func TestJWTManager_RejectsTamperedToken(t *testing.T) {
	t.Parallel()

	manager, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := manager.GenerateToken(&models.User{ID: "u1", Email: "a@b.c", Role: models.RoleUser})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := manager.ValidateToken(token + "x"); err == nil {
		t.Error("tampered token validated")
	}

	other, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      "a-completely-different-secret-value!",
		SessionTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("token validated under wrong secret")
	}
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	t.Parallel()

	manager, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      "test-secret-key-with-enough-length!!",
		SessionTimeout: -time.Minute,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := manager.GenerateToken(&models.User{ID: "u1", Email: "a@b.c", Role: models.RoleUser})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := manager.ValidateToken(token); err == nil {
		t.Error("expired token validated")
	}
}

func TestHashPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "s3cret-pass") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

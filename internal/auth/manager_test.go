package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/jordanhubbard/promptvault/pkg/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	return NewManager(config.SecurityConfig{
		EnableAuth: true,
		JWTSecret:  "test-secret",
		TokenTTL:   time.Hour,
		APIKeys:    []string{"key-one", "key-two"},
		Users: []config.UserConfig{
			{Username: "alice", PasswordHash: hash},
		},
	})
}

func TestLoginSuccess(t *testing.T) {
	m := newTestManager(t)

	resp, err := m.Login("alice", "hunter2")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token")
	}
	if resp.Username != "alice" {
		t.Errorf("expected alice, got %s", resp.Username)
	}
	if resp.ExpiresIn != 3600 {
		t.Errorf("expected 3600s expiry, got %d", resp.ExpiresIn)
	}

	claims, err := m.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("token validation failed: %v", err)
	}
	if claims.Username != "alice" {
		t.Errorf("expected alice in claims, got %s", claims.Username)
	}
}

func TestLoginFailures(t *testing.T) {
	m := newTestManager(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "wrong"},
		{"unknown user", "bob", "hunter2"},
		{"empty password", "alice", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Login(tt.username, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestValidateTokenRejectsForgery(t *testing.T) {
	m := newTestManager(t)
	other := NewManager(config.SecurityConfig{JWTSecret: "different-secret"})

	forged, err := other.GenerateToken("alice")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := m.ValidateToken(forged); err == nil {
		t.Error("token signed with a different secret must be rejected")
	}
	if _, err := m.ValidateToken("not-a-jwt"); err == nil {
		t.Error("garbage token must be rejected")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	hash, _ := HashPassword("pw")
	m := NewManager(config.SecurityConfig{
		JWTSecret: "test-secret",
		TokenTTL:  -time.Minute,
		Users:     []config.UserConfig{{Username: "alice", PasswordHash: hash}},
	})
	// TokenTTL below zero falls back to the default, so force it.
	m.tokenTTL = -time.Minute

	token, err := m.GenerateToken("alice")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expired token must be rejected")
	}
}

func TestValidateAPIKey(t *testing.T) {
	m := newTestManager(t)

	if !m.ValidateAPIKey("key-one") {
		t.Error("configured key rejected")
	}
	if !m.ValidateAPIKey("key-two") {
		t.Error("configured key rejected")
	}
	if m.ValidateAPIKey("key-three") {
		t.Error("unknown key accepted")
	}
	if m.ValidateAPIKey("") {
		t.Error("empty key accepted")
	}
}

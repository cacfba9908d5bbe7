package auth

import (
	"testing"
	"time"

	"dialout/internal/config"
)

func TestIssueAndVerifySession(t *testing.T) {
	m, err := NewManager(config.AuthConfig{
		JWTSecret:  "secret",
		JWTIssuer:  "issuer",
		SessionTTL: 30 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	now := time.Unix(1700000000, 0).UTC()
	tok, err := m.IssueSession(now, "user-1", "ws-1", "operator")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok == "" {
		t.Fatalf("expected token string")
	}

	claims, err := m.Verify(tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.WorkspaceID != "ws-1" || claims.Role != "operator" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsExpiredSession(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", SessionTTL: time.Hour})
	now := time.Unix(1700000000, 0).UTC()
	tok, err := m.IssueSession(now, "u", "w", "owner")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(tok, now.Add(2*time.Hour)); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewManager(config.AuthConfig{JWTSecret: "secret-a", SessionTTL: time.Hour})
	verifier, _ := NewManager(config.AuthConfig{JWTSecret: "secret-b", SessionTTL: time.Hour})
	now := time.Now()
	tok, err := issuer.IssueSession(now, "u", "w", "owner")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(tok, now); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestIssueSessionRequiresIdentity(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", SessionTTL: time.Hour})
	if _, err := m.IssueSession(time.Now(), "", "w", "owner"); err == nil {
		t.Fatalf("expected error for missing user_id")
	}
	if _, err := m.IssueSession(time.Now(), "u", "", "owner"); err == nil {
		t.Fatalf("expected error for missing workspace_id")
	}
	if _, err := m.IssueSession(time.Now(), "u", "w", ""); err == nil {
		t.Fatalf("expected error for missing role")
	}
}

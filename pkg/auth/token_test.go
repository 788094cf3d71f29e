package auth

import (
	"testing"
	"time"
)

func TestTokenIssueAndVerify(t *testing.T) {
	m, err := NewTokenManager("unit-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	token, err := m.Issue("patient-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	subject, err := m.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if subject != "patient-1" {
		t.Fatalf("subject = %q, want patient-1", subject)
	}
}

func TestTokenVerifyRejectsTamperedToken(t *testing.T) {
	m, _ := NewTokenManager("unit-test-secret", time.Hour)
	token, err := m.Issue("patient-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(token + "x"); err == nil {
		t.Fatalf("expected tampered token to fail")
	}
	other, _ := NewTokenManager("different-secret", time.Hour)
	if _, err := other.Verify(token); err == nil {
		t.Fatalf("expected token signed with another secret to fail")
	}
}

func TestTokenVerifyRejectsExpired(t *testing.T) {
	m, _ := NewTokenManager("unit-test-secret", time.Hour)
	m.ttl = -time.Minute
	token, err := m.Issue("patient-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(token); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	if _, err := NewTokenManager("   ", time.Hour); err == nil {
		t.Fatalf("expected error for blank secret")
	}
}

package auth_test

import (
	"testing"
	"time"

	"github.com/campusops/attendance-portal/pkg/auth"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	token, tokenID, err := auth.NewSessionToken("user-1", "s@campus.edu", "student", "secret", time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if tokenID == "" {
		t.Fatal("expected a token id")
	}

	claims, err := auth.Parse(token, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Sub != "user-1" || claims.Email != "s@campus.edu" || claims.Role != "student" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.ID != tokenID {
		t.Fatalf("jti = %q, want %q", claims.ID, tokenID)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := auth.NewSessionToken("user-1", "s@campus.edu", "student", "secret", time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := auth.Parse(token, "other-secret"); err == nil {
		t.Fatal("expected a signature error")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, _, err := auth.NewSessionToken("user-1", "s@campus.edu", "student", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := auth.Parse(token, "secret"); err == nil {
		t.Fatal("expected an expiry error")
	}
}

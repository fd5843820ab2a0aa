package auth

import (
	"errors"
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	raw, err := MakeAccessToken("u1", "admin@clinic.pe", "admin", "secret", 15*time.Minute)
	if err != nil {
		t.Fatalf("make token failed: %v", err)
	}

	claims, err := ParseAccessToken(raw, "secret")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "admin@clinic.pe" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAccessTokenWrongSecret(t *testing.T) {
	raw, err := MakeAccessToken("u1", "admin@clinic.pe", "admin", "secret", 15*time.Minute)
	if err != nil {
		t.Fatalf("make token failed: %v", err)
	}
	if _, err := ParseAccessToken(raw, "other"); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken, got %v", err)
	}
}

func TestAccessTokenExpired(t *testing.T) {
	raw, err := MakeAccessToken("u1", "admin@clinic.pe", "admin", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("make token failed: %v", err)
	}
	if _, err := ParseAccessToken(raw, "secret"); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken for expired token, got %v", err)
	}
}

func TestParseAccessTokenGarbage(t *testing.T) {
	if _, err := ParseAccessToken("not.a.jwt", "secret"); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken, got %v", err)
	}
}

func TestGenerateRefreshToken(t *testing.T) {
	raw, hash, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if raw == "" || hash == "" {
		t.Fatal("expected non-empty token and hash")
	}
	if raw == hash {
		t.Fatal("raw token must not equal its stored hash")
	}
	if HashRefreshToken(raw) != hash {
		t.Fatal("hash does not match raw token")
	}

	raw2, _, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if raw == raw2 {
		t.Fatal("two generated tokens must differ")
	}
}

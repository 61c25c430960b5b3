package middleware

import (
	"testing"

	"github.com/payflow/payflow-api/internal/models"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &models.User{ID: "user-1", Email: "admin@example.com"}
	secret := "test-secret"

	token, err := GenerateJWT(user, secret)
	if err != nil {
		t.Fatalf("GenerateJWT() error: %v", err)
	}

	claims, err := ParseJWT(token, secret)
	if err != nil {
		t.Fatalf("ParseJWT() error: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("claims.UserID = %q, want %q", claims.UserID, user.ID)
	}
	if claims.Email != user.Email {
		t.Errorf("claims.Email = %q, want %q", claims.Email, user.Email)
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	user := &models.User{ID: "user-1", Email: "admin@example.com"}

	token, err := GenerateJWT(user, "right-secret")
	if err != nil {
		t.Fatalf("GenerateJWT() error: %v", err)
	}

	if _, err := ParseJWT(token, "wrong-secret"); err == nil {
		t.Error("ParseJWT() with wrong secret must fail")
	}
}

func TestRateLimiter_BudgetExhaustion(t *testing.T) {
	rl := NewRateLimiter(3)

	for i := 0; i < 3; i++ {
		if result := rl.allow("10.0.0.1"); !result.allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if result := rl.allow("10.0.0.1"); result.allowed {
		t.Error("fourth request should be rejected")
	}

	// A different client has its own bucket.
	if result := rl.allow("10.0.0.2"); !result.allowed {
		t.Error("separate client should not share the budget")
	}
}

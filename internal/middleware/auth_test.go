package middleware

import (
	"testing"

	"propshare/internal/models"
)

func testUser() *models.User {
	u := &models.User{
		Email: "jwt@example.com",
		Role:  models.RoleInvestor,
	}
	u.ID = "0191b2c3-0000-7000-8000-000000000001"
	return u
}

func TestTokenPair(t *testing.T) {
	user := testUser()

	access, err := GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("failed to generate access token: %v", err)
	}
	refresh, err := GenerateRefreshToken(user)
	if err != nil {
		t.Fatalf("failed to generate refresh token: %v", err)
	}

	t.Run("access_token_parses", func(t *testing.T) {
		claims, err := ParseToken(access)
		if err != nil {
			t.Fatalf("access token rejected: %v", err)
		}
		if claims.UserID != user.ID {
			t.Errorf("expected user id %s, got %s", user.ID, claims.UserID)
		}
		if claims.Role != string(models.RoleInvestor) {
			t.Errorf("expected investor role claim, got %s", claims.Role)
		}
	})

	t.Run("refresh_token_validates", func(t *testing.T) {
		claims, err := ValidateRefreshToken(refresh)
		if err != nil {
			t.Fatalf("refresh token rejected: %v", err)
		}
		if claims.UserID != user.ID {
			t.Errorf("expected user id %s, got %s", user.ID, claims.UserID)
		}
	})

	t.Run("refresh_token_is_not_an_access_token", func(t *testing.T) {
		if _, err := ParseToken(refresh); err == nil {
			t.Error("refresh token must not pass access validation")
		}
	})

	t.Run("access_token_is_not_a_refresh_token", func(t *testing.T) {
		if _, err := ValidateRefreshToken(access); err == nil {
			t.Error("access token must not pass refresh validation")
		}
	})

	t.Run("garbage_rejected", func(t *testing.T) {
		if _, err := ParseToken("not-a-jwt"); err == nil {
			t.Error("garbage must be rejected")
		}
		if _, err := ValidateRefreshToken("not-a-jwt"); err == nil {
			t.Error("garbage must be rejected")
		}
	})
}

func TestHashToken(t *testing.T) {
	h1 := HashToken("some-token")
	h2 := HashToken("some-token")
	if h1 != h2 {
		t.Error("hash must be deterministic")
	}
	if len(h1) != 64 {
		t.Errorf("expected a 64-char hex digest, got %d chars", len(h1))
	}
	if HashToken("other-token") == h1 {
		t.Error("distinct tokens must hash differently")
	}
}

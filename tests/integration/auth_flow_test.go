package integration

import (
	"net/http"
	"testing"
)

func TestAuthFlow(t *testing.T) {
	app := setupApp(t)

	t.Run("register_login_profile", func(t *testing.T) {
		token, _ := app.registerUser(t, "alice@example.com", "password123")

		rec := app.request("GET", "/api/v1/profile", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("profile failed: %d %s", rec.Code, rec.Body.String())
		}
		profile := parseJSON(t, rec)
		if profile["email"] != "alice@example.com" {
			t.Errorf("expected registered email, got %v", profile["email"])
		}
		if profile["kyc_status"] != "none" {
			t.Errorf("new users start without KYC, got %v", profile["kyc_status"])
		}
	})

	t.Run("duplicate_email_rejected", func(t *testing.T) {
		app.registerUser(t, "bob@example.com", "password123")

		body := `{"email":"bob@example.com","password":"password123"}`
		rec := app.request("POST", "/api/v1/auth/register", body, "")
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("wrong_password_rejected", func(t *testing.T) {
		app.registerUser(t, "carol@example.com", "password123")

		body := `{"email":"carol@example.com","password":"wrong-password"}`
		rec := app.request("POST", "/api/v1/auth/login", body, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("profile_requires_token", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/profile", "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("kyc_update_is_admin_only", func(t *testing.T) {
		userToken, userID := app.registerUser(t, "dave@example.com", "password123")

		rec := app.request("PUT", "/api/v1/users/"+userID+"/kyc", `{"status":"approved"}`, userToken)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
		}

		adminToken, _ := app.registerAdmin(t, "admin@example.com", "password123")
		app.approveKYC(t, adminToken, userID)

		rec = app.request("GET", "/api/v1/profile", "", userToken)
		if status := parseJSON(t, rec)["kyc_status"]; status != "approved" {
			t.Errorf("expected approved KYC, got %v", status)
		}
	})

	t.Run("refresh_rotates_the_token_pair", func(t *testing.T) {
		body := `{"email":"erin@example.com","password":"password123"}`
		rec := app.request("POST", "/api/v1/auth/register", body, "")
		if rec.Code != http.StatusCreated {
			t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
		}
		oldRefresh := parseJSON(t, rec)["refresh_token"].(string)

		rec = app.request("POST", "/api/v1/auth/refresh", `{"refresh_token":"`+oldRefresh+`"}`, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("refresh failed: %d %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		newAccess := result["access_token"].(string)
		if result["refresh_token"].(string) == oldRefresh {
			t.Error("refresh must rotate the refresh token")
		}

		rec = app.request("GET", "/api/v1/profile", "", newAccess)
		if rec.Code != http.StatusOK {
			t.Fatalf("refreshed access token rejected: %d %s", rec.Code, rec.Body.String())
		}

		// The rotated-out token is revoked.
		rec = app.request("POST", "/api/v1/auth/refresh", `{"refresh_token":"`+oldRefresh+`"}`, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for a rotated-out refresh token, got %d", rec.Code)
		}
	})

	t.Run("refresh_token_is_not_an_access_token", func(t *testing.T) {
		body := `{"email":"frank@example.com","password":"password123"}`
		rec := app.request("POST", "/api/v1/auth/register", body, "")
		if rec.Code != http.StatusCreated {
			t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
		}
		refresh := parseJSON(t, rec)["refresh_token"].(string)

		rec = app.request("GET", "/api/v1/profile", "", refresh)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 when presenting a refresh token as bearer, got %d", rec.Code)
		}
	})

	t.Run("garbage_refresh_token_rejected", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/auth/refresh", `{"refresh_token":"not-a-jwt"}`, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("invalid_kyc_status_rejected", func(t *testing.T) {
		adminToken, adminID := app.registerAdmin(t, "admin2@example.com", "password123")
		rec := app.request("PUT", "/api/v1/users/"+adminID+"/kyc", `{"status":"verified"}`, adminToken)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
		}
	})
}

package integration

import (
	"fmt"
	"net/http"
	"testing"

	"propshare/internal/models"
)

func TestInvestmentFlow(t *testing.T) {
	app := setupApp(t)
	adminToken, _ := app.registerAdmin(t, "admin@example.com", "password123")
	userToken, userID := app.registerUser(t, "investor@example.com", "password123")
	propertyID := app.createActiveProperty(t, adminToken, 1000, 2500, 10000)

	investBody := fmt.Sprintf(`{"property_id":%q,"amount_cents":100000,"payment_method":"card"}`, propertyID)

	t.Run("requires_approved_kyc", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/investments", investBody, userToken)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 before KYC approval, got %d %s", rec.Code, rec.Body.String())
		}
	})

	app.approveKYC(t, adminToken, userID)

	var investmentID string
	t.Run("creates_investment_and_reserves_tokens", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/investments", investBody, userToken)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
		}
		created := parseJSON(t, rec)
		investmentID = created["id"].(string)
		if created["tokens"].(float64) != 40 {
			t.Errorf("expected 40 tokens, got %v", created["tokens"])
		}
		if created["status"] != "pending" {
			t.Errorf("expected pending status, got %v", created["status"])
		}

		rec = app.request("GET", "/api/v1/properties/"+propertyID, "", userToken)
		property := parseJSON(t, rec)
		if property["available_tokens"].(float64) != 960 {
			t.Errorf("expected 960 available tokens, got %v", property["available_tokens"])
		}
	})

	t.Run("below_minimum_rejected", func(t *testing.T) {
		body := fmt.Sprintf(`{"property_id":%q,"amount_cents":9999,"payment_method":"card"}`, propertyID)
		rec := app.request("POST", "/api/v1/investments", body, userToken)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("unknown_payment_method_rejected", func(t *testing.T) {
		body := fmt.Sprintf(`{"property_id":%q,"amount_cents":100000,"payment_method":"cheque"}`, propertyID)
		rec := app.request("POST", "/api/v1/investments", body, userToken)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("owner_reads_own_investment", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/investments/"+investmentID, "", userToken)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
		}
		investment := parseJSON(t, rec)
		tx, ok := investment["transaction"].(map[string]interface{})
		if !ok {
			t.Fatal("expected the correlated transaction in the response")
		}
		if tx["fee_cents"].(float64) != 2000 {
			t.Errorf("expected fee 2000, got %v", tx["fee_cents"])
		}
	})

	t.Run("other_users_cannot_see_it", func(t *testing.T) {
		otherToken, _ := app.registerUser(t, "other@example.com", "password123")
		rec := app.request("GET", "/api/v1/investments/"+investmentID, "", otherToken)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for another user, got %d", rec.Code)
		}
	})

	t.Run("batch_update_is_admin_only", func(t *testing.T) {
		body := fmt.Sprintf(`{"investment_ids":[%q],"updates":{"status":"processing"}}`, investmentID)
		rec := app.request("PUT", "/api/v1/investments/batch", body, userToken)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
		}
	})

	t.Run("admin_batch_confirms_and_mirrors_ledger", func(t *testing.T) {
		for _, status := range []string{"processing", "confirmed"} {
			body := fmt.Sprintf(`{"investment_ids":[%q],"updates":{"status":%q}}`, investmentID, status)
			rec := app.request("PUT", "/api/v1/investments/batch", body, adminToken)
			if rec.Code != http.StatusOK {
				t.Fatalf("batch %s failed: %d %s", status, rec.Code, rec.Body.String())
			}
			result := parseJSON(t, rec)
			if len(result["updated"].([]interface{})) != 1 {
				t.Fatalf("batch %s: expected 1 updated, got %v", status, result["updated"])
			}
		}

		var tx models.Transaction
		if err := app.DB.First(&tx, "related_id = ?", investmentID).Error; err != nil {
			t.Fatalf("ledger row missing: %v", err)
		}
		if tx.Status != models.TransactionCompleted {
			t.Errorf("expected completed transaction, got %s", tx.Status)
		}
	})

	t.Run("batch_skips_invalid_transitions", func(t *testing.T) {
		// confirmed -> processing is not a legal move.
		body := fmt.Sprintf(`{"investment_ids":[%q],"updates":{"status":"processing"}}`, investmentID)
		rec := app.request("PUT", "/api/v1/investments/batch", body, adminToken)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["skipped"].(float64) != 1 {
			t.Errorf("expected 1 skipped, got %v", result["skipped"])
		}
	})

	t.Run("refund_returns_tokens", func(t *testing.T) {
		body := fmt.Sprintf(`{"investment_ids":[%q],"updates":{"status":"refunded"}}`, investmentID)
		rec := app.request("PUT", "/api/v1/investments/batch", body, adminToken)
		if rec.Code != http.StatusOK {
			t.Fatalf("refund failed: %d %s", rec.Code, rec.Body.String())
		}

		rec = app.request("GET", "/api/v1/properties/"+propertyID, "", userToken)
		property := parseJSON(t, rec)
		if property["available_tokens"].(float64) != 1000 {
			t.Errorf("expected full inventory after refund, got %v", property["available_tokens"])
		}
	})

	t.Run("list_scopes_to_caller", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/investments", "", userToken)
		if rec.Code != http.StatusOK {
			t.Fatalf("list failed: %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["total_items"].(float64) != 1 {
			t.Errorf("expected 1 investment for the caller, got %v", result["total_items"])
		}
	})
}

func TestPropertyVisibility(t *testing.T) {
	app := setupApp(t)
	adminToken, _ := app.registerAdmin(t, "admin@example.com", "password123")
	userToken, _ := app.registerUser(t, "viewer@example.com", "password123")

	// Draft property: admins see it, investors do not.
	rec := app.request("POST", "/api/v1/properties",
		`{"title":"Hidden","address":"X","total_tokens":100,"token_price_cents":1000,"minimum_investment_cents":1000}`,
		adminToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("creation failed: %d %s", rec.Code, rec.Body.String())
	}
	draftID := parseJSON(t, rec)["id"].(string)

	rec = app.request("GET", "/api/v1/properties/"+draftID, "", userToken)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for investor on draft property, got %d", rec.Code)
	}

	rec = app.request("GET", "/api/v1/properties/"+draftID, "", adminToken)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for admin on draft property, got %d", rec.Code)
	}

	rec = app.request("GET", "/api/v1/properties", "", userToken)
	result := parseJSON(t, rec)
	if result["total_items"].(float64) != 0 {
		t.Errorf("investor list should exclude drafts, got %v", result["total_items"])
	}
}

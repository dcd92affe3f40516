package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"propshare/internal/events"
	"propshare/internal/handlers"
	"propshare/internal/logger"
	"propshare/internal/middleware"
	"propshare/internal/models"
	"propshare/internal/ratelimit"
	"propshare/internal/services"
	"propshare/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Hub    *events.Hub
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Property{},
		&models.Investment{},
		&models.Transaction{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)
	hub := events.NewHub(logger.Get())
	limiter := ratelimit.NewWindowStore()

	// Services
	userService := services.NewUserService(db, hub)
	propertyService := services.NewPropertyService(db, hub)
	investmentService := services.NewInvestmentService(db, hub, 0.02)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	propertyHandler := handlers.NewPropertyHandler(propertyService)
	investmentHandler := handlers.NewInvestmentHandler(investmentService)
	wsHandler := handlers.NewWSHandler(hub)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)

	v1.GET("/ws", wsHandler.Serve)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())
	protected.Use(middleware.RateLimit(limiter, 100, time.Minute))

	protected.GET("/profile", authHandler.GetProfile)

	properties := protected.Group("/properties")
	properties.GET("", propertyHandler.ListProperties)
	properties.GET("/:id", propertyHandler.GetProperty)

	investments := protected.Group("/investments")
	investments.POST("", investmentHandler.CreateInvestment)
	investments.GET("", investmentHandler.ListInvestments)
	investments.GET("/:id", investmentHandler.GetInvestment)

	admin := protected.Group("/")
	admin.Use(middleware.RequireAdmin())
	admin.PUT("/users/:id/kyc", authHandler.UpdateKYC)
	admin.POST("/properties", propertyHandler.CreateProperty)
	admin.PUT("/properties/:id", propertyHandler.UpdateProperty)
	admin.PUT("/properties/:id/status", propertyHandler.UpdatePropertyStatus)
	admin.PUT("/properties/:id/price", propertyHandler.UpdateTokenPrice)
	admin.PUT("/investments/batch", investmentHandler.BatchUpdateInvestments)

	return &testApp{DB: db, Router: router, Hub: hub}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the access token and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (token, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), user["id"].(string)
}

// registerAdmin registers a user and promotes it to admin directly in the
// database, then logs in again so the token carries the admin role.
func (app *testApp) registerAdmin(t *testing.T, email, password string) (token, userID string) {
	t.Helper()
	_, userID = app.registerUser(t, email, password)
	if err := app.DB.Model(&models.User{}).Where("id = ?", userID).
		Update("role", models.RoleAdmin).Error; err != nil {
		t.Fatalf("failed to promote admin: %v", err)
	}

	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["access_token"].(string), userID
}

// approveKYC moves a user to approved through the admin endpoint.
func (app *testApp) approveKYC(t *testing.T, adminToken, userID string) {
	t.Helper()
	rec := app.request("PUT", "/api/v1/users/"+userID+"/kyc", `{"status":"approved"}`, adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("KYC approval failed: %d %s", rec.Code, rec.Body.String())
	}
}

// createActiveProperty lists a property and walks it to active.
func (app *testApp) createActiveProperty(t *testing.T, adminToken string, totalTokens, priceCents, minimumCents int64) string {
	t.Helper()
	body := fmt.Sprintf(`{"title":"Test Property","address":"1 Test St","total_tokens":%d,"token_price_cents":%d,"minimum_investment_cents":%d}`,
		totalTokens, priceCents, minimumCents)
	rec := app.request("POST", "/api/v1/properties", body, adminToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("property creation failed: %d %s", rec.Code, rec.Body.String())
	}
	propertyID := parseJSON(t, rec)["id"].(string)

	for _, status := range []string{"pending_approval", "active"} {
		rec := app.request("PUT", "/api/v1/properties/"+propertyID+"/status",
			fmt.Sprintf(`{"status":%q}`, status), adminToken)
		if rec.Code != http.StatusOK {
			t.Fatalf("transition to %s failed: %d %s", status, rec.Code, rec.Body.String())
		}
	}
	return propertyID
}

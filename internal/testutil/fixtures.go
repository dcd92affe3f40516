package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"propshare/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates an approved investor with a hashed password and
// unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithKYC(t, db, models.KYCApproved)
}

// CreateTestUserWithKYC creates a user with the given KYC status.
func CreateTestUserWithKYC(t *testing.T, db *gorm.DB, kyc models.KYCStatus) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:     fmt.Sprintf("user%d@test.com", nextID()),
		Password:  string(hash),
		Role:      models.RoleInvestor,
		KYCStatus: kyc,
		IsActive:  true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAdmin creates an admin user.
func CreateTestAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := CreateTestUserWithKYC(t, db, models.KYCApproved)
	if err := db.Model(user).Update("role", models.RoleAdmin).Error; err != nil {
		t.Fatalf("failed to promote test admin: %v", err)
	}
	user.Role = models.RoleAdmin
	return user
}

// CreateTestProperty creates an active property with the given token counts.
func CreateTestProperty(t *testing.T, db *gorm.DB, ownerID string, totalTokens, tokenPriceCents, minimumCents int64) *models.Property {
	t.Helper()

	property := &models.Property{
		OwnerID:                ownerID,
		Title:                  fmt.Sprintf("Property %d", nextID()),
		Address:                "1 Test Street",
		TotalTokens:            totalTokens,
		AvailableTokens:        totalTokens,
		TokenPriceCents:        tokenPriceCents,
		MinimumInvestmentCents: minimumCents,
		Status:                 models.PropertyActive,
	}
	if err := db.Create(property).Error; err != nil {
		t.Fatalf("failed to create test property: %v", err)
	}
	return property
}

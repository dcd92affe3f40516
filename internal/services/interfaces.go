package services

import (
	apperrors "propshare/internal/errors"
	"propshare/internal/models"
	"propshare/internal/pagination"
)

// storeError wraps a record-store I/O failure as a transient
// service-unavailable error. A database outage is retryable for the
// caller and must not surface as an internal fault.
func storeError(err error) error {
	return apperrors.Wrap(apperrors.ErrUnavailable, err)
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	SetKYCStatus(userID string, status models.KYCStatus) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
	RecordLogin(userID string) error
}

// PropertyServicer defines the contract for property listings.
type PropertyServicer interface {
	CreateProperty(ownerID, title, address string, totalTokens, tokenPriceCents, minimumInvestmentCents int64) (*models.Property, error)
	GetPropertyByID(id string) (*models.Property, error)
	ListProperties(isAdmin bool, status *models.PropertyStatus, page pagination.PageRequest) (*pagination.PageResponse[models.Property], error)
	UpdateProperty(id, title, address string, minimumInvestmentCents *int64) (*models.Property, error)
	UpdatePropertyStatus(id string, target models.PropertyStatus) (*models.Property, error)
	UpdateTokenPrice(id string, tokenPriceCents int64) (*models.Property, error)
}

// InvestmentFilter holds optional filter parameters for listing investments.
type InvestmentFilter struct {
	UserID     *string
	PropertyID *string
	Status     *models.InvestmentStatus
}

// BatchUpdateResult reports the outcome of a batch status update. Each id
// is processed independently; missing ids and rejected transitions are
// counted as skips rather than aborting the batch.
type BatchUpdateResult struct {
	Updated []models.Investment `json:"updated"`
	Skipped int                 `json:"skipped"`
}

// InvestmentServicer defines the contract for the allocation pipeline.
type InvestmentServicer interface {
	CreateInvestment(userID, propertyID string, amountCents int64, paymentMethod models.PaymentMethod, tokensOverride *int64) (*models.Investment, error)
	BatchUpdateStatus(ids []string, target models.InvestmentStatus) (*BatchUpdateResult, error)
	ListInvestments(callerID string, isAdmin bool, filter InvestmentFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Investment], error)
	GetInvestmentByID(callerID string, isAdmin bool, id string) (*models.Investment, error)
}

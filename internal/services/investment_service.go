package services

import (
	"errors"
	"math"

	"gorm.io/gorm"

	apperrors "propshare/internal/errors"
	"propshare/internal/events"
	"propshare/internal/logger"
	"propshare/internal/models"
	"propshare/internal/pagination"
)

// reserveAttempts bounds the compare-and-swap retry loop. Exhausting it
// returns a retryable conflict instead of blocking the caller.
const reserveAttempts = 3

// investmentService implements the allocation pipeline: validation,
// atomic token reservation, ledger writes, and change notification.
type investmentService struct {
	db        *gorm.DB
	publisher events.Publisher
	feeRate   float64
}

// NewInvestmentService creates a new InvestmentServicer. feeRate is the
// platform fee as a fraction of the invested amount.
func NewInvestmentService(db *gorm.DB, publisher events.Publisher, feeRate float64) InvestmentServicer {
	return &investmentService{db: db, publisher: publisher, feeRate: feeRate}
}

// CreateInvestment validates the request, reserves tokens atomically,
// and records the investment with its ledger transaction as one unit.
//
// Validation order, each failure short-circuiting with a distinct code:
// KYC approved, property exists, property active, amount at or above the
// minimum, token count sane. A tokens override may round the computed
// count down but can never claim more tokens than the amount pays for.
//
// The reservation is a compare-and-swap on available_tokens with a
// bounded retry; two requests whose combined demand exceeds the available
// inventory can never both succeed. If the investment/transaction unit
// fails after a successful reservation, the tokens are returned with a
// compensating increment so no partial state is ever observable.
func (s *investmentService) CreateInvestment(userID, propertyID string, amountCents int64, paymentMethod models.PaymentMethod, tokensOverride *int64) (*models.Investment, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, storeError(err)
	}
	if user.KYCStatus != models.KYCApproved {
		return nil, apperrors.ErrKYCNotApproved
	}

	property, err := s.getProperty(propertyID)
	if err != nil {
		return nil, err
	}
	if property.Status != models.PropertyActive {
		return nil, apperrors.ErrPropertyNotActive
	}

	if amountCents < property.MinimumInvestmentCents {
		return nil, apperrors.ErrBelowMinimumInvestment
	}

	tokens := amountCents / property.TokenPriceCents
	if tokensOverride != nil {
		if *tokensOverride <= 0 || *tokensOverride > tokens {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
				"tokens override must be positive and covered by the amount")
		}
		tokens = *tokensOverride
	}
	if tokens == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
			"amount does not cover a single token")
	}

	newAvailable, err := s.reserveTokens(propertyID, tokens)
	if err != nil {
		return nil, err
	}

	feeCents := int64(math.Round(float64(amountCents) * s.feeRate))
	investment := &models.Investment{
		UserID:        userID,
		PropertyID:    propertyID,
		AmountCents:   amountCents,
		Tokens:        tokens,
		Status:        models.InvestmentPending,
		PaymentMethod: paymentMethod,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if txErr := tx.Create(investment).Error; txErr != nil {
			return storeError(txErr)
		}

		transaction := &models.Transaction{
			UserID:         userID,
			Type:           models.TransactionTypeInvestment,
			AmountCents:    amountCents,
			FeeCents:       feeCents,
			NetAmountCents: amountCents - feeCents,
			RelatedID:      investment.ID,
			Status:         models.TransactionPending,
		}
		if txErr := tx.Create(transaction).Error; txErr != nil {
			return storeError(txErr)
		}

		investment.Transaction = transaction
		return nil
	})
	if err != nil {
		s.releaseTokens(propertyID, tokens)
		return nil, err
	}

	s.publisher.Publish(events.NewEvent(events.TypeInvestmentUpdate, events.InvestmentUpdate{
		InvestmentID: investment.ID,
		PropertyID:   propertyID,
		UserID:       userID,
		Tokens:       tokens,
		Status:       string(investment.Status),
	}))
	s.publisher.Publish(events.NewEvent(events.TypePropertyUpdate, events.PropertyUpdate{
		PropertyID:      property.ID,
		AvailableTokens: newAvailable,
		TotalTokens:     property.TotalTokens,
		Status:          string(property.Status),
	}))

	return investment, nil
}

// reserveTokens decrements available_tokens by a compare-and-swap: the
// write only lands if the stored value still matches the value read.
// A plain read-then-write would let two concurrent requests both succeed
// past the remaining inventory. Returns the post-reservation count.
func (s *investmentService) reserveTokens(propertyID string, tokens int64) (int64, error) {
	for attempt := 0; attempt < reserveAttempts; attempt++ {
		property, err := s.getProperty(propertyID)
		if err != nil {
			return 0, err
		}
		if tokens > property.AvailableTokens {
			return 0, apperrors.ErrInsufficientTokens
		}

		res := s.db.Model(&models.Property{}).
			Where("id = ? AND available_tokens = ?", propertyID, property.AvailableTokens).
			Update("available_tokens", property.AvailableTokens-tokens)
		if res.Error != nil {
			return 0, storeError(res.Error)
		}
		if res.RowsAffected == 1 {
			return property.AvailableTokens - tokens, nil
		}
		// Lost the race; re-read and try again.
	}
	return 0, apperrors.WithMessage(apperrors.ErrInsufficientTokens,
		"Reservation contention, please retry")
}

// releaseTokens is the compensating increment for a reservation whose
// follow-up writes failed, and for status changes that hand tokens back.
func (s *investmentService) releaseTokens(propertyID string, tokens int64) {
	err := s.db.Model(&models.Property{}).
		Where("id = ?", propertyID).
		Update("available_tokens", gorm.Expr("available_tokens + ?", tokens)).Error
	if err != nil {
		// The original failure is what the caller needs to see; the leak
		// is recoverable from the ledger.
		logger.Get().Errorw("token release failed",
			"property_id", propertyID, "tokens", tokens, "error", err.Error())
	}
}

// BatchUpdateStatus applies a target status to each investment
// independently, mirroring the change onto the correlated transaction.
// Missing ids and rejected transitions are skipped, never fatal.
func (s *investmentService) BatchUpdateStatus(ids []string, target models.InvestmentStatus) (*BatchUpdateResult, error) {
	result := &BatchUpdateResult{Updated: []models.Investment{}}

	for _, id := range ids {
		var investment models.Investment
		if err := s.db.First(&investment, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result.Skipped++
				continue
			}
			return nil, storeError(err)
		}

		if !investment.Status.CanTransitionTo(target) {
			result.Skipped++
			continue
		}

		err := s.db.Transaction(func(tx *gorm.DB) error {
			if txErr := tx.Model(&investment).Update("status", target).Error; txErr != nil {
				return storeError(txErr)
			}
			if txErr := tx.Model(&models.Transaction{}).
				Where("related_id = ?", investment.ID).
				Update("status", models.TransactionStatusFor(target)).Error; txErr != nil {
				return storeError(txErr)
			}
			if target.ReleasesTokens() {
				if txErr := tx.Model(&models.Property{}).
					Where("id = ?", investment.PropertyID).
					Update("available_tokens", gorm.Expr("available_tokens + ?", investment.Tokens)).Error; txErr != nil {
					return storeError(txErr)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		investment.Status = target
		result.Updated = append(result.Updated, investment)

		s.publisher.Publish(events.NewEvent(events.TypeInvestmentUpdate, events.InvestmentUpdate{
			InvestmentID: investment.ID,
			PropertyID:   investment.PropertyID,
			UserID:       investment.UserID,
			Tokens:       investment.Tokens,
			Status:       string(target),
		}))
		if target.ReleasesTokens() {
			if property, err := s.getProperty(investment.PropertyID); err == nil {
				s.publisher.Publish(events.NewEvent(events.TypePropertyUpdate, events.PropertyUpdate{
					PropertyID:      property.ID,
					AvailableTokens: property.AvailableTokens,
					TotalTokens:     property.TotalTokens,
					Status:          string(property.Status),
				}))
			}
		}
	}

	return result, nil
}

// ListInvestments returns a filtered, paginated list. Non-admin callers
// only ever see their own records regardless of the filter.
func (s *investmentService) ListInvestments(callerID string, isAdmin bool, filter InvestmentFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Investment], error) {
	page.Defaults()

	query := s.db.Model(&models.Investment{})
	if !isAdmin {
		query = query.Where("user_id = ?", callerID)
	} else if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.PropertyID != nil {
		query = query.Where("property_id = ?", *filter.PropertyID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		return nil, storeError(err)
	}

	var investments []models.Investment
	if err := query.Preload("Transaction").Order("created_at DESC").
		Scopes(pagination.Paginate(page)).Find(&investments).Error; err != nil {
		return nil, storeError(err)
	}

	result := pagination.NewPageResponse(investments, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetInvestmentByID returns an investment visible to the caller.
func (s *investmentService) GetInvestmentByID(callerID string, isAdmin bool, id string) (*models.Investment, error) {
	var investment models.Investment
	if err := s.db.Preload("Transaction").First(&investment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvestmentNotFound
		}
		return nil, storeError(err)
	}

	if !isAdmin && investment.UserID != callerID {
		return nil, apperrors.ErrInvestmentNotFound
	}
	return &investment, nil
}

func (s *investmentService) getProperty(id string) (*models.Property, error) {
	var property models.Property
	if err := s.db.First(&property, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPropertyNotFound
		}
		return nil, storeError(err)
	}
	return &property, nil
}

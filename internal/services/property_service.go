package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "propshare/internal/errors"
	"propshare/internal/events"
	"propshare/internal/models"
	"propshare/internal/pagination"
)

// propertyService handles property listing business logic.
type propertyService struct {
	db        *gorm.DB
	publisher events.Publisher
}

// NewPropertyService creates a new PropertyServicer.
func NewPropertyService(db *gorm.DB, publisher events.Publisher) PropertyServicer {
	return &propertyService{db: db, publisher: publisher}
}

// CreateProperty creates a draft listing. AvailableTokens starts equal to
// TotalTokens and afterwards changes only through the allocation pipeline.
func (s *propertyService) CreateProperty(ownerID, title, address string, totalTokens, tokenPriceCents, minimumInvestmentCents int64) (*models.Property, error) {
	if totalTokens <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "total_tokens must be positive")
	}
	if tokenPriceCents <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "token_price_cents must be positive")
	}
	if minimumInvestmentCents <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "minimum_investment_cents must be positive")
	}

	property := &models.Property{
		OwnerID:                ownerID,
		Title:                  title,
		Address:                address,
		TotalTokens:            totalTokens,
		AvailableTokens:        totalTokens,
		TokenPriceCents:        tokenPriceCents,
		MinimumInvestmentCents: minimumInvestmentCents,
		Status:                 models.PropertyDraft,
	}

	if err := s.db.Create(property).Error; err != nil {
		return nil, storeError(err)
	}
	return property, nil
}

// GetPropertyByID retrieves a property by ID.
func (s *propertyService) GetPropertyByID(id string) (*models.Property, error) {
	var property models.Property
	if err := s.db.First(&property, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPropertyNotFound
		}
		return nil, storeError(err)
	}
	return &property, nil
}

// ListProperties returns a paginated list. Non-admin callers only see
// active listings; admins may filter by any status.
func (s *propertyService) ListProperties(isAdmin bool, status *models.PropertyStatus, page pagination.PageRequest) (*pagination.PageResponse[models.Property], error) {
	page.Defaults()

	query := s.db.Model(&models.Property{})
	if !isAdmin {
		query = query.Where("status = ?", models.PropertyActive)
	} else if status != nil {
		query = query.Where("status = ?", *status)
	}

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		return nil, storeError(err)
	}

	var properties []models.Property
	if err := query.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&properties).Error; err != nil {
		return nil, storeError(err)
	}

	result := pagination.NewPageResponse(properties, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UpdateProperty changes listing metadata. Token counts are never touched
// here; AvailableTokens belongs to the allocation pipeline and
// TotalTokens is immutable after creation.
func (s *propertyService) UpdateProperty(id, title, address string, minimumInvestmentCents *int64) (*models.Property, error) {
	property, err := s.GetPropertyByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if title != "" {
		updates["title"] = title
	}
	if address != "" {
		updates["address"] = address
	}
	if minimumInvestmentCents != nil {
		if *minimumInvestmentCents <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "minimum_investment_cents must be positive")
		}
		updates["minimum_investment_cents"] = *minimumInvestmentCents
	}
	if len(updates) == 0 {
		return property, nil
	}

	if err := s.db.Model(property).Updates(updates).Error; err != nil {
		return nil, storeError(err)
	}
	return property, nil
}

// UpdatePropertyStatus applies an administrative status transition and
// notifies subscribed clients.
func (s *propertyService) UpdatePropertyStatus(id string, target models.PropertyStatus) (*models.Property, error) {
	property, err := s.GetPropertyByID(id)
	if err != nil {
		return nil, err
	}

	if !property.Status.CanTransitionTo(target) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidPropertyTransition,
			"cannot move property from "+string(property.Status)+" to "+string(target))
	}

	if err := s.db.Model(property).Update("status", target).Error; err != nil {
		return nil, storeError(err)
	}
	property.Status = target

	s.publisher.Publish(events.NewEvent(events.TypePropertyUpdate, events.PropertyUpdate{
		PropertyID:      property.ID,
		AvailableTokens: property.AvailableTokens,
		TotalTokens:     property.TotalTokens,
		Status:          string(property.Status),
	}))

	return property, nil
}

// UpdateTokenPrice reprices a listing and pushes a price_update so
// clients patch their cached views without a refetch.
func (s *propertyService) UpdateTokenPrice(id string, tokenPriceCents int64) (*models.Property, error) {
	if tokenPriceCents <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "token_price_cents must be positive")
	}

	property, err := s.GetPropertyByID(id)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(property).Update("token_price_cents", tokenPriceCents).Error; err != nil {
		return nil, storeError(err)
	}
	property.TokenPriceCents = tokenPriceCents

	s.publisher.Publish(events.NewEvent(events.TypePriceUpdate, events.PriceUpdate{
		PropertyID:      property.ID,
		TokenPriceCents: tokenPriceCents,
	}))

	return property, nil
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "propshare/internal/errors"
	"propshare/internal/models"
	"propshare/internal/pagination"
	"propshare/internal/services"
)

// PropertyHandler handles property listing requests.
type PropertyHandler struct {
	propertyService services.PropertyServicer
}

// NewPropertyHandler creates a new PropertyHandler.
func NewPropertyHandler(propertyService services.PropertyServicer) *PropertyHandler {
	return &PropertyHandler{propertyService: propertyService}
}

// CreatePropertyRequest represents the request payload for listing a property.
type CreatePropertyRequest struct {
	Title                  string `json:"title" binding:"required,min=1,max=200"`
	Address                string `json:"address" binding:"max=500"`
	TotalTokens            int64  `json:"total_tokens" binding:"required,gt=0"`
	TokenPriceCents        int64  `json:"token_price_cents" binding:"required,gt=0"`
	MinimumInvestmentCents int64  `json:"minimum_investment_cents" binding:"required,gt=0"`
}

// UpdatePropertyRequest represents the metadata update payload.
type UpdatePropertyRequest struct {
	Title                  string `json:"title" binding:"omitempty,min=1,max=200"`
	Address                string `json:"address" binding:"omitempty,max=500"`
	MinimumInvestmentCents *int64 `json:"minimum_investment_cents" binding:"omitempty,gt=0"`
}

// UpdatePropertyStatusRequest represents the status transition payload.
type UpdatePropertyStatusRequest struct {
	Status models.PropertyStatus `json:"status" binding:"required,property_status"`
}

// UpdateTokenPriceRequest represents the repricing payload.
type UpdateTokenPriceRequest struct {
	TokenPriceCents int64 `json:"token_price_cents" binding:"required,gt=0"`
}

// listPropertiesQuery holds the list filters.
type listPropertiesQuery struct {
	pagination.PageRequest
	Status *models.PropertyStatus `form:"status" binding:"omitempty,property_status"`
}

// CreateProperty lists a new property (admin only)
// @Summary     Create property
// @Tags        properties
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreatePropertyRequest true "Property details"
// @Success     201 {object} models.Property
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /properties [post]
func (h *PropertyHandler) CreateProperty(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	property, err := h.propertyService.CreateProperty(
		userID, req.Title, req.Address,
		req.TotalTokens, req.TokenPriceCents, req.MinimumInvestmentCents,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, property)
}

// ListProperties returns listings visible to the caller
// @Summary     List properties
// @Tags        properties
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page"
// @Param       page_size query int false "Page size"
// @Param       status query string false "Status filter (admin only)"
// @Success     200 {object} pagination.PageResponse[models.Property]
// @Router      /properties [get]
func (h *PropertyHandler) ListProperties(c *gin.Context) {
	var query listPropertiesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.propertyService.ListProperties(isAdmin(c), query.Status, query.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetProperty returns one property
// @Summary     Get property
// @Tags        properties
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Property ID"
// @Success     200 {object} models.Property
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /properties/{id} [get]
func (h *PropertyHandler) GetProperty(c *gin.Context) {
	property, err := h.propertyService.GetPropertyByID(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !isAdmin(c) && property.Status != models.PropertyActive {
		respondWithError(c, apperrors.ErrPropertyNotFound)
		return
	}

	c.JSON(http.StatusOK, property)
}

// UpdateProperty updates listing metadata (admin only)
// @Summary     Update property
// @Tags        properties
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Property ID"
// @Param       request body UpdatePropertyRequest true "Metadata"
// @Success     200 {object} models.Property
// @Router      /properties/{id} [put]
func (h *PropertyHandler) UpdateProperty(c *gin.Context) {
	var req UpdatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	property, err := h.propertyService.UpdateProperty(c.Param("id"), req.Title, req.Address, req.MinimumInvestmentCents)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, property)
}

// UpdatePropertyStatus applies a status transition (admin only)
// @Summary     Update property status
// @Tags        properties
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Property ID"
// @Param       request body UpdatePropertyStatusRequest true "Target status"
// @Success     200 {object} models.Property
// @Failure     409 {object} ErrorResponse "Invalid transition"
// @Router      /properties/{id}/status [put]
func (h *PropertyHandler) UpdatePropertyStatus(c *gin.Context) {
	var req UpdatePropertyStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	property, err := h.propertyService.UpdatePropertyStatus(c.Param("id"), req.Status)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, property)
}

// UpdateTokenPrice reprices a listing (admin only)
// @Summary     Update token price
// @Tags        properties
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Property ID"
// @Param       request body UpdateTokenPriceRequest true "New price"
// @Success     200 {object} models.Property
// @Router      /properties/{id}/price [put]
func (h *PropertyHandler) UpdateTokenPrice(c *gin.Context) {
	var req UpdateTokenPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	property, err := h.propertyService.UpdateTokenPrice(c.Param("id"), req.TokenPriceCents)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, property)
}

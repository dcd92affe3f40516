package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "propshare/internal/errors"
	"propshare/internal/models"
	"propshare/internal/pagination"
	"propshare/internal/services"
)

// InvestmentHandler handles allocation pipeline requests.
type InvestmentHandler struct {
	investmentService services.InvestmentServicer
}

// NewInvestmentHandler creates a new InvestmentHandler.
func NewInvestmentHandler(investmentService services.InvestmentServicer) *InvestmentHandler {
	return &InvestmentHandler{investmentService: investmentService}
}

// CreateInvestmentRequest represents the request payload for investing in
// a property. Tokens optionally overrides the computed count but can
// never exceed what the amount pays for.
type CreateInvestmentRequest struct {
	PropertyID    string               `json:"property_id" binding:"required,uuid"`
	AmountCents   int64                `json:"amount_cents" binding:"required,gt=0"`
	PaymentMethod models.PaymentMethod `json:"payment_method" binding:"required,payment_method"`
	Tokens        *int64               `json:"tokens" binding:"omitempty,gt=0"`
}

// BatchUpdateInvestmentsRequest represents the admin batch status update payload.
type BatchUpdateInvestmentsRequest struct {
	InvestmentIDs []string               `json:"investment_ids" binding:"required,min=1,dive,uuid"`
	Updates       BatchInvestmentUpdates `json:"updates" binding:"required"`
}

// BatchInvestmentUpdates holds the fields a batch update may change.
type BatchInvestmentUpdates struct {
	Status models.InvestmentStatus `json:"status" binding:"required,investment_status"`
}

// listInvestmentsQuery holds the list filters.
type listInvestmentsQuery struct {
	pagination.PageRequest
	UserID     *string                  `form:"user_id" binding:"omitempty,uuid"`
	PropertyID *string                  `form:"property_id" binding:"omitempty,uuid"`
	Status     *models.InvestmentStatus `form:"status" binding:"omitempty,investment_status"`
}

// CreateInvestment reserves tokens and records the investment
// @Summary     Create investment
// @Description Validates the request, atomically reserves property tokens, and records the investment with its ledger transaction
// @Tags        investments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateInvestmentRequest true "Investment details"
// @Success     201 {object} models.Investment
// @Failure     400 {object} ErrorResponse "Invalid input or below minimum"
// @Failure     403 {object} ErrorResponse "KYC not approved"
// @Failure     404 {object} ErrorResponse "Property not found"
// @Failure     409 {object} ErrorResponse "Property inactive or insufficient tokens"
// @Failure     429 {object} ErrorResponse "Rate limited"
// @Router      /investments [post]
func (h *InvestmentHandler) CreateInvestment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	investment, err := h.investmentService.CreateInvestment(
		userID, req.PropertyID, req.AmountCents, req.PaymentMethod, req.Tokens,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, investment)
}

// BatchUpdateInvestments applies a status to a set of investments (admin only)
// @Summary     Batch update investments
// @Description Applies the target status independently per id; missing ids and invalid transitions are skipped
// @Tags        investments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body BatchUpdateInvestmentsRequest true "Ids and target status"
// @Success     200 {object} services.BatchUpdateResult
// @Failure     403 {object} ErrorResponse "Admin access required"
// @Router      /investments/batch [put]
func (h *InvestmentHandler) BatchUpdateInvestments(c *gin.Context) {
	var req BatchUpdateInvestmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.investmentService.BatchUpdateStatus(req.InvestmentIDs, req.Updates.Status)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListInvestments returns investments visible to the caller
// @Summary     List investments
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page"
// @Param       page_size query int false "Page size"
// @Param       user_id query string false "User filter (admin only)"
// @Param       property_id query string false "Property filter"
// @Param       status query string false "Status filter"
// @Success     200 {object} pagination.PageResponse[models.Investment]
// @Router      /investments [get]
func (h *InvestmentHandler) ListInvestments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query listInvestmentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.InvestmentFilter{
		UserID:     query.UserID,
		PropertyID: query.PropertyID,
		Status:     query.Status,
	}

	result, err := h.investmentService.ListInvestments(userID, isAdmin(c), filter, query.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetInvestment returns one investment
// @Summary     Get investment
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Investment ID"
// @Success     200 {object} models.Investment
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /investments/{id} [get]
func (h *InvestmentHandler) GetInvestment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	investment, err := h.investmentService.GetInvestmentByID(userID, isAdmin(c), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, investment)
}

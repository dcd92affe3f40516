// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("payment_method", validatePaymentMethod)
		_ = v.RegisterValidation("investment_status", validateInvestmentStatus)
		_ = v.RegisterValidation("property_status", validatePropertyStatus)
		_ = v.RegisterValidation("kyc_status", validateKYCStatus)
	}
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "card", "bank_transfer", "crypto", "wallet":
		return true
	}
	return false
}

func validateInvestmentStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "pending", "processing", "confirmed", "failed", "cancelled", "refunded":
		return true
	}
	return false
}

func validatePropertyStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "draft", "pending_approval", "active", "funded", "sold", "inactive":
		return true
	}
	return false
}

func validateKYCStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "none", "pending", "approved", "rejected":
		return true
	}
	return false
}

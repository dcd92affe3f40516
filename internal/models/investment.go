package models

// InvestmentStatus represents the lifecycle state of an investment.
// Transitions only move forward or to a terminal failure/cancellation
// state, never backward.
type InvestmentStatus string

const (
	InvestmentPending    InvestmentStatus = "pending"
	InvestmentProcessing InvestmentStatus = "processing"
	InvestmentConfirmed  InvestmentStatus = "confirmed"
	InvestmentFailed     InvestmentStatus = "failed"
	InvestmentCancelled  InvestmentStatus = "cancelled"
	InvestmentRefunded   InvestmentStatus = "refunded"
)

// PaymentMethod identifies how an investment is settled. Settlement
// itself happens outside this system.
type PaymentMethod string

const (
	PaymentCard         PaymentMethod = "card"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCrypto       PaymentMethod = "crypto"
	PaymentWallet       PaymentMethod = "wallet"
)

// Investment represents a user's token purchase in a property.
type Investment struct {
	Base
	UserID        string           `gorm:"type:uuid;not null;index" json:"user_id"`
	PropertyID    string           `gorm:"type:uuid;not null;index" json:"property_id"`
	AmountCents   int64            `gorm:"type:bigint;not null" json:"amount_cents"`
	Tokens        int64            `gorm:"type:bigint;not null" json:"tokens"`
	Status        InvestmentStatus `gorm:"default:pending" json:"status"`
	PaymentMethod PaymentMethod    `gorm:"not null" json:"payment_method"`

	// Relationships
	Property    Property     `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	Transaction *Transaction `gorm:"foreignKey:RelatedID" json:"transaction,omitempty"`
}

// investmentTransitions is the permitted status machine:
// pending -> processing -> {confirmed | failed};
// pending/processing -> cancelled; confirmed -> refunded.
var investmentTransitions = map[InvestmentStatus][]InvestmentStatus{
	InvestmentPending:    {InvestmentProcessing, InvestmentCancelled},
	InvestmentProcessing: {InvestmentConfirmed, InvestmentFailed, InvestmentCancelled},
	InvestmentConfirmed:  {InvestmentRefunded},
}

// CanTransitionTo reports whether the investment status may move to target.
func (s InvestmentStatus) CanTransitionTo(target InvestmentStatus) bool {
	for _, allowed := range investmentTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ReleasesTokens reports whether entering this status returns the
// investment's token reservation to the property. Only pending,
// processing, and confirmed investments hold tokens.
func (s InvestmentStatus) ReleasesTokens() bool {
	return s == InvestmentFailed || s == InvestmentCancelled || s == InvestmentRefunded
}

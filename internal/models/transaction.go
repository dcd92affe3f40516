package models

// TransactionType represents the type of ledger transaction
type TransactionType string

const (
	TransactionTypeInvestment TransactionType = "investment"
	TransactionTypeRefund     TransactionType = "refund"
)

// TransactionStatus mirrors the correlated investment's status through
// a fixed mapping (confirmed->completed, failed->failed,
// cancelled->cancelled, everything else->pending).
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionCancelled TransactionStatus = "cancelled"
)

// Transaction represents a ledger entry derived 1:1 from an investment.
type Transaction struct {
	Base
	UserID         string            `gorm:"type:uuid;not null;index" json:"user_id"`
	Type           TransactionType   `gorm:"not null" json:"type"`
	AmountCents    int64             `gorm:"type:bigint;not null" json:"amount_cents"`
	FeeCents       int64             `gorm:"type:bigint;not null" json:"fee_cents"`
	NetAmountCents int64             `gorm:"type:bigint;not null" json:"net_amount_cents"`
	RelatedID      string            `gorm:"type:uuid;not null;uniqueIndex" json:"related_id"`
	Status         TransactionStatus `gorm:"default:pending" json:"status"`
}

// TransactionStatusFor maps an investment status to its ledger mirror.
func TransactionStatusFor(s InvestmentStatus) TransactionStatus {
	switch s {
	case InvestmentConfirmed:
		return TransactionCompleted
	case InvestmentFailed:
		return TransactionFailed
	case InvestmentCancelled:
		return TransactionCancelled
	default:
		return TransactionPending
	}
}

package models

// PropertyStatus represents the lifecycle state of a listed property.
type PropertyStatus string

const (
	PropertyDraft           PropertyStatus = "draft"
	PropertyPendingApproval PropertyStatus = "pending_approval"
	PropertyActive          PropertyStatus = "active"
	PropertyFunded          PropertyStatus = "funded"
	PropertySold            PropertyStatus = "sold"
	PropertyInactive        PropertyStatus = "inactive"
)

// Property represents a listed property whose ownership is split into
// a fixed number of tokens. TotalTokens is immutable after creation;
// AvailableTokens only changes through the allocation pipeline and
// always satisfies 0 <= AvailableTokens <= TotalTokens.
type Property struct {
	Base
	OwnerID                string         `gorm:"type:uuid;not null" json:"owner_id"`
	Title                  string         `gorm:"not null" json:"title"`
	Address                string         `json:"address"`
	TotalTokens            int64          `gorm:"type:bigint;not null" json:"total_tokens"`
	AvailableTokens        int64          `gorm:"type:bigint;not null" json:"available_tokens"`
	TokenPriceCents        int64          `gorm:"type:bigint;not null" json:"token_price_cents"`
	MinimumInvestmentCents int64          `gorm:"type:bigint;not null" json:"minimum_investment_cents"`
	Status                 PropertyStatus `gorm:"default:draft" json:"status"`

	Investments []Investment `gorm:"foreignKey:PropertyID" json:"investments,omitempty"`
}

// propertyTransitions lists the permitted status changes. Administrative
// updates outside this table are rejected.
var propertyTransitions = map[PropertyStatus][]PropertyStatus{
	PropertyDraft:           {PropertyPendingApproval},
	PropertyPendingApproval: {PropertyDraft, PropertyActive},
	PropertyActive:          {PropertyFunded, PropertySold, PropertyInactive},
	PropertyFunded:          {PropertySold},
	PropertyInactive:        {PropertyActive},
}

// CanTransitionTo reports whether the property status may move to target.
func (p PropertyStatus) CanTransitionTo(target PropertyStatus) bool {
	for _, allowed := range propertyTransitions[p] {
		if allowed == target {
			return true
		}
	}
	return false
}

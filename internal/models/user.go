package models

import "time"

// UserRole controls access to administrative operations.
type UserRole string

const (
	RoleInvestor UserRole = "investor"
	RoleAdmin    UserRole = "admin"
)

// KYCStatus represents a user's identity-verification state.
// Only approved users may invest.
type KYCStatus string

const (
	KYCNone     KYCStatus = "none"
	KYCPending  KYCStatus = "pending"
	KYCApproved KYCStatus = "approved"
	KYCRejected KYCStatus = "rejected"
)

// User represents the user model in the database
type User struct {
	Base
	Email            string     `gorm:"uniqueIndex;not null" json:"email"`
	Password         string     `gorm:"not null" json:"-"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Role             UserRole   `gorm:"default:investor" json:"role"`
	KYCStatus        KYCStatus  `gorm:"default:none" json:"kyc_status"`
	IsActive         bool       `gorm:"default:true" json:"is_active"`
	RefreshTokenHash string     `gorm:"size:64" json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`

	Investments []Investment `gorm:"foreignKey:UserID" json:"investments,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

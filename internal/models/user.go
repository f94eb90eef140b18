package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a trader with a virtual cash balance.
type User struct {
	Base
	Username            string          `gorm:"uniqueIndex;not null;size:50" json:"username"`
	Email               string          `gorm:"uniqueIndex;not null" json:"email"`
	Password            string          `gorm:"not null" json:"-"`
	Balance             decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"balance"`
	IsActive            bool            `gorm:"default:true" json:"is_active"`
	RefreshTokenHash    string          `gorm:"size:64" json:"-"`
	FailedLoginAttempts int             `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time      `json:"-"`
	LastLoginAt         *time.Time      `json:"last_login_at,omitempty"`
	Holdings            []Holding       `gorm:"foreignKey:UserID" json:"holdings,omitempty"`
}

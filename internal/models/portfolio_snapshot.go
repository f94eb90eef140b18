package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioSnapshot represents a point-in-time snapshot of a user's net worth.
// There is one row per user and recorded_at; recording the same instant again
// overwrites it.
type PortfolioSnapshot struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"not null;uniqueIndex:idx_snapshots_user_recorded" json:"user_id"`
	RecordedAt    time.Time       `gorm:"not null;uniqueIndex:idx_snapshots_user_recorded" json:"recorded_at"`
	TotalNetWorth decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"total_net_worth"`
	CashBalance   decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"cash_balance"`
	HoldingsValue decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"holdings_value"`
}

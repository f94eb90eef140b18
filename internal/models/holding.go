package models

import "github.com/shopspring/decimal"

// Holding is a user's open position in one symbol. A holding with zero
// quantity is never stored; closing a position deletes the row.
type Holding struct {
	Base
	UserID       uint            `gorm:"not null;uniqueIndex:idx_holdings_user_symbol" json:"user_id"`
	Symbol       string          `gorm:"not null;size:16;uniqueIndex:idx_holdings_user_symbol" json:"symbol"`
	Quantity     int64           `gorm:"not null" json:"quantity"`
	AvgPrice     decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"avg_price"`
	CurrentPrice decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"current_price"`
}

package models

import "github.com/shopspring/decimal"

// Stock caches the last quote seen for a symbol.
type Stock struct {
	Base
	Symbol        string          `gorm:"uniqueIndex;not null;size:16" json:"symbol"`
	Name          string          `gorm:"not null" json:"name"`
	CurrentPrice  decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"current_price"`
	Change        decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"change"`
	ChangePercent decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"change_percent"`
	Volume        int64           `gorm:"not null;default:0" json:"volume"`
	MarketCap     decimal.Decimal `gorm:"type:numeric(24,2);not null" json:"market_cap"`
	Sector        string          `gorm:"size:100" json:"sector"`
}

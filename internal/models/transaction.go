package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TradeSide is the direction of a trade.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// Valid reports whether s is a known trade side.
func (s TradeSide) Valid() bool {
	return s == TradeSideBuy || s == TradeSideSell
}

// ErrImmutableTransaction is returned when code attempts to modify a recorded trade.
var ErrImmutableTransaction = errors.New("transactions are append-only")

// Transaction is an executed trade. It is append-only: no Base embed,
// no UpdatedAt, and update or delete attempts are rejected by hooks.
type Transaction struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"not null;index:idx_transactions_user_created" json:"user_id"`
	Symbol    string          `gorm:"not null;size:16" json:"symbol"`
	Type      TradeSide       `gorm:"not null;size:4" json:"type"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"price"`
	Total     decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"total"`
	CreatedAt time.Time       `gorm:"index:idx_transactions_user_created" json:"created_at"`
}

// BeforeUpdate rejects modification of a recorded trade.
func (t *Transaction) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableTransaction
}

// BeforeDelete rejects removal of a recorded trade.
func (t *Transaction) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableTransaction
}

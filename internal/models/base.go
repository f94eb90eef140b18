package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Monetary fields are emitted as JSON numbers rather than quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Base contains common columns for all tables.
// Rows are hard-deleted; a closed position must not linger as a soft-deleted holding.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

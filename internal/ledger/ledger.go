// Package ledger applies a single trade to a user's cash balance and holding.
//
// Apply is pure: it never mutates its inputs and performs no I/O. Callers
// persist the returned Outcome atomically. Every validation runs before any
// field of the outcome is computed, so a rejected trade yields no partial state.
package ledger

import (
	"github.com/shopspring/decimal"

	apperrors "papertrade/internal/errors"
	"papertrade/internal/models"
)

// AvgPricePlaces is the number of decimal places kept on a holding's average cost.
const AvgPricePlaces = 8

// Intent is a validated request to trade a quantity of one symbol.
type Intent struct {
	Symbol   string
	Side     models.TradeSide
	Quantity int64
}

// Outcome is the state that results from applying an Intent.
type Outcome struct {
	// Balance is the user's cash balance after the trade.
	Balance decimal.Decimal
	// Holding is the position after the trade. It is nil when Closed is true.
	// A Holding with a zero ID is new and must be inserted.
	Holding *models.Holding
	// Closed is true when a sell brought an existing holding to zero.
	Closed bool
	// Transaction is the trade record to append.
	Transaction models.Transaction
}

// Apply executes intent for user at the given price. holding is the user's
// existing position in intent.Symbol, or nil if there is none.
func Apply(user models.User, holding *models.Holding, intent Intent, price decimal.Decimal) (*Outcome, error) {
	if intent.Quantity <= 0 {
		return nil, apperrors.ErrInvalidQuantity
	}
	if !intent.Side.Valid() {
		return nil, apperrors.ErrInvalidTradeType
	}
	if !price.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "price must be positive")
	}

	qty := decimal.NewFromInt(intent.Quantity)
	total := price.Mul(qty)

	out := &Outcome{
		Transaction: models.Transaction{
			UserID:   user.ID,
			Symbol:   intent.Symbol,
			Type:     intent.Side,
			Quantity: intent.Quantity,
			Price:    price,
			Total:    total,
		},
	}

	switch intent.Side {
	case models.TradeSideBuy:
		if user.Balance.LessThan(total) {
			return nil, apperrors.ErrInsufficientBalance
		}
		out.Balance = user.Balance.Sub(total)
		out.Holding = buyInto(user.ID, holding, intent, price, total)

	case models.TradeSideSell:
		if holding == nil {
			return nil, apperrors.ErrNoSuchHolding
		}
		if holding.Quantity < intent.Quantity {
			return nil, apperrors.ErrInsufficientShares
		}
		out.Balance = user.Balance.Add(total)
		remaining := holding.Quantity - intent.Quantity
		if remaining == 0 {
			out.Closed = true
			break
		}
		next := *holding
		next.Quantity = remaining
		next.CurrentPrice = price
		out.Holding = &next
	}

	return out, nil
}

// buyInto returns the position after buying into holding (which may be nil).
// The average cost is the quantity-weighted mean of old and new lots.
func buyInto(userID uint, holding *models.Holding, intent Intent, price, total decimal.Decimal) *models.Holding {
	if holding == nil {
		return &models.Holding{
			UserID:       userID,
			Symbol:       intent.Symbol,
			Quantity:     intent.Quantity,
			AvgPrice:     price,
			CurrentPrice: price,
		}
	}

	next := *holding
	next.Quantity = holding.Quantity + intent.Quantity
	cost := holding.AvgPrice.Mul(decimal.NewFromInt(holding.Quantity)).Add(total)
	next.AvgPrice = cost.DivRound(decimal.NewFromInt(next.Quantity), AvgPricePlaces)
	next.CurrentPrice = price
	return &next
}

// bookValue is cash plus the cost basis of every holding. Buying leaves it
// unchanged; selling moves it by the realized gain.
func bookValue(balance decimal.Decimal, holdings []models.Holding) decimal.Decimal {
	v := balance
	for _, h := range holdings {
		v = v.Add(h.AvgPrice.Mul(decimal.NewFromInt(h.Quantity)))
	}
	return v
}

// RealizedGain is the profit of selling quantity shares of holding at price,
// measured against average cost.
func RealizedGain(holding models.Holding, quantity int64, price decimal.Decimal) decimal.Decimal {
	return price.Sub(holding.AvgPrice).Mul(decimal.NewFromInt(quantity))
}

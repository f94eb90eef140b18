// Package valuation computes market value and profit/loss for holdings.
package valuation

import (
	"github.com/shopspring/decimal"

	"papertrade/internal/models"
)

// PercentPlaces is the rounding applied to every percentage.
const PercentPlaces = 4

var hundred = decimal.NewFromInt(100)

// HoldingValue is a holding together with its derived metrics.
type HoldingValue struct {
	models.Holding
	MarketValue decimal.Decimal `json:"market_value"`
	CostBasis   decimal.Decimal `json:"cost_basis"`
	PnL         decimal.Decimal `json:"pnl"`
	PnLPercent  decimal.Decimal `json:"pnl_percent"`
}

// Summary aggregates a set of holdings.
type Summary struct {
	Holdings        []HoldingValue  `json:"holdings"`
	TotalValue      decimal.Decimal `json:"total_value"`
	TotalInvested   decimal.Decimal `json:"total_invested"`
	TotalPnL        decimal.Decimal `json:"total_pnl"`
	TotalPnLPercent decimal.Decimal `json:"total_pnl_percent"`
}

// Percent returns part/whole*100, or zero when whole is not positive.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).DivRound(whole, PercentPlaces)
}

// Value derives market value, cost basis and profit/loss for h.
func Value(h models.Holding) HoldingValue {
	qty := decimal.NewFromInt(h.Quantity)
	mv := h.CurrentPrice.Mul(qty)
	cb := h.AvgPrice.Mul(qty)
	pnl := mv.Sub(cb)
	return HoldingValue{
		Holding:     h,
		MarketValue: mv,
		CostBasis:   cb,
		PnL:         pnl,
		PnLPercent:  Percent(pnl, cb),
	}
}

// Summarize values each holding and totals them. The invested amount is
// derived as value minus profit, which equals the summed cost basis.
func Summarize(holdings []models.Holding) Summary {
	s := Summary{
		Holdings:   make([]HoldingValue, 0, len(holdings)),
		TotalValue: decimal.Zero,
		TotalPnL:   decimal.Zero,
	}
	for _, h := range holdings {
		v := Value(h)
		s.Holdings = append(s.Holdings, v)
		s.TotalValue = s.TotalValue.Add(v.MarketValue)
		s.TotalPnL = s.TotalPnL.Add(v.PnL)
	}
	s.TotalInvested = s.TotalValue.Sub(s.TotalPnL)
	s.TotalPnLPercent = Percent(s.TotalPnL, s.TotalInvested)
	return s
}

// Reprice returns a copy of holdings with CurrentPrice replaced from prices.
// Symbols missing from prices keep their last-known price.
func Reprice(holdings []models.Holding, prices map[string]decimal.Decimal) []models.Holding {
	out := make([]models.Holding, len(holdings))
	for i, h := range holdings {
		if p, ok := prices[h.Symbol]; ok && p.IsPositive() {
			h.CurrentPrice = p
		}
		out[i] = h
	}
	return out
}

// Package provider defines the interface for fetching stock quotes and price
// history from external market data sources.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrSymbolNotFound means the source has no data for the symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrUnavailable means the source could not be reached or returned garbage.
	ErrUnavailable = errors.New("price source unavailable")
)

// Quote is the latest market data for one symbol.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Currency      string          `json:"currency"`
	Price         decimal.Decimal `json:"price"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Volume        int64           `json:"volume"`
	MarketCap     decimal.Decimal `json:"market_cap"`
	Sector        string          `json:"sector"`
	FetchedAt     time.Time       `json:"fetched_at"`
}

// Bar is one daily OHLCV candle.
type Bar struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// FetchError represents a failed quote fetch for a specific symbol.
type FetchError struct {
	Symbol string
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch quote for %s: %v", e.Symbol, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *FetchError) Unwrap() error { return e.Err }

// BatchResult holds the outcome of a multi-symbol fetch. A source returns as
// many quotes as it can; failures are reported per symbol.
type BatchResult struct {
	Quotes map[string]Quote
	Errors []FetchError
}

// Source fetches market data.
type Source interface {
	// Name returns the source's display name.
	Name() string

	// Quote fetches the latest quote for one symbol.
	Quote(ctx context.Context, symbol string) (Quote, error)

	// Quotes fetches the latest quotes for several symbols.
	Quotes(ctx context.Context, symbols []string) BatchResult

	// History fetches daily bars for symbol over period (e.g. "1mo").
	History(ctx context.Context, symbol, period string) ([]Bar, error)
}

// HistoryPeriods lists the period values accepted by History.
var HistoryPeriods = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}

// ValidPeriod reports whether p is one of HistoryPeriods.
func ValidPeriod(p string) bool {
	for _, v := range HistoryPeriods {
		if v == p {
			return true
		}
	}
	return false
}

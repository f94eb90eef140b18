package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "papertrade/internal/errors"
	"papertrade/internal/logger"
	"papertrade/internal/models"
	"papertrade/internal/provider"
)

// DefaultSymbols is the universe refreshed when listing stocks.
var DefaultSymbols = []string{
	"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "META", "NVDA", "NFLX", "AMD", "INTC",
	"CRM", "ORCL", "ADBE", "PYPL", "UBER", "SPOT", "COIN", "SQ", "ROKU", "ZM",
}

const (
	defaultSearchLimit = 10
	defaultPeriod      = "1d"
)

// NormalizeSymbol trims and uppercases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// stockService keeps the stocks table in step with a price source.
type stockService struct {
	db     *gorm.DB
	source provider.Source
}

// NewStockService creates a new StockServicer.
func NewStockService(db *gorm.DB, source provider.Source) StockServicer {
	return &stockService{db: db, source: source}
}

// RefreshStocks fetches quotes for symbols and upserts every one that
// succeeded. Per-symbol failures are logged and reported, not returned as errors.
func (s *stockService) RefreshStocks(ctx context.Context, symbols []string) (*RefreshResult, error) {
	symbols = distinctSymbols(symbols)
	result := &RefreshResult{Updated: []string{}}
	if len(symbols) == 0 {
		return result, nil
	}

	batch := s.source.Quotes(ctx, symbols)
	for _, fe := range batch.Errors {
		logger.Get().Warnw("stock refresh failed", "symbol", fe.Symbol, "source", s.source.Name(), "error", fe.Err)
	}
	result.Failed = batch.Errors

	for _, sym := range symbols {
		q, ok := batch.Quotes[sym]
		if !ok {
			continue
		}
		if _, err := s.upsert(s.db, q); err != nil {
			return result, err
		}
		result.Updated = append(result.Updated, sym)
	}
	return result, nil
}

// upsert writes q to the stocks table. The display name is only set on insert.
func (s *stockService) upsert(db *gorm.DB, q provider.Quote) (*models.Stock, error) {
	sector := q.Sector
	if sector == "" {
		sector = "Unknown"
	}
	name := q.Name
	if name == "" {
		name = q.Symbol
	}
	stock := &models.Stock{
		Symbol:        NormalizeSymbol(q.Symbol),
		Name:          name,
		CurrentPrice:  q.Price,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		Volume:        q.Volume,
		MarketCap:     q.MarketCap,
		Sector:        sector,
	}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"current_price":  stock.CurrentPrice,
			"change":         stock.Change,
			"change_percent": stock.ChangePercent,
			"volume":         stock.Volume,
			"market_cap":     stock.MarketCap,
			"sector":         stock.Sector,
			"updated_at":     time.Now(),
		}),
	}).Create(stock).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var saved models.Stock
	if err := db.Where("symbol = ?", stock.Symbol).First(&saved).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &saved, nil
}

// ListStocks refreshes the default universe, best effort, and returns every cached stock.
func (s *stockService) ListStocks(ctx context.Context) ([]models.Stock, error) {
	if _, err := s.RefreshStocks(ctx, DefaultSymbols); err != nil {
		return nil, err
	}

	var stocks []models.Stock
	if err := s.db.Order("symbol ASC").Find(&stocks).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return stocks, nil
}

// GetStock refreshes symbol and returns its row. A failed refresh falls back
// to the cached row when one exists.
func (s *stockService) GetStock(ctx context.Context, symbol string) (*models.Stock, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "symbol is required")
	}

	if _, err := s.RefreshStocks(ctx, []string{symbol}); err != nil {
		return nil, err
	}

	var stock models.Stock
	if err := s.db.Where("symbol = ?", symbol).First(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSymbolNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &stock, nil
}

// QuoteForTrade fetches a live quote, bypassing any quote cache, and records it.
func (s *stockService) QuoteForTrade(ctx context.Context, symbol string) (*models.Stock, error) {
	symbol = NormalizeSymbol(symbol)
	q, err := provider.Fresh(s.source).Quote(ctx, symbol)
	if err != nil {
		return nil, mapSourceError(err)
	}
	q.Symbol = symbol
	return s.upsert(s.db, q)
}

// SearchStocks matches symbol or name in the cache, falling back to a direct
// lookup of query as a ticker when nothing matches.
func (s *stockService) SearchStocks(ctx context.Context, query string, limit int) ([]models.Stock, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Stock{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	pattern := "%" + strings.ToLower(query) + "%"
	var stocks []models.Stock
	if err := s.db.Where("LOWER(symbol) LIKE ? OR LOWER(name) LIKE ?", pattern, pattern).
		Order("symbol ASC").Limit(limit).Find(&stocks).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(stocks) > 0 {
		return stocks, nil
	}

	symbol := NormalizeSymbol(query)
	q, err := s.source.Quote(ctx, symbol)
	if err != nil {
		logger.Get().Debugw("search lookup missed", "query", query, "error", err)
		return []models.Stock{}, nil
	}
	q.Symbol = symbol
	stock, err := s.upsert(s.db, q)
	if err != nil {
		return nil, err
	}
	return []models.Stock{*stock}, nil
}

// GetHistory returns daily bars for symbol. Source failures yield an empty series.
func (s *stockService) GetHistory(ctx context.Context, symbol, period string) ([]provider.Bar, error) {
	symbol = NormalizeSymbol(symbol)
	if period == "" {
		period = defaultPeriod
	}
	if !provider.ValidPeriod(period) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported period "+period)
	}

	bars, err := s.source.History(ctx, symbol, period)
	if err != nil {
		logger.Get().Warnw("history fetch failed", "symbol", symbol, "period", period, "error", err)
		return []provider.Bar{}, nil
	}
	if bars == nil {
		bars = []provider.Bar{}
	}
	return bars, nil
}

// CachedPrices returns the last stored price for each known symbol.
func (s *stockService) CachedPrices(symbols []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(symbols))
	if len(symbols) == 0 {
		return prices, nil
	}
	var stocks []models.Stock
	if err := s.db.Where("symbol IN ?", symbols).Find(&stocks).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, st := range stocks {
		prices[st.Symbol] = st.CurrentPrice
	}
	return prices, nil
}

// mapSourceError converts a provider error to an AppError.
func mapSourceError(err error) error {
	if errors.Is(err, provider.ErrSymbolNotFound) {
		return apperrors.Wrap(apperrors.ErrSymbolNotFound, err)
	}
	return apperrors.Wrap(apperrors.ErrExternalUnavailable, err)
}

// distinctSymbols normalizes, de-duplicates and sorts symbols.
func distinctSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

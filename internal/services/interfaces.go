package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"papertrade/internal/models"
	"papertrade/internal/pagination"
	"papertrade/internal/provider"
	"papertrade/internal/ranking"
	"papertrade/internal/valuation"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(username, email, password string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	UpdateProfile(userID uint, update ProfileUpdate) (*models.User, error)
	StoreRefreshTokenHash(userID uint, tokenHash string) error
	GetRefreshTokenHash(userID uint) (string, error)
}

// ProfileUpdate holds optional profile changes. Nil fields are left unchanged.
type ProfileUpdate struct {
	Username *string
	Email    *string
}

// RefreshResult reports which symbols a refresh updated.
type RefreshResult struct {
	Updated []string              `json:"updated"`
	Failed  []provider.FetchError `json:"-"`
}

// StockServicer defines the contract for stock quotes and the cached stock table.
type StockServicer interface {
	RefreshStocks(ctx context.Context, symbols []string) (*RefreshResult, error)
	ListStocks(ctx context.Context) ([]models.Stock, error)
	GetStock(ctx context.Context, symbol string) (*models.Stock, error)
	QuoteForTrade(ctx context.Context, symbol string) (*models.Stock, error)
	SearchStocks(ctx context.Context, query string, limit int) ([]models.Stock, error)
	GetHistory(ctx context.Context, symbol, period string) ([]provider.Bar, error)
	CachedPrices(symbols []string) (map[string]decimal.Decimal, error)
}

// MarketOverview summarizes the cached stock table.
type MarketOverview struct {
	TotalStocks    int64           `json:"total_stocks"`
	TotalMarketCap decimal.Decimal `json:"total_market_cap"`
	TotalVolume    int64           `json:"total_volume"`
	TopGainers     []models.Stock  `json:"top_gainers"`
	TopLosers      []models.Stock  `json:"top_losers"`
}

// TopMovers lists the largest moves in the cached stock table.
type TopMovers struct {
	Gainers    []models.Stock `json:"gainers"`
	Losers     []models.Stock `json:"losers"`
	MostActive []models.Stock `json:"most_active"`
}

// MarketStatus describes the regular US equity session.
type MarketStatus struct {
	IsOpen    bool      `json:"is_open"`
	NextOpen  time.Time `json:"next_open"`
	NextClose time.Time `json:"next_close"`
}

// MarketServicer defines the contract for market-wide views.
type MarketServicer interface {
	GetOverview() (*MarketOverview, error)
	GetTopMovers() (*TopMovers, error)
	GetStatus(now time.Time) MarketStatus
}

// TradeServicer defines the contract for executing trades.
type TradeServicer interface {
	ExecuteTrade(ctx context.Context, userID uint, symbol string, side models.TradeSide, quantity int64) (*models.Transaction, error)
}

// PortfolioView is a user's cash and valued holdings.
type PortfolioView struct {
	Balance  decimal.Decimal `json:"balance"`
	NetWorth decimal.Decimal `json:"net_worth"`
	valuation.Summary
}

// PortfolioServicer defines the contract for portfolio, history and ranking reads.
type PortfolioServicer interface {
	GetPortfolio(ctx context.Context, userID uint) (*PortfolioView, error)
	GetTransactions(userID uint, limit int) ([]models.Transaction, error)
	GetRank(userID uint) (*ranking.UserRank, error)
	GetLeaderboard(limit int) ([]ranking.Standing, error)
}

// PortfolioSnapshotServicer defines the contract for portfolio snapshot operations.
type PortfolioSnapshotServicer interface {
	ComputeAndRecordSnapshots(recordedAt time.Time) (int, error)
	GetSnapshots(userID uint, from, to time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.PortfolioSnapshot], error)
}

// ExplanationServicer defines the contract for financial term explanations.
type ExplanationServicer interface {
	Explain(ctx context.Context, term string) (*models.Explanation, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]any)
}

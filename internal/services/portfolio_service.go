package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "papertrade/internal/errors"
	"papertrade/internal/models"
	"papertrade/internal/ranking"
	"papertrade/internal/valuation"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 500
	maxLeaderboardLimit     = 100
)

// portfolioService serves portfolio reads and rankings.
type portfolioService struct {
	db     *gorm.DB
	stocks StockServicer
}

// NewPortfolioService creates a new PortfolioServicer.
func NewPortfolioService(db *gorm.DB, stocks StockServicer) PortfolioServicer {
	return &portfolioService{db: db, stocks: stocks}
}

// GetPortfolio refreshes prices for the user's symbols in one batch, stores
// them on the holdings, and returns the valued portfolio. Symbols that fail
// to refresh keep their last-known price. The balance and holdings are read
// in one transaction so a concurrent trade is seen entirely or not at all.
func (s *portfolioService) GetPortfolio(ctx context.Context, userID uint) (*PortfolioView, error) {
	var symbols []string
	if err := s.db.Model(&models.Holding{}).Where("user_id = ?", userID).
		Order("symbol ASC").Pluck("symbol", &symbols).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	prices := map[string]decimal.Decimal{}
	if len(symbols) > 0 {
		if _, err := s.stocks.RefreshStocks(ctx, symbols); err != nil {
			return nil, err
		}
		var err error
		if prices, err = s.stocks.CachedPrices(symbols); err != nil {
			return nil, err
		}
	}

	var view *PortfolioView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUserNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		var holdings []models.Holding
		if err := tx.Where("user_id = ?", userID).Order("symbol ASC").Find(&holdings).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		repriced := valuation.Reprice(holdings, prices)
		for i := range repriced {
			if repriced[i].CurrentPrice.Equal(holdings[i].CurrentPrice) {
				continue
			}
			if err := tx.Model(&models.Holding{}).Where("id = ?", repriced[i].ID).
				Update("current_price", repriced[i].CurrentPrice).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		summary := valuation.Summarize(repriced)
		view = &PortfolioView{
			Balance:  user.Balance,
			NetWorth: user.Balance.Add(summary.TotalValue),
			Summary:  summary,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// GetTransactions returns the user's most recent trades, newest first.
func (s *portfolioService) GetTransactions(userID uint, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}

	var txns []models.Transaction
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Find(&txns).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return txns, nil
}

// GetRank returns the user's position among all users.
func (s *portfolioService) GetRank(userID uint) (*ranking.UserRank, error) {
	standings, err := s.standings()
	if err != nil {
		return nil, err
	}
	r := ranking.Position(standings, userID)
	return &r, nil
}

// GetLeaderboard returns the top users by holdings value.
func (s *portfolioService) GetLeaderboard(limit int) ([]ranking.Standing, error) {
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	standings, err := s.standings()
	if err != nil {
		return nil, err
	}
	return ranking.Top(standings, limit), nil
}

// standings ranks every user, including those without holdings, using
// each holding's last-known price.
func (s *portfolioService) standings() ([]ranking.Standing, error) {
	var users []models.User
	if err := s.db.Select("id", "username").Find(&users).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var holdings []models.Holding
	if err := s.db.Find(&holdings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	byUser := make(map[uint][]models.Holding, len(users))
	for _, h := range holdings {
		byUser[h.UserID] = append(byUser[h.UserID], h)
	}

	entries := make([]ranking.Entry, 0, len(users))
	for _, u := range users {
		entries = append(entries, ranking.NewEntry(u.ID, u.Username, valuation.Summarize(byUser[u.ID])))
	}
	return ranking.Rank(entries), nil
}

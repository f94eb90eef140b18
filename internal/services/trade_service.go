package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "papertrade/internal/errors"
	"papertrade/internal/ledger"
	"papertrade/internal/logger"
	"papertrade/internal/models"
)

// tradeService executes buy and sell orders against the ledger.
type tradeService struct {
	db     *gorm.DB
	stocks StockServicer
}

// NewTradeService creates a new TradeServicer.
func NewTradeService(db *gorm.DB, stocks StockServicer) TradeServicer {
	return &tradeService{db: db, stocks: stocks}
}

// ExecuteTrade fills an order at the live market price. The balance update,
// holding change and transaction record commit together or not at all.
//
// The user row is locked for the duration of the transaction, which
// serializes concurrent trades by the same user. SQLite ignores the lock
// clause and serializes writers on its own.
func (s *tradeService) ExecuteTrade(ctx context.Context, userID uint, symbol string, side models.TradeSide, quantity int64) (*models.Transaction, error) {
	intent := ledger.Intent{Symbol: NormalizeSymbol(symbol), Side: side, Quantity: quantity}
	if intent.Symbol == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "symbol is required")
	}
	if intent.Quantity <= 0 {
		return nil, apperrors.ErrInvalidQuantity
	}
	if !intent.Side.Valid() {
		return nil, apperrors.ErrInvalidTradeType
	}

	stock, err := s.stocks.QuoteForTrade(ctx, intent.Symbol)
	if err != nil {
		return nil, err
	}

	var txn models.Transaction
	realized := decimal.Zero
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUserNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		holding, err := lockHolding(tx, userID, intent.Symbol)
		if err != nil {
			return err
		}

		out, err := ledger.Apply(user, holding, intent, stock.CurrentPrice)
		if err != nil {
			return err
		}
		if intent.Side == models.TradeSideSell {
			realized = ledger.RealizedGain(*holding, intent.Quantity, stock.CurrentPrice)
		}

		if err := tx.Model(&user).Update("balance", out.Balance).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		switch {
		case out.Closed:
			if err := tx.Delete(&models.Holding{}, holding.ID).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		case out.Holding.ID == 0:
			if err := tx.Create(out.Holding).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		default:
			if err := tx.Model(out.Holding).Updates(map[string]interface{}{
				"quantity":      out.Holding.Quantity,
				"avg_price":     out.Holding.AvgPrice,
				"current_price": out.Holding.CurrentPrice,
			}).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		txn = out.Transaction
		if err := tx.Create(&txn).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("trade executed",
		"user_id", userID,
		"symbol", txn.Symbol,
		"type", txn.Type,
		"quantity", txn.Quantity,
		"price", txn.Price.String(),
		"realized_gain", realized.String(),
	)
	return &txn, nil
}

// lockHolding reads the user's holding in symbol for update, or nil if none.
func lockHolding(tx *gorm.DB, userID uint, symbol string) (*models.Holding, error) {
	var h models.Holding
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND symbol = ?", userID, symbol).
		First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &h, nil
}

package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "papertrade/internal/errors"
	"papertrade/internal/models"
	"papertrade/internal/pagination"
	"papertrade/internal/valuation"
)

// portfolioSnapshotService handles portfolio snapshot operations.
type portfolioSnapshotService struct {
	db *gorm.DB
}

// NewPortfolioSnapshotService creates a new PortfolioSnapshotServicer.
func NewPortfolioSnapshotService(db *gorm.DB) PortfolioSnapshotServicer {
	return &portfolioSnapshotService{db: db}
}

// ComputeAndRecordSnapshots stores a net worth snapshot for every active user.
// Holdings are valued at their last-known price. Re-running for the same
// recordedAt overwrites the earlier snapshot.
func (s *portfolioSnapshotService) ComputeAndRecordSnapshots(recordedAt time.Time) (int, error) {
	var users []models.User
	if err := s.db.Where("is_active = ?", true).Order("id ASC").Find(&users).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	recordedAt = recordedAt.UTC()
	count := 0
	for i := range users {
		snapshot, err := s.computeSnapshot(&users[i], recordedAt)
		if err != nil {
			return count, err
		}

		// Upsert: check for existing snapshot at same user+time
		var existing models.PortfolioSnapshot
		err = s.db.Where("user_id = ? AND recorded_at = ?", snapshot.UserID, recordedAt).First(&existing).Error
		switch {
		case err == nil:
			if err := s.db.Model(&existing).Updates(map[string]interface{}{
				"total_net_worth": snapshot.TotalNetWorth,
				"cash_balance":    snapshot.CashBalance,
				"holdings_value":  snapshot.HoldingsValue,
			}).Error; err != nil {
				return count, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := s.db.Create(snapshot).Error; err != nil {
				return count, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		default:
			return count, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		count++
	}

	return count, nil
}

// computeSnapshot calculates a user's net worth breakdown.
func (s *portfolioSnapshotService) computeSnapshot(user *models.User, recordedAt time.Time) (*models.PortfolioSnapshot, error) {
	var holdings []models.Holding
	if err := s.db.Where("user_id = ?", user.ID).Find(&holdings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	holdingsValue := decimal.Zero
	if len(holdings) > 0 {
		holdingsValue = valuation.Summarize(holdings).TotalValue
	}

	return &models.PortfolioSnapshot{
		UserID:        user.ID,
		RecordedAt:    recordedAt,
		TotalNetWorth: user.Balance.Add(holdingsValue),
		CashBalance:   user.Balance,
		HoldingsValue: holdingsValue,
	}, nil
}

// GetSnapshots returns paginated snapshots for a user within a date range.
func (s *portfolioSnapshotService) GetSnapshots(
	userID uint,
	from, to time.Time,
	page pagination.PageRequest,
) (*pagination.PageResponse[models.PortfolioSnapshot], error) {
	if to.Before(from) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "to_date must not be before from_date")
	}
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.PortfolioSnapshot{}).
		Where("user_id = ? AND recorded_at >= ? AND recorded_at <= ?", userID, from.UTC(), to.UTC()).
		Session(&gorm.Session{})
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var snapshots []models.PortfolioSnapshot
	if err := base.Order("recorded_at DESC").Scopes(pagination.Paginate(page)).Find(&snapshots).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(snapshots, page.Page, page.PageSize, totalItems)
	return &result, nil
}

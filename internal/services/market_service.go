package services

import (
	"time"
	_ "time/tzdata" // America/New_York must resolve on hosts without zoneinfo

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "papertrade/internal/errors"
	"papertrade/internal/models"
)

const (
	overviewMoverCount = 5
	topMoverCount      = 10
)

// marketService builds market-wide views from the cached stock table.
type marketService struct {
	db  *gorm.DB
	loc *time.Location
}

// NewMarketService creates a new MarketServicer.
func NewMarketService(db *gorm.DB) MarketServicer {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*60*60)
	}
	return &marketService{db: db, loc: loc}
}

// GetOverview returns counts, totals and the biggest movers.
func (s *marketService) GetOverview() (*MarketOverview, error) {
	var totals struct {
		Count     int64
		MarketCap decimal.NullDecimal
		Volume    int64
	}
	if err := s.db.Model(&models.Stock{}).
		Select("COUNT(*) AS count, COALESCE(SUM(market_cap), 0) AS market_cap, COALESCE(SUM(volume), 0) AS volume").
		Scan(&totals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	gainers, err := s.ordered("change_percent DESC", overviewMoverCount)
	if err != nil {
		return nil, err
	}
	losers, err := s.ordered("change_percent ASC", overviewMoverCount)
	if err != nil {
		return nil, err
	}

	marketCap := decimal.Zero
	if totals.MarketCap.Valid {
		marketCap = totals.MarketCap.Decimal
	}
	return &MarketOverview{
		TotalStocks:    totals.Count,
		TotalMarketCap: marketCap,
		TotalVolume:    totals.Volume,
		TopGainers:     gainers,
		TopLosers:      losers,
	}, nil
}

// GetTopMovers returns the largest gainers, losers and volume leaders.
func (s *marketService) GetTopMovers() (*TopMovers, error) {
	gainers, err := s.ordered("change_percent DESC", topMoverCount)
	if err != nil {
		return nil, err
	}
	losers, err := s.ordered("change_percent ASC", topMoverCount)
	if err != nil {
		return nil, err
	}
	active, err := s.ordered("volume DESC", topMoverCount)
	if err != nil {
		return nil, err
	}
	return &TopMovers{Gainers: gainers, Losers: losers, MostActive: active}, nil
}

func (s *marketService) ordered(order string, limit int) ([]models.Stock, error) {
	stocks := []models.Stock{}
	if err := s.db.Order(order).Order("symbol ASC").Limit(limit).Find(&stocks).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return stocks, nil
}

// GetStatus reports whether the regular session (09:30 to 16:00 New York
// time, Monday to Friday) is open at now. Exchange holidays are not modeled.
func (s *marketService) GetStatus(now time.Time) MarketStatus {
	return marketStatusAt(now, s.loc)
}

func marketStatusAt(now time.Time, loc *time.Location) MarketStatus {
	local := now.In(loc)
	sessionOpen := func(day time.Time) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), 9, 30, 0, 0, loc)
	}
	sessionClose := func(day time.Time) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), 16, 0, 0, 0, loc)
	}

	if isTradingDay(local) && !local.Before(sessionOpen(local)) && local.Before(sessionClose(local)) {
		next := nextTradingDay(local)
		return MarketStatus{
			IsOpen:    true,
			NextOpen:  sessionOpen(next),
			NextClose: sessionClose(local),
		}
	}

	day := local
	if !isTradingDay(day) || !local.Before(sessionOpen(day)) {
		day = nextTradingDay(day)
	}
	return MarketStatus{
		IsOpen:    false,
		NextOpen:  sessionOpen(day),
		NextClose: sessionClose(day),
	}
}

func isTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func nextTradingDay(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
	for !isTradingDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

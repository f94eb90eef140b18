// Package ranking orders users by portfolio value.
//
// Users are sorted by holdings value descending; ties break on ascending
// user ID so that every user receives a distinct, stable rank. Cash is not
// part of the ranked value.
package ranking

import (
	"sort"

	"github.com/shopspring/decimal"

	"papertrade/internal/valuation"
)

// DefaultLeaderboardSize is used when a non-positive limit is requested.
const DefaultLeaderboardSize = 10

// Entry is one user's input to the ranking.
type Entry struct {
	UserID          uint            `json:"user_id"`
	Username        string          `json:"username"`
	PortfolioValue  decimal.Decimal `json:"portfolio_value"`
	TotalPnL        decimal.Decimal `json:"total_pnl"`
	TotalPnLPercent decimal.Decimal `json:"total_pnl_percent"`
}

// NewEntry builds an Entry from a valued portfolio.
func NewEntry(userID uint, username string, s valuation.Summary) Entry {
	return Entry{
		UserID:          userID,
		Username:        username,
		PortfolioValue:  s.TotalValue,
		TotalPnL:        s.TotalPnL,
		TotalPnLPercent: s.TotalPnLPercent,
	}
}

// Standing is an Entry with its 1-based rank.
type Standing struct {
	Entry
	Rank int `json:"rank"`
}

// UserRank is a single user's position in the ranking.
type UserRank struct {
	UserID         uint            `json:"user_id"`
	Rank           int             `json:"rank"`
	TotalUsers     int             `json:"total_users"`
	Percentile     float64         `json:"percentile"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
}

// Rank returns entries ordered best first with ranks assigned. The input
// slice is not modified.
func Rank(entries []Entry) []Standing {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].PortfolioValue.Cmp(sorted[j].PortfolioValue); c != 0 {
			return c > 0
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	out := make([]Standing, len(sorted))
	for i, e := range sorted {
		out[i] = Standing{Entry: e, Rank: i + 1}
	}
	return out
}

// Percentile is the share of users ranked at or below rank, as a percent.
func Percentile(rank, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(total-rank+1) / float64(total) * 100
}

// Position locates userID in standings. A user missing from standings is
// reported as last with a zero portfolio value; with no standings at all
// they are the only user.
func Position(standings []Standing, userID uint) UserRank {
	total := len(standings)
	for _, s := range standings {
		if s.UserID == userID {
			return UserRank{
				UserID:         userID,
				Rank:           s.Rank,
				TotalUsers:     total,
				Percentile:     Percentile(s.Rank, total),
				PortfolioValue: s.PortfolioValue,
			}
		}
	}

	if total == 0 {
		total = 1
	}
	return UserRank{
		UserID:         userID,
		Rank:           total,
		TotalUsers:     total,
		Percentile:     Percentile(total, total),
		PortfolioValue: decimal.Zero,
	}
}

// Top returns at most limit standings from the head of the ranking.
func Top(standings []Standing, limit int) []Standing {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	if limit > len(standings) {
		limit = len(standings)
	}
	out := make([]Standing, limit)
	copy(out, standings[:limit])
	return out
}

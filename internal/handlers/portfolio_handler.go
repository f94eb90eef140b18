package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"papertrade/internal/services"
)

// PortfolioHandler serves portfolio, history and ranking reads.
type PortfolioHandler struct {
	portfolioService services.PortfolioServicer
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioService services.PortfolioServicer) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: portfolioService}
}

// GetPortfolio returns the user's cash and repriced holdings.
// @Summary     Get portfolio
// @Description Refresh prices for held symbols and return holdings with valuation totals
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.PortfolioView "Portfolio"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /users/me/portfolio [get]
func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := h.portfolioService.GetPortfolio(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetTransactions returns the user's trades, newest first.
// @Summary     List transactions
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       limit query int false "Maximum rows (default 50, max 500)"
// @Success     200 {array}  models.Transaction "Transactions"
// @Failure     400 {object} ErrorResponse "Invalid limit"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /users/me/transactions [get]
func (h *PortfolioHandler) GetTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	limit, err := parseLimit(c, "limit")
	if err != nil {
		respondWithError(c, err)
		return
	}

	txns, err := h.portfolioService.GetTransactions(userID, limit)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

// GetRank returns the user's position among all traders.
// @Summary     Get rank
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} ranking.UserRank "Rank"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /users/me/rank [get]
func (h *PortfolioHandler) GetRank(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rank, err := h.portfolioService.GetRank(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rank)
}

// GetLeaderboard returns the top traders by portfolio value.
// @Summary     Leaderboard
// @Tags        leaderboard
// @Produce     json
// @Param       limit query int false "Number of traders (default 10, max 100)"
// @Success     200 {array}  ranking.Standing "Standings"
// @Failure     400 {object} ErrorResponse "Invalid limit"
// @Router      /leaderboard [get]
func (h *PortfolioHandler) GetLeaderboard(c *gin.Context) {
	limit, err := parseLimit(c, "limit")
	if err != nil {
		respondWithError(c, err)
		return
	}

	standings, err := h.portfolioService.GetLeaderboard(limit)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, standings)
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"papertrade/internal/services"
)

// MarketHandler serves market-wide views over the stock cache.
type MarketHandler struct {
	marketService services.MarketServicer
	now           func() time.Time
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketService services.MarketServicer) *MarketHandler {
	return &MarketHandler{marketService: marketService, now: time.Now}
}

// GetOverview returns totals and the biggest movers.
// @Summary     Market overview
// @Tags        market
// @Produce     json
// @Success     200 {object} services.MarketOverview "Overview"
// @Router      /market/overview [get]
func (h *MarketHandler) GetOverview(c *gin.Context) {
	o, err := h.marketService.GetOverview()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// GetTopMovers returns top gainers, losers and most active stocks.
// @Summary     Top movers
// @Tags        market
// @Produce     json
// @Success     200 {object} services.TopMovers "Movers"
// @Router      /market/top-movers [get]
func (h *MarketHandler) GetTopMovers(c *gin.Context) {
	m, err := h.marketService.GetTopMovers()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// GetStatus reports whether the US regular session is open.
// @Summary     Market status
// @Tags        market
// @Produce     json
// @Success     200 {object} services.MarketStatus "Status"
// @Router      /market/status [get]
func (h *MarketHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.marketService.GetStatus(h.now()))
}

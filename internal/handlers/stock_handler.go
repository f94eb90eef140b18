package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"papertrade/internal/services"
)

const maxSearchLimit = 50

// StockHandler serves quotes, search and price history.
type StockHandler struct {
	stockService services.StockServicer
	auditService services.AuditServicer
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(stockService services.StockServicer, auditService services.AuditServicer) *StockHandler {
	return &StockHandler{stockService: stockService, auditService: auditService}
}

// HistoryQuery holds the history query string.
type HistoryQuery struct {
	Period string `form:"period" binding:"omitempty,history_period"`
}

// RefreshStocksRequest lists symbols to refresh. Empty means the default universe.
type RefreshStocksRequest struct {
	Symbols []string `json:"symbols" binding:"omitempty,max=100,dive,symbol"`
}

// RefreshStocksResponse reports the outcome of a refresh.
type RefreshStocksResponse struct {
	Updated []string `json:"updated"`
	Failed  []string `json:"failed"`
}

// ListStocks returns the cached stock table after a best-effort refresh.
// @Summary     List stocks
// @Tags        stocks
// @Produce     json
// @Success     200 {array} models.Stock "Stocks ordered by symbol"
// @Router      /stocks [get]
func (h *StockHandler) ListStocks(c *gin.Context) {
	stocks, err := h.stockService.ListStocks(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stocks)
}

// SearchStocks matches cached stocks by symbol or name.
// @Summary     Search stocks
// @Tags        stocks
// @Produce     json
// @Param       q     query string true  "Symbol or name fragment"
// @Param       limit query int    false "Maximum results (default 10, max 50)"
// @Success     200 {array}  models.Stock "Matches"
// @Failure     400 {object} ErrorResponse "Invalid limit"
// @Router      /stocks/search [get]
func (h *StockHandler) SearchStocks(c *gin.Context) {
	limit, err := parseLimit(c, "limit")
	if err != nil {
		respondWithError(c, err)
		return
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	stocks, err := h.stockService.SearchStocks(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stocks)
}

// GetStock returns one stock, refreshed when the price source answers.
// @Summary     Get stock
// @Tags        stocks
// @Produce     json
// @Param       symbol path string true "Ticker symbol"
// @Success     200 {object} models.Stock "Stock"
// @Failure     404 {object} ErrorResponse "Unknown symbol"
// @Router      /stocks/{symbol} [get]
func (h *StockHandler) GetStock(c *gin.Context) {
	stock, err := h.stockService.GetStock(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stock)
}

// GetHistory returns daily closing bars for a symbol.
// @Summary     Price history
// @Tags        stocks
// @Produce     json
// @Param       symbol path  string true  "Ticker symbol"
// @Param       period query string false "1d 5d 1mo 3mo 6mo 1y 2y 5y 10y ytd max (default 1d)"
// @Success     200 {array}  provider.Bar "Bars, oldest first"
// @Failure     400 {object} ErrorResponse "Invalid period"
// @Router      /stocks/{symbol}/history [get]
func (h *StockHandler) GetHistory(c *gin.Context) {
	var q HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	bars, err := h.stockService.GetHistory(c.Request.Context(), c.Param("symbol"), q.Period)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, bars)
}

// RefreshStocks refreshes cached quotes from the price source.
// @Summary     Refresh stock cache
// @Description Fetch quotes for the given symbols, or the default universe (pipeline endpoint)
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       X-API-Key header   string               true  "Pipeline API key"
// @Param       request   body     RefreshStocksRequest false "Symbols"
// @Success     200       {object} RefreshStocksResponse "Refresh outcome"
// @Failure     400       {object} ErrorResponse        "Invalid input"
// @Failure     401       {object} ErrorResponse        "Invalid API key"
// @Router      /pipeline/stocks/refresh [post]
func (h *StockHandler) RefreshStocks(c *gin.Context) {
	var req RefreshStocksRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, invalidInput(err))
			return
		}
	}
	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = services.DefaultSymbols
	}

	res, err := h.stockService.RefreshStocks(c.Request.Context(), symbols)
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp := RefreshStocksResponse{Updated: res.Updated, Failed: make([]string, 0, len(res.Failed))}
	if resp.Updated == nil {
		resp.Updated = []string{}
	}
	for _, f := range res.Failed {
		resp.Failed = append(resp.Failed, f.Symbol)
	}

	h.auditService.Log(0, services.AuditRefreshStocks, "stock", 0, c.ClientIP(), map[string]any{
		"updated": len(resp.Updated),
		"failed":  resp.Failed,
	})
	c.JSON(http.StatusOK, resp)
}

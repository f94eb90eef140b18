package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "papertrade/internal/errors"
	"papertrade/internal/models"
	"papertrade/internal/services"
)

// TradeHandler handles trade execution requests.
type TradeHandler struct {
	tradeService services.TradeServicer
	auditService services.AuditServicer
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(tradeService services.TradeServicer, auditService services.AuditServicer) *TradeHandler {
	return &TradeHandler{tradeService: tradeService, auditService: auditService}
}

// TradeRequest represents a market order. Any price sent by the client is
// ignored; trades fill at the live quote. Type and quantity are checked by
// the trade service so the caller gets INVALID_TRADE_TYPE and
// INVALID_QUANTITY rather than a generic binding error.
type TradeRequest struct {
	Symbol   string          `json:"symbol" binding:"required,symbol"`
	Type     string          `json:"type"`
	Quantity decimal.Decimal `json:"quantity" swaggertype:"integer"`
}

// wholeQuantity converts a requested quantity to a share count, rejecting
// fractions and values outside int64.
func wholeQuantity(q decimal.Decimal) (int64, error) {
	if !q.IsInteger() || !q.IsPositive() {
		return 0, apperrors.ErrInvalidQuantity
	}
	n := q.IntPart()
	if !decimal.NewFromInt(n).Equal(q) {
		return 0, apperrors.ErrInvalidQuantity
	}
	return n, nil
}

// ExecuteTrade handles a buy or sell at the current market price.
// @Summary     Execute a trade
// @Description Buy or sell whole shares at the live market price
// @Tags        trades
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body TradeRequest true "Trade order"
// @Success     201 {object} models.Transaction "Executed trade"
// @Failure     400 {object} ErrorResponse "Invalid order, insufficient balance or shares"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Unknown symbol"
// @Failure     503 {object} ErrorResponse "Market data unavailable"
// @Router      /trades [post]
func (h *TradeHandler) ExecuteTrade(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	quantity, err := wholeQuantity(req.Quantity)
	if err != nil {
		respondWithError(c, err)
		return
	}

	txn, err := h.tradeService.ExecuteTrade(c.Request.Context(), userID, req.Symbol, models.TradeSide(req.Type), quantity)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditTrade, "transaction", txn.ID, c.ClientIP(), map[string]any{
		"symbol":   txn.Symbol,
		"type":     string(txn.Type),
		"quantity": txn.Quantity,
		"price":    txn.Price.String(),
		"total":    txn.Total.String(),
	})
	c.JSON(http.StatusCreated, txn)
}

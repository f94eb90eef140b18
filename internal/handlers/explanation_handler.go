package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"papertrade/internal/services"
)

// ExplanationHandler serves plain-language explanations of financial terms.
type ExplanationHandler struct {
	explanationService services.ExplanationServicer
}

// NewExplanationHandler creates a new ExplanationHandler.
func NewExplanationHandler(explanationService services.ExplanationServicer) *ExplanationHandler {
	return &ExplanationHandler{explanationService: explanationService}
}

// ExplainRequest names the term to explain.
type ExplainRequest struct {
	Term string `json:"term" binding:"required,max=200"`
}

// Explain returns a cached or freshly generated explanation.
// @Summary     Explain a financial term
// @Tags        ai
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ExplainRequest true "Term"
// @Success     200 {object} models.Explanation "Explanation"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /ai/explain [post]
func (h *ExplanationHandler) Explain(c *gin.Context) {
	var req ExplainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	e, err := h.explanationService.Explain(c.Request.Context(), req.Term)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

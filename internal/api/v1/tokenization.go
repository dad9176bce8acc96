package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dinematters/dinematters/internal/api/dto"
	ierr "github.com/dinematters/dinematters/internal/errors"
	"github.com/dinematters/dinematters/internal/logger"
	"github.com/dinematters/dinematters/internal/service"
)

// TokenizationHandler starts card-on-file setup charges for restaurants.
type TokenizationHandler struct {
	tokenizationService service.TokenizationService
	log                 *logger.Logger
}

// NewTokenizationHandler creates a new tokenization handler
func NewTokenizationHandler(tokenizationService service.TokenizationService, log *logger.Logger) *TokenizationHandler {
	return &TokenizationHandler{
		tokenizationService: tokenizationService,
		log:                 log,
	}
}

// Start creates a tokenization attempt and its gateway order
func (h *TokenizationHandler) Start(c *gin.Context) {
	restaurantID := c.Param("id")
	if restaurantID == "" {
		c.Error(ierr.NewError("restaurant id is required").Mark(ierr.ErrValidation))
		return
	}

	var req dto.StartTokenizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorw("failed to bind tokenization request", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.tokenizationService.StartTokenization(c.Request.Context(), restaurantID, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

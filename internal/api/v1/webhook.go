package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	ierr "github.com/dinematters/dinematters/internal/errors"
	"github.com/dinematters/dinematters/internal/logger"
	"github.com/dinematters/dinematters/internal/service"
	"github.com/dinematters/dinematters/internal/types"
)

// WebhookHandler exposes the public gateway webhook endpoint.
type WebhookHandler struct {
	webhookService service.WebhookService
	log            *logger.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhookService service.WebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		log:            log,
	}
}

// Receive handles an inbound gateway notification. The response is sent
// as soon as the event is persisted and enqueued; processing happens
// asynchronously.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read request body").
			Mark(ierr.ErrValidation))
		return
	}
	if len(body) == 0 {
		c.Error(ierr.NewError("empty webhook body").Mark(ierr.ErrValidation))
		return
	}

	signature := c.GetHeader(types.HeaderSignature)

	resp, err := h.webhookService.ReceiveWebhook(c.Request.Context(), body, signature)
	if err != nil {
		h.log.Errorw("webhook intake rejected", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dinematters/dinematters/internal/logger"
	"github.com/dinematters/dinematters/internal/service"
)

// BillingCronHandler exposes the scheduled billing jobs over HTTP so they
// can also be triggered manually by operators.
type BillingCronHandler struct {
	billingService service.BillingService
	retryService   service.RetryService
	webhookService service.WebhookService
	logger         *logger.Logger
}

// NewBillingCronHandler creates a new billing cron handler
func NewBillingCronHandler(
	billingService service.BillingService,
	retryService service.RetryService,
	webhookService service.WebhookService,
	logger *logger.Logger,
) *BillingCronHandler {
	return &BillingCronHandler{
		billingService: billingService,
		retryService:   retryService,
		webhookService: webhookService,
		logger:         logger,
	}
}

// CreateMonthlyLedgers creates ledgers for the elapsed billing period
func (h *BillingCronHandler) CreateMonthlyLedgers(c *gin.Context) {
	h.logger.Infow("starting monthly ledger creation cron job")

	created, err := h.billingService.CreateLedgersForElapsedPeriod(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Errorw("monthly ledger creation failed", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "created": created})
}

// SweepRetries charges every ledger due for another attempt
func (h *BillingCronHandler) SweepRetries(c *gin.Context) {
	h.logger.Infow("starting retry sweep cron job")

	attempted, err := h.retryService.SweepDueRetries(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Errorw("retry sweep failed", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "attempted": attempted})
}

// ReclaimStuckEvents republishes unprocessed webhook events
func (h *BillingCronHandler) ReclaimStuckEvents(c *gin.Context) {
	h.logger.Infow("starting stuck event reclaim cron job")

	reclaimed, err := h.webhookService.ReclaimStuck(c.Request.Context())
	if err != nil {
		h.logger.Errorw("stuck event reclaim failed", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "reclaimed": reclaimed})
}

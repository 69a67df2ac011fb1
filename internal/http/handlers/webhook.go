package handlers

import (
	"io"
	"net/http"

	"github.com/dreamreel/dreamreel-api/internal/billing"
	"github.com/dreamreel/dreamreel-api/internal/payments"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// maxWebhookBody caps webhook payload reads.
const maxWebhookBody = 1 << 20

// WebhookHandler receives payment-provider webhook deliveries.
type WebhookHandler struct {
	sync   *billing.Synchronizer
	secret string
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(sync *billing.Synchronizer, secret string) *WebhookHandler {
	return &WebhookHandler{sync: sync, secret: secret}
}

// Handle verifies the delivery signature and applies the event.
func (h *WebhookHandler) Handle(c *gin.Context) {
	payload, errRead := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if errVerify := payments.VerifySignature(payload, signature, h.secret, payments.DefaultSignatureTolerance); errVerify != nil {
		log.Warnf("webhook signature rejected: %v", errVerify)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	event, errParse := payments.ParseEvent(payload)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if errHandle := h.sync.Handle(c.Request.Context(), event, payload); errHandle != nil {
		log.Errorf("webhook processing error: %v", errHandle)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

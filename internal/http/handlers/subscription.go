package handlers

import (
	"errors"
	"net/http"

	"github.com/dreamreel/dreamreel-api/internal/config"
	"github.com/dreamreel/dreamreel-api/internal/entitlement"
	"github.com/dreamreel/dreamreel-api/internal/ledger"
	"github.com/dreamreel/dreamreel-api/internal/models"
	"github.com/dreamreel/dreamreel-api/internal/payments"
	"github.com/dreamreel/dreamreel-api/internal/tier"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SubscriptionHandler handles subscription state and billing session endpoints.
type SubscriptionHandler struct {
	entitlements *entitlement.Store
	usage        *ledger.Ledger
	table        tier.Table
	payments     *payments.Client
	cfg          config.PaymentsConfig
}

// NewSubscriptionHandler constructs a SubscriptionHandler.
func NewSubscriptionHandler(entitlements *entitlement.Store, usage *ledger.Ledger, table tier.Table, paymentsClient *payments.Client, cfg config.PaymentsConfig) *SubscriptionHandler {
	return &SubscriptionHandler{entitlements: entitlements, usage: usage, table: table, payments: paymentsClient, cfg: cfg}
}

// Current returns the caller's subscription, features, and today's usage.
func (h *SubscriptionHandler) Current(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sub, errCurrent := h.entitlements.Current(c.Request.Context(), userID)
	if errCurrent != nil {
		log.Errorf("subscription lookup error: %v", errCurrent)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscription lookup failed"})
		return
	}

	today := ledger.Today()
	imagesUsed, errImages := h.usage.Count(c.Request.Context(), userID, models.KindImage, today)
	if errImages != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "usage lookup failed"})
		return
	}
	videosUsed, errVideos := h.usage.Count(c.Request.Context(), userID, models.KindVideo, today)
	if errVideos != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "usage lookup failed"})
		return
	}

	features := h.table.Lookup(sub.Tier)
	c.JSON(http.StatusOK, gin.H{
		"subscription": gin.H{
			"tier":      sub.Tier,
			"active":    sub.Active,
			"status":    sub.Status,
			"expiresAt": sub.ExpiresAt,
			"features":  features,
		},
		"usage": gin.H{
			"images": gin.H{"used": imagesUsed, "limit": features.MaxImagesPerDay},
			"videos": gin.H{"used": videosUsed, "limit": features.MaxVideosPerDay},
		},
	})
}

// Plans returns the public paid-plan catalog.
func (h *SubscriptionHandler) Plans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		models.TierBasic: gin.H{
			"id":        h.cfg.BasicPriceID,
			"productId": h.cfg.BasicProductID,
			"name":      "Basic",
			"price":     h.cfg.BasicPriceUSD,
			"features":  h.table.Lookup(models.TierBasic),
		},
		models.TierPremium: gin.H{
			"id":        h.cfg.PremiumPriceID,
			"productId": h.cfg.PremiumProductID,
			"name":      "Premium",
			"price":     h.cfg.PremiumPriceUSD,
			"features":  h.table.Lookup(models.TierPremium),
		},
	})
}

type checkoutRequest struct {
	PriceID    string `json:"priceId"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

// CreateCheckoutSession starts a subscription checkout for a configured price.
func (h *SubscriptionHandler) CreateCheckoutSession(c *gin.Context) {
	var req checkoutRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.PriceID != h.cfg.BasicPriceID && req.PriceID != h.cfg.PremiumPriceID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown priceId"})
		return
	}

	origin := c.GetHeader("Origin")
	if req.SuccessURL == "" && origin != "" {
		req.SuccessURL = origin + "/success?session_id={CHECKOUT_SESSION_ID}"
	}
	if req.CancelURL == "" && origin != "" {
		req.CancelURL = origin + "/canceled"
	}
	if req.SuccessURL == "" || req.CancelURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "successUrl and cancelUrl are required"})
		return
	}

	customerID, errResolve := h.resolveCustomer(c)
	if errResolve != nil {
		log.Errorf("customer resolve error: %v", errResolve)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing account lookup failed"})
		return
	}

	session, errSession := h.payments.CreateCheckoutSession(c.Request.Context(), customerID, req.PriceID, req.SuccessURL, req.CancelURL)
	if errSession != nil {
		log.Errorf("checkout session error: %v", errSession)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "checkout session failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessionId": session.ID, "url": session.URL})
}

type portalRequest struct {
	ReturnURL string `json:"returnUrl"`
}

// CreatePortalSession starts a billing-portal session for an existing customer.
func (h *SubscriptionHandler) CreatePortalSession(c *gin.Context) {
	var req portalRequest
	if c.Request.ContentLength > 0 {
		if errBind := c.ShouldBindJSON(&req); errBind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}
	if req.ReturnURL == "" {
		if origin := c.GetHeader("Origin"); origin != "" {
			req.ReturnURL = origin + "/dashboard"
		}
	}
	if req.ReturnURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "returnUrl is required"})
		return
	}

	userID := getUserID(c)
	customerID, errLookup := h.entitlements.CustomerID(c.Request.Context(), userID)
	if errors.Is(errLookup, entitlement.ErrNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no billing account"})
		return
	}
	if errLookup != nil {
		log.Errorf("customer lookup error: %v", errLookup)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing account lookup failed"})
		return
	}

	session, errSession := h.payments.CreatePortalSession(c.Request.Context(), customerID, req.ReturnURL)
	if errSession != nil {
		log.Errorf("portal session error: %v", errSession)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "portal session failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": session.URL})
}

// resolveCustomer finds the caller's provider customer, creating one when the
// account has never gone through billing.
func (h *SubscriptionHandler) resolveCustomer(c *gin.Context) (string, error) {
	userID := getUserID(c)
	customerID, errLookup := h.entitlements.CustomerID(c.Request.Context(), userID)
	if errLookup != nil && !errors.Is(errLookup, entitlement.ErrNotFound) {
		return "", errLookup
	}
	if customerID != "" {
		return customerID, nil
	}

	customer, errCreate := h.payments.CreateCustomer(c.Request.Context(), getEmail(c), userID)
	if errCreate != nil {
		return "", errCreate
	}
	return customer.ID, nil
}

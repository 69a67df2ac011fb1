package http

import (
	"net/http"

	"github.com/dreamreel/dreamreel-api/internal/identity"
	"github.com/dreamreel/dreamreel-api/internal/limits"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// AdmissionMiddleware rejects generation requests once the account's daily
// quota for the given resource kind is exhausted. It must run after
// AuthMiddleware; the decision is stored in context for handlers.
func AdmissionMiddleware(enforcer *limits.Enforcer, kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		account := accountFromContext(c)
		if account.ID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		decision, errAdmit := enforcer.Admit(c.Request.Context(), account, kind)
		if errAdmit != nil {
			log.Errorf("admission check error: %v", errAdmit)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "limit check failed"})
			return
		}

		if !decision.Allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": decision.Reason,
				"subscription": gin.H{
					"tier":   decision.Tier,
					"active": decision.Active,
				},
				"usage": gin.H{
					"used":  decision.Used,
					"limit": decision.Limit,
				},
			})
			return
		}

		c.Set("admission", decision)
		c.Next()
	}
}

// accountFromContext rebuilds the account set by AuthMiddleware.
func accountFromContext(c *gin.Context) identity.Account {
	var account identity.Account
	if val, exists := c.Get("userID"); exists {
		account.ID, _ = val.(string)
	}
	if val, exists := c.Get("email"); exists {
		account.Email, _ = val.(string)
	}
	return account
}

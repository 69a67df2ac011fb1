package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dreamreel/dreamreel-api/internal/identity"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// AuthMiddleware validates bearer tokens and loads the account into context.
func AuthMiddleware(resolver identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		account, errVerify := resolver.Verify(c.Request.Context(), token)
		if errVerify != nil {
			if errors.Is(errVerify, identity.ErrUnavailable) {
				log.Errorf("identity verification error: %v", errVerify)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "identity service error"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", account.ID)
		c.Set("email", account.Email)
		c.Next()
	}
}

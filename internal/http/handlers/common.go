package handlers

import (
	"github.com/dreamreel/dreamreel-api/internal/limits"
	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context) string {
	val, exists := c.Get("userID")
	if !exists {
		return ""
	}
	userID, _ := val.(string)
	return userID
}

func getEmail(c *gin.Context) string {
	val, exists := c.Get("email")
	if !exists {
		return ""
	}
	email, _ := val.(string)
	return email
}

func getAdmission(c *gin.Context) (limits.Decision, bool) {
	val, exists := c.Get("admission")
	if !exists {
		return limits.Decision{}, false
	}
	decision, ok := val.(limits.Decision)
	return decision, ok
}

package handlers

import (
	"net/http"

	"github.com/dreamreel/dreamreel-api/internal/storage"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ContentHandler serves an account's generated media library.
type ContentHandler struct {
	media *storage.MediaStore
}

// NewContentHandler constructs a ContentHandler.
func NewContentHandler(media *storage.MediaStore) *ContentHandler {
	return &ContentHandler{media: media}
}

// Videos lists the caller's generated videos.
func (h *ContentHandler) Videos(c *gin.Context) {
	videos, errList := h.media.UserVideos(c.Request.Context(), getUserID(c))
	if errList != nil {
		log.Errorf("video list error: %v", errList)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list videos failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

// Images lists the caller's generated images.
func (h *ContentHandler) Images(c *gin.Context) {
	images, errList := h.media.UserImages(c.Request.Context(), getUserID(c))
	if errList != nil {
		log.Errorf("image list error: %v", errList)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list images failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

// All lists the caller's full generated library.
func (h *ContentHandler) All(c *gin.Context) {
	userID := getUserID(c)
	videos, errVideos := h.media.UserVideos(c.Request.Context(), userID)
	if errVideos != nil {
		log.Errorf("video list error: %v", errVideos)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list content failed"})
		return
	}
	images, errImages := h.media.UserImages(c.Request.Context(), userID)
	if errImages != nil {
		log.Errorf("image list error: %v", errImages)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list content failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos, "images": images})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/dreamreel/dreamreel-api/internal/generation"
	"github.com/dreamreel/dreamreel-api/internal/ledger"
	"github.com/dreamreel/dreamreel-api/internal/models"
	"github.com/dreamreel/dreamreel-api/internal/storage"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// GenerationHandler handles image and video generation endpoints.
type GenerationHandler struct {
	videos *generation.VideoClient
	images *generation.ImageClient
	media  *storage.MediaStore
	usage  *ledger.Ledger
}

// NewGenerationHandler constructs a GenerationHandler.
func NewGenerationHandler(videos *generation.VideoClient, images *generation.ImageClient, media *storage.MediaStore, usage *ledger.Ledger) *GenerationHandler {
	return &GenerationHandler{videos: videos, images: images, media: media, usage: usage}
}

type videoRequest struct {
	ImageURL    string `json:"imageUrl"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
}

// GenerateVideoFromImage submits an image-to-video task.
func (h *GenerationHandler) GenerateVideoFromImage(c *gin.Context) {
	var req videoRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.ImageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imageUrl is required"})
		return
	}

	taskID, errGenerate := h.videos.Generate(c.Request.Context(), generation.VideoRequest{
		Prompt:      req.Prompt,
		ImageURL:    req.ImageURL,
		Mode:        models.ModeImageToVideo,
		AspectRatio: req.AspectRatio,
	})
	if errGenerate != nil {
		log.Errorf("video generation error: %v", errGenerate)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "video generation failed"})
		return
	}

	h.recordUsage(c, models.KindVideo)
	c.JSON(http.StatusOK, gin.H{"taskId": taskID})
}

// GenerateVideoFromText submits a text-to-video task.
func (h *GenerationHandler) GenerateVideoFromText(c *gin.Context) {
	var req videoRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	taskID, errGenerate := h.videos.Generate(c.Request.Context(), generation.VideoRequest{
		Prompt:      req.Prompt,
		Mode:        models.ModeTextToVideo,
		AspectRatio: req.AspectRatio,
	})
	if errGenerate != nil {
		log.Errorf("video generation error: %v", errGenerate)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "video generation failed"})
		return
	}

	h.recordUsage(c, models.KindVideo)
	c.JSON(http.StatusOK, gin.H{"taskId": taskID})
}

// VideoStatus polls a task and mirrors finished output into storage.
func (h *GenerationHandler) VideoStatus(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "taskId is required"})
		return
	}

	task, errStatus := h.videos.TaskStatus(c.Request.Context(), taskID)
	if errStatus != nil {
		log.Errorf("video status error: %v", errStatus)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "video status failed"})
		return
	}

	if task.Status == generation.StatusSucceeded && len(task.Output) > 0 {
		providerURL := task.Output[0]
		videoURL := h.finishedVideoURL(c, taskID, task)
		if videoURL != providerURL {
			c.JSON(http.StatusOK, gin.H{"status": task.Status, "videoUrl": videoURL, "originalUrl": providerURL})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": task.Status, "videoUrl": videoURL})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": task.Status, "videoUrl": nil})
}

// finishedVideoURL records a succeeded task exactly once and returns the URL
// the client should use. Storage failures degrade to the provider URL.
func (h *GenerationHandler) finishedVideoURL(c *gin.Context, taskID string, task generation.VideoTask) string {
	userID := getUserID(c)
	providerURL := task.Output[0]

	existing, errFind := h.media.VideoByTask(c.Request.Context(), userID, taskID)
	if errFind == nil {
		if existing.StoredURL != "" {
			return existing.StoredURL
		}
		return existing.SourceURL
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		log.Errorf("video lookup error: %v", errFind)
		return providerURL
	}

	fromImage := task.Input.Mode == models.ModeImageToVideo || task.Input.ImageURL != ""
	stored, errStore := h.media.StoreVideo(c.Request.Context(), userID, taskID, providerURL,
		task.Input.Prompt, task.Input.Mode, task.Input.AspectRatio, fromImage)
	if errStore != nil {
		log.Errorf("video store error: %v", errStore)
		return providerURL
	}
	return stored
}

type imageRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateImage generates images and records them.
func (h *GenerationHandler) GenerateImage(c *gin.Context) {
	var req imageRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	urls, errGenerate := h.images.Generate(c.Request.Context(), req.Prompt)
	if errGenerate != nil {
		log.Errorf("image generation error: %v", errGenerate)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "image generation failed"})
		return
	}

	userID := getUserID(c)
	stored := make([]string, 0, len(urls))
	for _, srcURL := range urls {
		finalURL, errStore := h.media.StoreImage(c.Request.Context(), userID, srcURL, req.Prompt)
		if errStore != nil {
			log.Errorf("image store error: %v", errStore)
			finalURL = srcURL
		}
		stored = append(stored, finalURL)
	}

	h.recordUsage(c, models.KindImage)
	c.JSON(http.StatusOK, gin.H{"images": stored})
}

// recordUsage increments today's counter after a successful submission.
// Failures are logged but never surfaced to the client.
func (h *GenerationHandler) recordUsage(c *gin.Context, kind string) {
	userID := getUserID(c)
	if errIncrement := h.usage.Increment(c.Request.Context(), userID, kind, ledger.Today()); errIncrement != nil {
		log.Errorf("usage increment error: %v", errIncrement)
	}
}

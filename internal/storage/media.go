package storage

import (
	"context"
	"fmt"

	"github.com/dreamreel/dreamreel-api/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Mirrorer copies a source URL into object storage.
type Mirrorer interface {
	MirrorURL(ctx context.Context, srcURL, prefix string) (string, error)
}

// MediaStore persists generated media metadata and mirrors payloads.
type MediaStore struct {
	db       *gorm.DB
	uploader Mirrorer
}

// NewMediaStore constructs a MediaStore. uploader may be nil, in which case
// media is recorded against the provider URL only.
func NewMediaStore(db *gorm.DB, uploader Mirrorer) *MediaStore {
	return &MediaStore{db: db, uploader: uploader}
}

// StoreImage mirrors one generated image and records it.
//
// A mirroring failure degrades to the provider URL: the row is still written
// and the returned URL falls back to srcURL.
func (m *MediaStore) StoreImage(ctx context.Context, userID, srcURL, prompt string) (string, error) {
	storedURL := m.mirror(ctx, srcURL, "images")

	row := models.GeneratedImage{
		UserID:    userID,
		Prompt:    prompt,
		SourceURL: srcURL,
		StoredURL: storedURL,
	}
	if errCreate := m.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return "", fmt.Errorf("storage: record image: %w", errCreate)
	}

	if storedURL == "" {
		return srcURL, nil
	}
	return storedURL, nil
}

// StoreVideo mirrors one generated video and records it.
func (m *MediaStore) StoreVideo(ctx context.Context, userID, taskID, srcURL, prompt, mode, aspectRatio string, fromImage bool) (string, error) {
	storedURL := m.mirror(ctx, srcURL, "videos")

	row := models.GeneratedVideo{
		UserID:      userID,
		TaskID:      taskID,
		Prompt:      prompt,
		Mode:        mode,
		AspectRatio: aspectRatio,
		FromImage:   fromImage,
		SourceURL:   srcURL,
		StoredURL:   storedURL,
	}
	if errCreate := m.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return "", fmt.Errorf("storage: record video: %w", errCreate)
	}

	if storedURL == "" {
		return srcURL, nil
	}
	return storedURL, nil
}

// VideoByTask returns the recorded video for one provider task, if present.
func (m *MediaStore) VideoByTask(ctx context.Context, userID, taskID string) (models.GeneratedVideo, error) {
	var video models.GeneratedVideo
	errFind := m.db.WithContext(ctx).
		Where("user_id = ? AND task_id = ?", userID, taskID).
		First(&video).Error
	if errFind != nil {
		return models.GeneratedVideo{}, errFind
	}
	return video, nil
}

// UserImages lists an account's generated images, newest first.
func (m *MediaStore) UserImages(ctx context.Context, userID string) ([]models.GeneratedImage, error) {
	var images []models.GeneratedImage
	errFind := m.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&images).Error
	if errFind != nil {
		return nil, fmt.Errorf("storage: list images: %w", errFind)
	}
	return images, nil
}

// UserVideos lists an account's generated videos, newest first.
func (m *MediaStore) UserVideos(ctx context.Context, userID string) ([]models.GeneratedVideo, error) {
	var videos []models.GeneratedVideo
	errFind := m.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&videos).Error
	if errFind != nil {
		return nil, fmt.Errorf("storage: list videos: %w", errFind)
	}
	return videos, nil
}

func (m *MediaStore) mirror(ctx context.Context, srcURL, prefix string) string {
	if m.uploader == nil {
		return ""
	}
	storedURL, errMirror := m.uploader.MirrorURL(ctx, srcURL, prefix)
	if errMirror != nil {
		log.WithError(errMirror).WithField("src", srcURL).Warn("media mirror failed, keeping provider url")
		return ""
	}
	return storedURL
}

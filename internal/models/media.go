package models

import "time"

// Video generation modes.
const (
	// ModeTextToVideo generates a video from a text prompt only.
	ModeTextToVideo = "text_to_video"
	// ModeImageToVideo animates a source image guided by a prompt.
	ModeImageToVideo = "image_to_video"
)

// GeneratedImage records a stored generated image for an account.
type GeneratedImage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID string `gorm:"type:text;not null;index"` // Owning account ID.
	Prompt string `gorm:"type:text"`                // Prompt used for generation.

	SourceURL string `gorm:"type:text;not null"` // Provider-issued URL.
	StoredURL string `gorm:"type:text"`          // Object-storage URL; empty when mirroring failed.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}

// GeneratedVideo records a stored generated video for an account.
type GeneratedVideo struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID string `gorm:"type:text;not null;index"` // Owning account ID.
	TaskID string `gorm:"type:text;index"`          // Generation-provider task ID.

	Prompt      string `gorm:"type:text"`                              // Prompt used for generation.
	Mode        string `gorm:"type:text;default:'text_to_video'"`      // text_to_video or image_to_video.
	AspectRatio string `gorm:"type:text;default:'16:9'"`               // Requested aspect ratio.
	FromImage   bool   `gorm:"column:from_image;not null;default:false"` // Whether a source image was supplied.

	SourceURL string `gorm:"type:text;not null"` // Provider-issued URL.
	StoredURL string `gorm:"type:text"`          // Object-storage URL; empty when mirroring failed.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}

// Package storage mirrors generated media into object storage and tracks it.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// maxMirrorBytes caps how much media is pulled from a provider URL.
const maxMirrorBytes = 512 << 20

// Config holds object-storage settings.
type Config struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
	UsePathStyle  bool
}

// Uploader copies media from provider URLs into the bucket.
type Uploader struct {
	cfg        Config
	client     *s3.Client
	httpClient *http.Client
}

// NewUploader constructs an Uploader and validates its configuration.
func NewUploader(cfg Config) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("storage: region is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("storage: credentials are required")
	}
	if cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("storage: public base url is required")
	}

	options := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		options.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return &Uploader{
		cfg:    cfg,
		client: s3.New(options),
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}, nil
}

// MirrorURL fetches media from a provider URL, stores it under the given
// prefix, and returns the public URL of the stored object.
func (u *Uploader) MirrorURL(ctx context.Context, srcURL, prefix string) (string, error) {
	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if errReq != nil {
		return "", fmt.Errorf("storage: build fetch request: %w", errReq)
	}

	resp, errDo := u.httpClient.Do(req)
	if errDo != nil {
		return "", fmt.Errorf("storage: fetch source: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("storage: fetch source: status %d", resp.StatusCode)
	}

	data, errRead := io.ReadAll(io.LimitReader(resp.Body, maxMirrorBytes))
	if errRead != nil {
		return "", fmt.Errorf("storage: read source: %w", errRead)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("storage: source is empty")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := u.objectKey(prefix, contentType)
	_, errPut := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if errPut != nil {
		return "", fmt.Errorf("storage: put object: %w", errPut)
	}

	return strings.TrimRight(u.cfg.PublicBaseURL, "/") + "/" + key, nil
}

func (u *Uploader) objectKey(prefix, contentType string) string {
	now := time.Now().UTC()
	cleaned := strings.Trim(prefix, "/")
	return path.Join(cleaned, fmt.Sprintf("%04d/%02d/%02d", now.Year(), now.Month(), now.Day()), uuid.NewString()+extensionFromContentType(contentType))
}

func extensionFromContentType(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	default:
		return ".bin"
	}
}

package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ImageClient generates images through the image provider API.
type ImageClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewImageClient constructs an ImageClient. An empty baseURL targets the
// provider's public host.
func NewImageClient(apiKey, baseURL string) *ImageClient {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	return &ImageClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   "gemini-pro-vision",
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type imageRequest struct {
	Prompt struct {
		Text string `json:"text"`
	} `json:"prompt"`
	Model string `json:"model"`
}

type imageResponse struct {
	Images []string `json:"images"`
}

// Generate produces images for a prompt and returns their provider URLs.
func (c *ImageClient) Generate(ctx context.Context, prompt string) ([]string, error) {
	var req imageRequest
	req.Prompt.Text = prompt
	req.Model = c.model

	body, errMarshal := json.Marshal(req)
	if errMarshal != nil {
		return nil, fmt.Errorf("generation: encode image request: %w", errMarshal)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, errReq := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if errReq != nil {
		return nil, fmt.Errorf("generation: build request: %w", errReq)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, errDo := c.httpClient.Do(httpReq)
	if errDo != nil {
		return nil, fmt.Errorf("generation: image provider: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("generation: image provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var decoded imageResponse
	if errDecode := json.NewDecoder(resp.Body).Decode(&decoded); errDecode != nil {
		return nil, fmt.Errorf("generation: decode images: %w", errDecode)
	}
	return decoded.Images, nil
}

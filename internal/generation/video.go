// Package generation wraps the third-party generation provider APIs.
//
// Providers are opaque job-submission/polling services; this package only
// shuttles requests and task state, it owns no generation semantics.
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

// Task statuses reported by the video provider.
const (
	// StatusSucceeded marks a finished task with output available.
	StatusSucceeded = "SUCCEEDED"
	// StatusFailed marks a task the provider gave up on.
	StatusFailed = "FAILED"
)

// DefaultVideoModel is the provider model used for all video tasks.
const DefaultVideoModel = "gen4_turbo"

// VideoRequest describes one video generation task.
type VideoRequest struct {
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
	ImageURL    string `json:"image_url,omitempty"`
	Mode        string `json:"mode"`
	AspectRatio string `json:"aspect_ratio"`
}

// VideoTask is the provider's task state.
type VideoTask struct {
	TaskID string   `json:"task_id"`
	Status string   `json:"status"`
	Output []string `json:"-"`
	Input  struct {
		Prompt      string `json:"prompt"`
		ImageURL    string `json:"image_url"`
		Mode        string `json:"mode"`
		AspectRatio string `json:"aspect_ratio"`
	} `json:"input"`
}

// videoTaskWire tolerates the provider returning output as a string or array.
type videoTaskWire struct {
	VideoTask
	RawOutput json.RawMessage `json:"output"`
}

// VideoClient submits and polls video generation tasks.
type VideoClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewVideoClient constructs a VideoClient. An empty baseURL targets the
// provider's public host.
func NewVideoClient(apiKey, baseURL string) *VideoClient {
	if baseURL == "" {
		baseURL = "https://api.runwayml.com"
	}
	return &VideoClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Generate submits a video task and returns its task ID.
func (c *VideoClient) Generate(ctx context.Context, req VideoRequest) (string, error) {
	if req.Model == "" {
		req.Model = DefaultVideoModel
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "16:9"
	}

	body, errMarshal := json.Marshal(req)
	if errMarshal != nil {
		return "", fmt.Errorf("generation: encode video request: %w", errMarshal)
	}

	httpReq, errReq := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generationTasks", bytes.NewReader(body))
	if errReq != nil {
		return "", fmt.Errorf("generation: build request: %w", errReq)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	task, errDo := c.doTask(httpReq)
	if errDo != nil {
		return "", errDo
	}
	if task.TaskID == "" {
		return "", fmt.Errorf("generation: provider returned no task id")
	}
	return task.TaskID, nil
}

// TaskStatus fetches the current state of a task.
func (c *VideoClient) TaskStatus(ctx context.Context, taskID string) (VideoTask, error) {
	httpReq, errReq := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/generationTasks/"+taskID, nil)
	if errReq != nil {
		return VideoTask{}, fmt.Errorf("generation: build request: %w", errReq)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.doTask(httpReq)
}

func (c *VideoClient) doTask(req *http.Request) (VideoTask, error) {
	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return VideoTask{}, fmt.Errorf("generation: video provider: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return VideoTask{}, fmt.Errorf("generation: video provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var wire videoTaskWire
	if errDecode := json.NewDecoder(resp.Body).Decode(&wire); errDecode != nil {
		return VideoTask{}, fmt.Errorf("generation: decode task: %w", errDecode)
	}

	task := wire.VideoTask
	task.Output = decodeOutput(wire.RawOutput)
	return task, nil
}

// decodeOutput accepts either a JSON string or an array of strings.
func decodeOutput(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if errList := json.Unmarshal(raw, &list); errList == nil {
		return list
	}
	var single string
	if errSingle := json.Unmarshal(raw, &single); errSingle == nil && single != "" {
		return []string{single}
	}
	return nil
}

package nanobanana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/reelforge/reelforge-backend/pkg/errors"
)

const (
	defaultBaseURL     = "https://api.nanobananaapi.ai/api/v1/nanobanana"
	aspectRatioReel    = "9:16"
	errorBodyReadLimit = 1024
)

var errAPIKeyRequired = errors.New("nanobanana api key is required")

// Task states reported by the generation API.
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// Client wraps the NanoBanana image generation API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the NanoBanana client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// GenerationRequest describes one image generation submission.
type GenerationRequest struct {
	Prompt             string
	Model              string
	ReferenceImageURLs []string
}

// TaskStatus is the polled state of a generation task.
type TaskStatus struct {
	Status   string
	ImageURL string
	Error    string
}

// Terminal reports whether the task has finished, successfully or not.
func (t TaskStatus) Terminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

type generateRequest struct {
	Prompt             string   `json:"prompt"`
	Model              string   `json:"model,omitempty"`
	ReferenceImageURLs []string `json:"reference_image_urls,omitempty"`
	AspectRatio        string   `json:"aspect_ratio"`
}

// SubmitGeneration enqueues an image generation and returns its task ID.
func (c *Client) SubmitGeneration(ctx context.Context, req GenerationRequest) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "nanobanana client not configured")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "generation prompt is required")
	}

	payload, err := json.Marshal(generateRequest{
		Prompt:             req.Prompt,
		Model:              req.Model,
		ReferenceImageURLs: req.ReferenceImageURLs,
		AspectRatio:        aspectRatioReel,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal generation request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL("generate"), bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build generation request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute generation request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "generation submit failed")
	}

	var apiResp struct {
		TaskID string `json:"task_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode generation response")
	}
	if apiResp.TaskID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "generation response missing task_id")
	}

	return apiResp.TaskID, nil
}

// GetTaskStatus fetches the current state of a generation task.
func (c *Client) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "nanobanana client not configured")
	}
	trimmed := strings.TrimSpace(taskID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "task ID is required")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL("tasks/"+url.PathEscape(trimmed)), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build task status request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute task status request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "task status request failed")
	}

	var apiResp struct {
		Status   string `json:"status"`
		ImageURL string `json:"image_url"`
		Error    string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode task status response")
	}

	return &TaskStatus{
		Status:   apiResp.Status,
		ImageURL: apiResp.ImageURL,
		Error:    apiResp.Error,
	}, nil
}

// ValidateKey probes the balance endpoint. It returns false only when the
// API rejects the key itself.
func (c *Client) ValidateKey(ctx context.Context) (bool, error) {
	if c == nil {
		return false, pkgerrors.New(pkgerrors.CodeDependency, "nanobanana client not configured")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL("balance"), nil)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build balance request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute balance request")
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyReadLimit))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, nil
	case resp.StatusCode >= 500:
		return false, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("nanobanana status %d during key validation", resp.StatusCode))
	default:
		return true, nil
	}
}

func (c *Client) buildURL(path string) string {
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/reelforge/reelforge-backend/pkg/errors"
)

const (
	defaultBaseURL         = "https://api.anthropic.com"
	defaultModel           = "claude-sonnet-4-20250514"
	defaultMaxTokens       = 4096
	apiVersion             = "2023-06-01"
	errorBodyReadLimit     = 1024
	defaultRequestTimeout  = 90 * time.Second
	validateRequestTimeout = 15 * time.Second
)

var errAPIKeyRequired = errors.New("anthropic api key is required")

// Client wraps the Anthropic Messages API used for script generation.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
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

// WithModel overrides the model used for script generation.
func WithModel(model string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(model)
		if trimmed != "" {
			c.model = trimmed
		}
	}
}

// WithMaxTokens overrides the completion token cap.
func WithMaxTokens(maxTokens int) Option {
	return func(c *Client) {
		if maxTokens > 0 {
			c.maxTokens = maxTokens
		}
	}
}

// NewClient builds the Anthropic client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		maxTokens:  defaultMaxTokens,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// ScriptRequest describes the inputs for a scene script.
type ScriptRequest struct {
	Captions   string
	StyleHints string
	NumScenes  int
}

// Scene is one timed beat of the generated script.
type Scene struct {
	Number          int     `json:"number"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	VisualPrompt    string  `json:"visualPrompt"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// Script is the structured scene plan returned by the model.
type Script struct {
	Title         string  `json:"title"`
	Theme         string  `json:"theme"`
	TotalDuration float64 `json:"totalDuration"`
	Scenes        []Scene `json:"scenes"`
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// GenerateScript asks the model for a timed scene breakdown of the captions.
func (c *Client) GenerateScript(ctx context.Context, req ScriptRequest) (*Script, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "anthropic client not configured")
	}
	if strings.TrimSpace(req.Captions) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "captions are required")
	}

	text, err := c.complete(ctx, buildScriptPrompt(req))
	if err != nil {
		return nil, err
	}

	script, err := parseScript(text)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse script response")
	}

	return script, nil
}

// ValidateKey probes the Messages API with a minimal request. It returns
// false only when the API rejects the key itself.
func (c *Client) ValidateKey(ctx context.Context) (bool, error) {
	if c == nil {
		return false, pkgerrors.New(pkgerrors.CodeDependency, "anthropic client not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, validateRequestTimeout)
	defer cancel()

	payload := messageRequest{
		Model:     c.model,
		MaxTokens: 1,
		Messages:  []message{{Role: "user", Content: "ping"}},
	}

	resp, err := c.post(ctx, payload)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyReadLimit))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, nil
	case resp.StatusCode >= 500:
		return false, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("anthropic status %d during key validation", resp.StatusCode))
	default:
		return true, nil
	}
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	payload := messageRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	}

	resp, err := c.post(ctx, payload)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "anthropic request failed")
	}

	var apiResp messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode anthropic response")
	}

	for _, block := range apiResp.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeDependency, "anthropic response contained no text content")
}

func (c *Client) post(ctx context.Context, payload messageRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal anthropic request")
	}

	url := strings.TrimRight(c.baseURL, "/") + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build anthropic request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute anthropic request")
	}
	return resp, nil
}

func buildScriptPrompt(req ScriptRequest) string {
	var b strings.Builder
	b.WriteString("You are a short-form video director. Break the following captions into a timed scene script for a vertical reel.\n\n")
	b.WriteString("Captions:\n")
	b.WriteString(req.Captions)
	b.WriteString("\n\n")
	if strings.TrimSpace(req.StyleHints) != "" {
		b.WriteString("Style hints: ")
		b.WriteString(req.StyleHints)
		b.WriteString("\n\n")
	}
	if req.NumScenes > 0 {
		fmt.Fprintf(&b, "Produce exactly %d scenes.\n\n", req.NumScenes)
	}
	b.WriteString(`Respond with ONLY a JSON object, no prose before or after, in this shape:
{
  "title": "short project title",
  "theme": "one-line visual theme",
  "totalDuration": 30,
  "scenes": [
    {
      "number": 1,
      "title": "scene title",
      "description": "what happens on screen",
      "visualPrompt": "detailed prompt for an image generator, consistent with the theme",
      "durationSeconds": 2.5
    }
  ]
}`)
	return b.String()
}

// parseScript extracts the first JSON object from the model output. Models
// occasionally wrap the JSON in markdown fences or a sentence of prose.
func parseScript(text string) (*Script, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var script Script
	if err := json.Unmarshal([]byte(text[start:end+1]), &script); err != nil {
		return nil, fmt.Errorf("unmarshal script: %w", err)
	}

	if strings.TrimSpace(script.Title) == "" {
		return nil, fmt.Errorf("script is missing a title")
	}
	if len(script.Scenes) == 0 {
		return nil, fmt.Errorf("script contains no scenes")
	}

	total := 0.0
	for i := range script.Scenes {
		script.Scenes[i].Number = i + 1
		if script.Scenes[i].DurationSeconds <= 0 {
			return nil, fmt.Errorf("scene %d has non-positive duration", i+1)
		}
		total += script.Scenes[i].DurationSeconds
	}
	if script.TotalDuration <= 0 {
		script.TotalDuration = total
	}

	return &script, nil
}

package recognition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rollcall/internal/services"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	recognizePath      = "/recognize"
)

// Result is one recognition verdict. It is consumed immediately by the
// capture loop and never persisted.
type Result struct {
	Success    bool    `json:"success"`
	Recognized bool    `json:"recognized"`
	UserID     int64   `json:"user_id"`
	Confidence float64 `json:"confidence"`
	Distance   float64 `json:"distance"`
	IsReal     bool    `json:"is_real"`
	Error      string  `json:"error,omitempty"`
}

// Client wraps the face recognition service API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes the recognition client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient constructs a recognition service client.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "recognition", "new client", "base URL required", nil)
	}

	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Recognize submits one JPEG frame for identification against the session's
// enrolled faces. The frame travels base64-encoded without a data-URI prefix.
func (c *Client) Recognize(ctx context.Context, frame []byte, sessionID int64, threshold float64) (*Result, error) {
	if len(frame) == 0 {
		return nil, services.Wrap(services.ErrValidation, "recognition", "recognize", "empty frame", nil)
	}

	payload := map[string]any{
		"image":      base64.StdEncoding.EncodeToString(frame),
		"session_id": sessionID,
		"threshold":  threshold,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode recognize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+recognizePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build recognize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "recognition", "recognize", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, services.Wrap(services.ErrTransient, "recognition", "recognize",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, services.Wrap(services.ErrTransient, "recognition", "recognize", "decode response", err)
	}
	return &result, nil
}

package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rollcall/internal/api"
)

// Client talks to the rollcall daemon control API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (primarily for tests).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New creates a control API client for the daemon at addr, which may be a
// bare host:port or a full URL. token may be empty when the daemon runs
// without API authentication.
func New(addr, token string, opts ...Option) (*Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("daemon address required")
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	client := &Client{
		baseURL:    strings.TrimRight(addr, "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var status api.DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// StartCapture asks the daemon to begin a capture run for the session.
func (c *Client) StartCapture(ctx context.Context, sessionID int64) (*api.RunStatus, error) {
	var resp api.CaptureStartResponse
	err := c.do(ctx, http.MethodPost, "/api/capture/start", api.CaptureStartRequest{SessionID: sessionID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Run, nil
}

// StopCapture cancels the active run. It reports whether one was scanning.
func (c *Client) StopCapture(ctx context.Context) (bool, error) {
	var resp api.CaptureStopResponse
	if err := c.do(ctx, http.MethodPost, "/api/capture/stop", struct{}{}, &resp); err != nil {
		return false, err
	}
	return resp.Stopped, nil
}

// History fetches journaled runs. limit bounds the result when sessionID is
// zero; otherwise all runs for that session are returned.
func (c *Client) History(ctx context.Context, limit int, sessionID int64) ([]api.HistoryEntry, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if sessionID > 0 {
		query.Set("session", strconv.FormatInt(sessionID, 10))
	}
	path := "/api/history"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp api.HistoryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// Login authenticates the daemon's LMS client.
func (c *Client) Login(ctx context.Context, email, password string, rememberMe bool) (*api.User, error) {
	var resp api.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/login", api.LoginRequest{
		Email:      email,
		Password:   password,
		RememberMe: rememberMe,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Logout clears the daemon's stored credentials.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/logout", struct{}{}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var apiErr api.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

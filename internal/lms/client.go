package lms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"rollcall/internal/logging"
	"rollcall/internal/services"
)

const (
	defaultTimeout  = 15 * time.Second
	headerSessionID = "X-Session-ID"
)

// Client talks to the LMS REST backend. Every request is decorated with the
// stored credential pair, and 401 responses are recovered through a single
// coordinated token refresh before the request is resubmitted once.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialStore
	logger     *slog.Logger
	onExpired  func()

	refresh refreshGroup
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. The client should carry
// a cookie jar if refresh-token cookies are expected to survive.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger; a no-op logger is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "lms")
		}
	}
}

// WithSessionExpiredHook registers a callback invoked once whenever the
// refresh protocol gives up and credentials are cleared. This is the kiosk
// equivalent of the forced redirect to the login screen.
func WithSessionExpiredHook(hook func()) Option {
	return func(c *Client) {
		c.onExpired = hook
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

// NewClient constructs an LMS client rooted at baseURL, storing credentials
// in creds.
func NewClient(baseURL string, creds CredentialStore, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "lms", "new client", "base URL required", nil)
	}
	if creds == nil {
		creds = NewMemoryStore()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout, Jar: jar},
		creds:      creds,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// User identifies an LMS account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// LoginResult is returned by Login.
type LoginResult struct {
	User      User   `json:"user"`
	Access    string `json:"access"`
	SessionID string `json:"session_id"`
	ExpiresIn int    `json:"expires_in"`
}

// Class is a course the kiosk can serve sessions for.
type Class struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Lecturer string `json:"lecturer_name"`
}

// ClassSession is a scheduled meeting attendance is taken for.
type ClassSession struct {
	ID        int64  `json:"id"`
	ClassID   int64  `json:"class_id"`
	Title     string `json:"title"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// AttendanceResult is returned by MarkAttendance.
type AttendanceResult struct {
	Success    bool   `json:"success"`
	User       User   `json:"user"`
	JoinedTime string `json:"joined_time"`
	Error      string `json:"error,omitempty"`
}

// Login authenticates and stores the returned credential pair.
func (c *Client) Login(ctx context.Context, email, password string, rememberMe bool) (*LoginResult, error) {
	payload := map[string]any{
		"email":       email,
		"password":    password,
		"remember_me": rememberMe,
	}

	var result LoginResult
	if err := c.do(ctx, http.MethodPost, "/login/", payload, &result); err != nil {
		return nil, err
	}
	if result.Access == "" || result.SessionID == "" {
		return nil, services.Wrap(services.ErrTransient, "lms", "login", "incomplete credential pair in response", nil)
	}

	if err := c.creds.Save(Credentials{AccessToken: result.Access, SessionID: result.SessionID}); err != nil {
		return nil, err
	}
	c.logger.Info("logged in", logging.String("role", result.User.Role), logging.Int64("user_id", result.User.ID))
	return &result, nil
}

// Logout invalidates the server-side session and clears stored credentials.
// Credentials are cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	creds, err := c.creds.Load()
	if err != nil {
		return err
	}
	if !creds.Valid() {
		return ErrUnauthenticated
	}

	callErr := c.do(ctx, http.MethodPost, "/logout/", map[string]any{}, nil)
	if err := c.creds.Clear(); err != nil {
		return err
	}
	return callErr
}

// MarkAttendance records a recognized student's presence for a session.
func (c *Client) MarkAttendance(ctx context.Context, sessionID, userID int64, confidence, distance float64) (*AttendanceResult, error) {
	payload := map[string]any{
		"session_id": sessionID,
		"user_id":    userID,
		"confidence": confidence,
		"distance":   distance,
	}

	var result AttendanceResult
	if err := c.do(ctx, http.MethodPost, "/attendances/mark-with-face/", payload, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		message := result.Error
		if message == "" {
			message = "attendance rejected"
		}
		return nil, services.Wrap(services.ErrValidation, "lms", "mark attendance", message, nil)
	}
	return &result, nil
}

// ListClasses fetches the classes visible to the logged-in account.
func (c *Client) ListClasses(ctx context.Context) ([]Class, error) {
	var classes []Class
	if err := c.do(ctx, http.MethodGet, "/classes/", nil, &classes); err != nil {
		return nil, err
	}
	return classes, nil
}

// ListSessions fetches the sessions of a class.
func (c *Client) ListSessions(ctx context.Context, classID int64) ([]ClassSession, error) {
	path := fmt.Sprintf("/sessions/?class_id=%d", classID)
	var sessions []ClassSession
	if err := c.do(ctx, http.MethodGet, path, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Credentials returns the currently stored credential pair.
func (c *Client) Credentials() (Credentials, error) {
	return c.creds.Load()
}

// do sends one logical request. On a 401 it runs the refresh protocol and
// resubmits the request exactly once with the new token.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return c.send(ctx, method, path, body, out, false)
}

func (c *Client) send(ctx context.Context, method, path string, body, out any, retried bool) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "lms", method+" "+path, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		if retried {
			// Single-retry guarantee: a request that failed again after a
			// refresh is surfaced, never retried a second time.
			return services.Wrap(services.ErrUnauthorized, "lms", method+" "+path, "still unauthorized after refresh", nil)
		}
		if _, err := c.refreshAccessToken(ctx); err != nil {
			return err
		}
		// Rebuilding the request re-reads the stored credentials, so the
		// resubmission carries the refreshed token.
		return c.send(ctx, method, path, body, out, true)
	}

	return decodeResponse(resp, method, path, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Absent credentials are not an error here; the request goes out as-is
	// and the server decides.
	creds, err := c.creds.Load()
	if err != nil {
		return nil, err
	}
	if creds.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	}
	if creds.SessionID != "" {
		req.Header.Set(headerSessionID, creds.SessionID)
	}
	return req, nil
}

func decodeResponse(resp *http.Response, method, path string, out any) error {
	operation := method + " " + path

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		message := extractErrorMessage(body)
		if message == "" {
			message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		marker := services.ErrValidation
		switch {
		case resp.StatusCode == http.StatusNotFound:
			marker = services.ErrNotFound
		case resp.StatusCode >= 500:
			marker = services.ErrTransient
		}
		return services.Wrap(marker, "lms", operation, message, nil)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrTransient, "lms", operation, "decode response", err)
	}
	return nil
}

// extractErrorMessage pulls the human-readable message out of the backend's
// structured error bodies ({"error": ...}, {"detail": ...}, {"message": ...}).
func extractErrorMessage(body []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	for _, candidate := range []string{parsed.Error, parsed.Detail, parsed.Message} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

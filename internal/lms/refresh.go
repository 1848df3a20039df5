package lms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"rollcall/internal/logging"
)

const refreshPath = "/token/refresh/"

// refreshGroup coordinates the single-flight refresh: however many requests
// hit a 401 concurrently, at most one refresh call is in flight, and every
// waiter receives the outcome of that one call.
type refreshGroup struct {
	mu       sync.Mutex
	inFlight bool
	waiters  []chan refreshOutcome
}

type refreshOutcome struct {
	token string
	err   error
}

// refreshAccessToken returns a fresh access token, either by joining an
// in-flight refresh or by performing one. On failure the stored credentials
// are cleared and the session-expired hook fires; every waiter sees the same
// error.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	c.refresh.mu.Lock()
	if c.refresh.inFlight {
		waiter := make(chan refreshOutcome, 1)
		c.refresh.waiters = append(c.refresh.waiters, waiter)
		c.refresh.mu.Unlock()

		select {
		case outcome := <-waiter:
			return outcome.token, outcome.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	// The flag is raised before the refresh call is dispatched so a 401
	// arriving in the meantime queues instead of starting a second refresh.
	c.refresh.inFlight = true
	c.refresh.mu.Unlock()

	token, err := c.callRefreshEndpoint(ctx)

	c.refresh.mu.Lock()
	waiters := c.refresh.waiters
	c.refresh.waiters = nil
	c.refresh.inFlight = false
	c.refresh.mu.Unlock()

	outcome := refreshOutcome{token: token, err: err}
	for _, waiter := range waiters {
		waiter <- outcome
	}

	if err != nil {
		c.expireSession(err)
		return "", err
	}
	return token, nil
}

// callRefreshEndpoint performs the actual refresh call. It deliberately
// bypasses the 401 interception in send: a 401 from the refresh endpoint is
// terminal, never a trigger for another refresh.
func (c *Client) callRefreshEndpoint(ctx context.Context) (string, error) {
	creds, err := c.creds.Load()
	if err != nil {
		return "", err
	}
	if creds.SessionID == "" {
		return "", ErrSessionMissing
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, strings.NewReader("{}"))
	if err != nil {
		return "", fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// The refresh secret itself travels as a cookie scoped to this session
	// id; only the correlator goes in a header.
	req.Header.Set(headerSessionID, creds.SessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		message := extractErrorMessage(body)
		if message == "" {
			message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("%w: %s", ErrRefreshFailed, message)
	}

	var payload struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrRefreshFailed, err)
	}
	if payload.Access == "" {
		return "", fmt.Errorf("%w: empty access token in response", ErrRefreshFailed)
	}

	if err := c.creds.Save(Credentials{AccessToken: payload.Access, SessionID: creds.SessionID}); err != nil {
		return "", err
	}
	c.logger.Debug("access token refreshed", logging.String("session_id", creds.SessionID))
	return payload.Access, nil
}

// expireSession clears credentials and notifies the owner that the session
// is gone. Continuing with a stale credential is unsafe, so this always
// escalates rather than being swallowed.
func (c *Client) expireSession(cause error) {
	if err := c.creds.Clear(); err != nil {
		c.logger.Warn("failed to clear credentials", logging.Error(err))
	}
	c.logger.Warn("session expired, credentials cleared", logging.Error(cause))
	if c.onExpired != nil {
		c.onExpired()
	}
}

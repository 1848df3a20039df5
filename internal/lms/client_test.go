package lms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"rollcall/internal/services"
)

func seedCreds(t *testing.T, store CredentialStore, token, session string) {
	t.Helper()
	if err := store.Save(Credentials{AccessToken: token, SessionID: session}); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}
}

func newTestClient(t *testing.T, serverURL string, store CredentialStore, opts ...Option) *Client {
	t.Helper()
	client, err := NewClient(serverURL, store, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

// Three concurrent requests all hit 401 while no refresh is in flight;
// exactly one refresh call is made and every request is replayed with the
// new token.
func TestSingleRefreshUnderContention(t *testing.T) {
	const concurrency = 3

	var refreshCalls atomic.Int64
	var rejected atomic.Int64
	allRejected := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/classes/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer newtoken" {
			if rejected.Add(1) == concurrency {
				close(allRejected)
			}
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"name":"Distributed Systems"}]`))
	})
	mux.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		// Hold the refresh response until every request has been rejected,
		// so all three are provably queued behind one refresh.
		<-allRejected
		refreshCalls.Add(1)
		if got := r.Header.Get("X-Session-ID"); got != "sess-1" {
			t.Errorf("refresh session id = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access":"newtoken"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewMemoryStore()
	seedCreds(t, store, "staletoken", "sess-1")
	client := newTestClient(t, server.URL, store)

	var wg sync.WaitGroup
	errs := make([]error, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.ListClasses(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
	creds, _ := store.Load()
	if creds.AccessToken != "newtoken" {
		t.Fatalf("stored token = %q, want newtoken", creds.AccessToken)
	}
}

// A request that still gets 401 after the refresh is surfaced, not retried
// a second time.
func TestNoDoubleRetry(t *testing.T) {
	var protectedCalls, refreshCalls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/classes/", func(w http.ResponseWriter, r *http.Request) {
		protectedCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		_, _ = w.Write([]byte(`{"access":"newtoken"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewMemoryStore()
	seedCreds(t, store, "staletoken", "sess-1")
	client := newTestClient(t, server.URL, store)

	_, err := client.ListClasses(context.Background())
	if !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if got := protectedCalls.Load(); got != 2 {
		t.Fatalf("protected endpoint called %d times, want 2", got)
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
}

// A 401 from the refresh endpoint itself is terminal: credentials are
// cleared, the session-expired hook fires once, and no further refresh is
// attempted.
func TestRefreshRejectionIsTerminal(t *testing.T) {
	var refreshCalls atomic.Int64
	var hookFired atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/classes/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"refresh token expired"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewMemoryStore()
	seedCreds(t, store, "staletoken", "sess-1")
	client := newTestClient(t, server.URL, store, WithSessionExpiredHook(func() {
		hookFired.Add(1)
	}))

	_, err := client.ListClasses(context.Background())
	if !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("expected refresh failure, got %v", err)
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
	if got := hookFired.Load(); got != 1 {
		t.Fatalf("session-expired hook fired %d times, want 1", got)
	}
	creds, _ := store.Load()
	if creds.Valid() {
		t.Fatalf("credentials should be cleared, got %+v", creds)
	}
}

// Concurrent requests queued behind a failing refresh all fail together.
func TestWaitersFailWithRefresh(t *testing.T) {
	const concurrency = 3

	var rejected atomic.Int64
	allRejected := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/classes/", func(w http.ResponseWriter, r *http.Request) {
		if rejected.Add(1) == concurrency {
			close(allRejected)
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		<-allRejected
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewMemoryStore()
	seedCreds(t, store, "staletoken", "sess-1")
	client := newTestClient(t, server.URL, store)

	var wg sync.WaitGroup
	errs := make([]error, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.ListClasses(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, ErrRefreshFailed) {
			t.Fatalf("request %d: expected refresh failure, got %v", i, err)
		}
	}
}

// A refresh attempted without a stored session id is terminal.
func TestRefreshWithoutSessionID(t *testing.T) {
	var refreshCalls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/classes/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, NewMemoryStore())

	_, err := client.ListClasses(context.Background())
	if !errors.Is(err, ErrSessionMissing) {
		t.Fatalf("expected session-missing error, got %v", err)
	}
	if got := refreshCalls.Load(); got != 0 {
		t.Fatalf("refresh endpoint should not be called, got %d calls", got)
	}
}

func TestLoginStoresCredentialPair(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login/", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode login body: %v", err)
		}
		if payload["email"] != "kiosk@example.edu" {
			t.Errorf("email = %v", payload["email"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access": "token-1",
			"session_id": "sess-9",
			"user": {"id": 5, "username": "kiosk", "email": "kiosk@example.edu", "role": "lecturer"},
			"expires_in": 2700
		}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewMemoryStore()
	client := newTestClient(t, server.URL, store)

	result, err := client.Login(context.Background(), "kiosk@example.edu", "secret", true)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.User.Role != "lecturer" {
		t.Fatalf("role = %q", result.User.Role)
	}

	creds, _ := store.Load()
	if creds.AccessToken != "token-1" || creds.SessionID != "sess-9" {
		t.Fatalf("stored credentials = %+v", creds)
	}
}

func TestLoginSurfacesValidationError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Invalid email or password"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, NewMemoryStore())

	_, err := client.Login(context.Background(), "kiosk@example.edu", "wrong", false)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if want := "Invalid email or password"; !strings.Contains(err.Error(), want) {
		t.Fatalf("error %q should carry server message %q", err, want)
	}
}

func TestLogoutClearsCredentialsEvenOnServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/logout/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewMemoryStore()
	seedCreds(t, store, "token-1", "sess-1")
	client := newTestClient(t, server.URL, store)

	if err := client.Logout(context.Background()); err == nil {
		t.Fatal("expected server error to surface")
	}
	creds, _ := store.Load()
	if creds.Valid() {
		t.Fatalf("credentials should be cleared, got %+v", creds)
	}
}

func TestMarkAttendanceSendsAuthorizedPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/attendances/mark-with-face/", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("authorization = %q", got)
		}
		var payload struct {
			SessionID  int64   `json:"session_id"`
			UserID     int64   `json:"user_id"`
			Confidence float64 `json:"confidence"`
			Distance   float64 `json:"distance"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.SessionID != 12 || payload.UserID != 42 {
			t.Errorf("payload = %+v", payload)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"user":{"id":42},"joined_time":"2025-01-01T10:00:00Z"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewMemoryStore()
	seedCreds(t, store, "token-1", "sess-1")
	client := newTestClient(t, server.URL, store)

	result, err := client.MarkAttendance(context.Background(), 12, 42, 91.2, 0.18)
	if err != nil {
		t.Fatalf("mark attendance: %v", err)
	}
	if result.User.ID != 42 || result.JoinedTime != "2025-01-01T10:00:00Z" {
		t.Fatalf("result = %+v", result)
	}
}

func TestMarkAttendanceRejectionSurfacesBackendMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/attendances/mark-with-face/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":false,"error":"Session is closed"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewMemoryStore()
	seedCreds(t, store, "token-1", "sess-1")
	client := newTestClient(t, server.URL, store)

	_, err := client.MarkAttendance(context.Background(), 12, 42, 91.2, 0.18)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Session is closed") {
		t.Fatalf("error %q should carry backend message", err)
	}
}

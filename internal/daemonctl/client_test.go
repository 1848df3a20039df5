package daemonctl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rollcall/internal/api"
)

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.DaemonStatus{Running: true})
	}))
	defer server.Close()

	client, err := New(server.URL, "secret")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Running {
		t.Fatal("status did not decode")
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
}

func TestClientNormalizesBareAddress(t *testing.T) {
	client, err := New("127.0.0.1:7610", "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.baseURL != "http://127.0.0.1:7610" {
		t.Fatalf("base url = %q", client.baseURL)
	}
}

func TestStartCaptureSendsSessionID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/capture/start" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req api.CaptureStartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID != 7 {
			t.Errorf("request = %+v, err = %v", req, err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.CaptureStartResponse{
			Run: api.RunStatus{RunID: "abc", SessionID: 7, State: "scanning"},
		})
	}))
	defer server.Close()

	client, err := New(server.URL, "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	run, err := client.StartCapture(context.Background(), 7)
	if err != nil {
		t.Fatalf("start capture: %v", err)
	}
	if run.RunID != "abc" || run.State != "scanning" {
		t.Fatalf("run = %+v", run)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "a capture run is already active"})
	}))
	defer server.Close()

	client, err := New(server.URL, "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.StartCapture(context.Background(), 7)
	if err == nil || !strings.Contains(err.Error(), "already active") {
		t.Fatalf("error = %v", err)
	}
}

func TestHistoryQueryParameters(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.HistoryResponse{Runs: []api.HistoryEntry{{RunID: "r1"}}})
	}))
	defer server.Close()

	client, err := New(server.URL, "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	runs, err := client.History(context.Background(), 5, 8)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "r1" {
		t.Fatalf("runs = %+v", runs)
	}
	if !strings.Contains(gotQuery, "limit=5") || !strings.Contains(gotQuery, "session=8") {
		t.Fatalf("query = %q", gotQuery)
	}
}

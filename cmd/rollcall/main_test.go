package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rollcall/internal/api"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	want := []string{"status", "login", "logout", "capture", "run", "history", "classes", "sessions", "config"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}

func TestStatusCommandAgainstFakeDaemon(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.DaemonStatus{
			Running:       true,
			PID:           99,
			CameraPresent: true,
			CameraDevice:  "/dev/video0",
			JournalDBPath: "/tmp/journal.db",
		})
	}))
	defer server.Close()

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--addr", server.URL, "status"})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "pid 99") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestCaptureStartRejectsBadSessionArg(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"capture", "start", "not-a-number"})

	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "invalid session id") {
		t.Fatalf("error = %v", err)
	}
}

func TestRenderHistoryTable(t *testing.T) {
	runs := []api.HistoryEntry{
		{
			SessionID:  7,
			State:      "succeeded",
			UserID:     42,
			Confidence: 91.5,
			Attempts:   3,
			EndedAt:    time.Date(2026, 2, 10, 8, 2, 0, 0, time.UTC),
		},
		{SessionID: 7, State: "failed_no_match", Attempts: 20},
	}

	output := renderHistoryTable(runs)
	for _, want := range []string{"Succeeded", "Failed No Match", "91.5%", "42", "20"} {
		if !strings.Contains(output, want) {
			t.Fatalf("table missing %q:\n%s", want, output)
		}
	}
}

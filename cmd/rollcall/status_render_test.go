package main

import (
	"strings"
	"testing"

	"rollcall/internal/api"
)

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("Camera", statusOK, "/dev/video0", false)
	if !strings.Contains(line, "Camera:") || !strings.Contains(line, "[OK] /dev/video0") {
		t.Fatalf("line = %q", line)
	}
	if strings.Contains(line, ansiGreen) {
		t.Fatal("plain line should not contain ANSI codes")
	}
}

func TestRenderStatusLineColorized(t *testing.T) {
	line := renderStatusLine("Running", statusError, "", true)
	if !strings.HasPrefix(line, ansiRed) || !strings.HasSuffix(line, ansiReset) {
		t.Fatalf("line = %q", line)
	}
}

func TestRenderDaemonStatus(t *testing.T) {
	status := &api.DaemonStatus{
		Running:       true,
		PID:           1234,
		Authenticated: true,
		CameraPresent: false,
		CameraDevice:  "/dev/video0",
		JournalDBPath: "/var/lib/rollcall/journal.db",
		ActiveRun: &api.RunStatus{
			State:       "scanning",
			Attempts:    3,
			MaxAttempts: 20,
			Status:      "scanning (3/20)",
		},
		RunCounts: map[string]int{"succeeded": 2, "stopped": 1},
	}

	output := strings.Join(renderDaemonStatus(status, false), "\n")
	for _, want := range []string{
		"pid 1234",
		"/dev/video0 not detected",
		"Scanning (3/20)",
		"Succeeded 2",
		"Stopped 1",
		"/var/lib/rollcall/journal.db",
	} {
		if !strings.Contains(output, want) {
			t.Fatalf("output missing %q:\n%s", want, output)
		}
	}
}

func TestStateLabel(t *testing.T) {
	cases := map[string]string{
		"succeeded":       "Succeeded",
		"failed_no_match": "Failed No Match",
		"stopped":         "Stopped",
		"":                "Unknown",
	}
	for input, want := range cases {
		if got := stateLabel(input); got != want {
			t.Fatalf("stateLabel(%q) = %q, want %q", input, got, want)
		}
	}
}

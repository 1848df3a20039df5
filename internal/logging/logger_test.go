package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestConsoleHandlerPromotesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	NewComponentLogger(logger, "capture").Info("scanning", Int("attempt", 3))

	line := buf.String()
	if !strings.Contains(line, "INFO capture: scanning") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "attempt=3") {
		t.Fatalf("missing attribute: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.Error("request failed", Error(errors.New("connection refused")))

	if !strings.Contains(buf.String(), `error="connection refused"`) {
		t.Fatalf("unexpected line: %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("visible")

	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info record should be suppressed: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("warn record missing: %q", buf.String())
	}
}

func TestJSONHandlerEmitsParsableRecords(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.Info("marked", Int64(FieldSessionID, 7))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal record: %v (%q)", err, buf.String())
	}
	if record["msg"] != "marked" {
		t.Fatalf("msg = %v", record["msg"])
	}
	if record["level"] != "info" {
		t.Fatalf("level = %v", record["level"])
	}
	if record[FieldSessionID] != float64(7) {
		t.Fatalf("session_id = %v", record[FieldSessionID])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	logger.Info("goes nowhere")
	if logger.Enabled(nil, 0) {
		t.Fatal("nop logger should report disabled")
	}
}

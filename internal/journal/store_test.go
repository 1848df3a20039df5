package journal

import (
	"context"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRun(runID string, sessionID int64, state string) Run {
	now := time.Now()
	return Run{
		RunID:      runID,
		SessionID:  sessionID,
		State:      state,
		UserID:     42,
		Confidence: 91.5,
		Distance:   0.21,
		Attempts:   3,
		StartedAt:  now.Add(-6 * time.Second),
		EndedAt:    now,
	}
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i, state := range []string{"succeeded", "failed_no_match", "stopped"} {
		run := sampleRun(string(rune('a'+i))+"-run", 7, state)
		if err := store.Record(ctx, run); err != nil {
			t.Fatalf("record %s: %v", state, err)
		}
	}

	runs, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("recent returned %d runs", len(runs))
	}
	if runs[0].State != "stopped" || runs[1].State != "failed_no_match" {
		t.Fatalf("unexpected order: %s, %s", runs[0].State, runs[1].State)
	}
	if runs[1].UserID != 42 || runs[1].Attempts != 3 {
		t.Fatalf("run fields lost: %+v", runs[1])
	}
	if runs[0].EndedAt.IsZero() {
		t.Fatal("ended_at did not round-trip")
	}
}

func TestRecordRejectsMissingFields(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, Run{State: "succeeded"}); err == nil {
		t.Fatal("expected error for missing run id")
	}
	if err := store.Record(ctx, Run{RunID: "abc"}); err == nil {
		t.Fatal("expected error for missing state")
	}
}

func TestDuplicateRunIDRejected(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := sampleRun("dup-run", 7, "succeeded")
	if err := store.Record(ctx, run); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := store.Record(ctx, run); err == nil {
		t.Fatal("expected unique constraint violation")
	}
}

func TestBySessionFilters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, sampleRun("run-1", 7, "succeeded")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Record(ctx, sampleRun("run-2", 8, "failed_liveness")); err != nil {
		t.Fatalf("record: %v", err)
	}

	runs, err := store.BySession(ctx, 8)
	if err != nil {
		t.Fatalf("by session: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-2" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
}

func TestCountByState(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i, state := range []string{"succeeded", "succeeded", "failed_backend"} {
		run := sampleRun(string(rune('a'+i))+"-count", 7, state)
		if err := store.Record(ctx, run); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	counts, err := store.CountByState(ctx)
	if err != nil {
		t.Fatalf("count by state: %v", err)
	}
	if counts["succeeded"] != 2 || counts["failed_backend"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Record(ctx, sampleRun("persist-run", 7, "succeeded")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	runs, err := reopened.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "persist-run" {
		t.Fatalf("unexpected runs after reopen: %+v", runs)
	}
}

package camera

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeExecutor struct {
	output []byte
	err    error

	binary string
	args   []string
	calls  int
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	f.calls++
	f.binary = binary
	f.args = args
	return f.output, f.err
}

func testDevice(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "video0")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("create fake device: %v", err)
	}
	return path
}

func TestV4L2SourceGrabsFrame(t *testing.T) {
	executor := &fakeExecutor{output: []byte{0xff, 0xd8, 0xff}}
	device := testDevice(t)

	source, err := NewV4L2Source(device, 1280, 720, "ffmpeg", WithExecutor(executor))
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	if err := source.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	frame, err := source.Frame(context.Background())
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if len(frame) != 3 {
		t.Fatalf("frame length = %d", len(frame))
	}

	joined := strings.Join(executor.args, " ")
	if !strings.Contains(joined, "-f v4l2") || !strings.Contains(joined, "-video_size 1280x720") {
		t.Fatalf("unexpected args: %q", joined)
	}
	if !strings.Contains(joined, "-i "+device) {
		t.Fatalf("device missing from args: %q", joined)
	}
	if executor.binary != "ffmpeg" {
		t.Fatalf("binary = %q", executor.binary)
	}
}

func TestV4L2SourceStartFailsForMissingDevice(t *testing.T) {
	source, err := NewV4L2Source(filepath.Join(t.TempDir(), "absent"), 0, 0, "")
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	if err := source.Start(context.Background()); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected device unavailable, got %v", err)
	}
}

func TestV4L2SourceFrameAfterCloseFails(t *testing.T) {
	executor := &fakeExecutor{output: []byte{1}}
	source, err := NewV4L2Source(testDevice(t), 0, 0, "ffmpeg", WithExecutor(executor))
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	if err := source.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := source.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := source.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if _, err := source.Frame(context.Background()); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected device unavailable after close, got %v", err)
	}
	if executor.calls != 0 {
		t.Fatalf("executor should not run after close, calls = %d", executor.calls)
	}
}

func TestV4L2SourceEmptyGrabIsError(t *testing.T) {
	source, err := NewV4L2Source(testDevice(t), 0, 0, "ffmpeg", WithExecutor(&fakeExecutor{}))
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	if err := source.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := source.Frame(context.Background()); err == nil {
		t.Fatal("expected error for empty grab")
	}
}

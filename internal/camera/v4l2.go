package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"rollcall/internal/services"
)

// ErrDeviceUnavailable is returned when the video device cannot be opened.
var ErrDeviceUnavailable = errors.New("camera device unavailable")

// Executor abstracts frame-grabber execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// V4L2Source captures frames from a video4linux device by invoking ffmpeg
// for a single-frame grab per tick. Shelling out per frame keeps the device
// open only for the duration of the grab and sidesteps holding a V4L2 buffer
// queue between ticks.
type V4L2Source struct {
	device string
	width  int
	height int
	binary string
	exec   Executor

	mu      sync.Mutex
	started bool
	closed  bool
}

// V4L2Option configures the source.
type V4L2Option func(*V4L2Source)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(executor Executor) V4L2Option {
	return func(s *V4L2Source) {
		if executor != nil {
			s.exec = executor
		}
	}
}

// NewV4L2Source constructs a frame source for the given device.
func NewV4L2Source(device string, width, height int, binary string, opts ...V4L2Option) (*V4L2Source, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil, services.Wrap(services.ErrConfiguration, "camera", "new source", "device required", nil)
	}
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffmpeg"
	}

	source := &V4L2Source{
		device: device,
		width:  width,
		height: height,
		binary: binary,
		exec:   commandExecutor{},
	}
	for _, opt := range opts {
		opt(source)
	}
	return source, nil
}

// Start verifies the device is present and readable.
func (s *V4L2Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrDeviceUnavailable
	}
	if err := unix.Access(s.device, unix.R_OK); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, s.device, err)
	}
	s.started = true
	return nil
}

// Frame grabs one JPEG frame from the device.
func (s *V4L2Source) Frame(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.closed || !s.started {
		s.mu.Unlock()
		return nil, ErrDeviceUnavailable
	}
	s.mu.Unlock()

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "v4l2",
	}
	if s.width > 0 && s.height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", s.width, s.height))
	}
	args = append(args,
		"-i", s.device,
		"-frames:v", "1",
		"-q:v", "4",
		"-f", "image2",
		"pipe:1",
	)

	frame, err := s.exec.Run(ctx, s.binary, args)
	if err != nil {
		return nil, fmt.Errorf("grab frame from %s: %w", s.device, err)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("grab frame from %s: empty output", s.device)
	}
	return frame, nil
}

// Close releases the source. Subsequent Frame calls fail.
func (s *V4L2Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.started = false
	return nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%s: %s: %w", binary, detail, err)
		}
		return nil, fmt.Errorf("%s: %w", binary, err)
	}
	return stdout.Bytes(), nil
}

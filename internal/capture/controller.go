package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/camera"
	"rollcall/internal/lms"
	"rollcall/internal/logging"
	"rollcall/internal/recognition"
	"rollcall/internal/services"
)

var (
	// ErrLivenessRejected means a face matched but the anti-spoofing check
	// flagged it as a photo or replay.
	ErrLivenessRejected = errors.New("presented face failed the liveness check")
	// ErrAttemptsExhausted means the attempt bound was reached with no match.
	ErrAttemptsExhausted = errors.New("no face recognized within the attempt limit")
	// ErrNotReady is returned when Start is called before the camera is bound
	// or while a run is already active.
	ErrNotReady = errors.New("capture controller not ready")
)

// Recognizer matches a captured frame against enrolled faces.
type Recognizer interface {
	Recognize(ctx context.Context, frame []byte, sessionID int64, threshold float64) (*recognition.Result, error)
}

// AttendanceMarker persists a successful recognition.
type AttendanceMarker interface {
	MarkAttendance(ctx context.Context, sessionID, userID int64, confidence, distance float64) (*lms.AttendanceResult, error)
}

// Options bound a capture run.
type Options struct {
	SessionID     int64
	Threshold     float64
	PollInterval  time.Duration
	MaxAttempts   int
	SuccessLinger time.Duration
}

// Success describes a completed attendance mark.
type Success struct {
	User       lms.User
	JoinedTime string
	Confidence float64
	Distance   float64
	Attempts   int
}

// Outcome is the terminal record of a run, suitable for journaling.
type Outcome struct {
	RunID      string
	SessionID  int64
	State      State
	UserID     int64
	Confidence float64
	Distance   float64
	Attempts   int
	StartedAt  time.Time
	EndedAt    time.Time
	Detail     string
}

// Callbacks receive run progress. All callbacks are optional and are invoked
// from the polling goroutine, never concurrently with each other.
type Callbacks struct {
	// OnStatus receives human-readable progress lines.
	OnStatus func(status string)
	// OnSuccess fires once when attendance is marked.
	OnSuccess func(Success)
	// OnError fires once when a run ends in a failure state. It does not
	// fire for operator cancellation.
	OnError func(err error)
	// OnFinish fires on every terminal transition, including cancellation.
	OnFinish func(Outcome)
}

// Controller drives a single attendance capture run: bind the camera, poll
// frames on a fixed interval, short-circuit on liveness rejection, mark
// attendance exactly once on a live match, and give up after the attempt
// bound. Ticks run serialized on one goroutine; a tick never overlaps the
// previous one even when recognition is slow.
type Controller struct {
	opts       Options
	source     camera.FrameSource
	recognizer Recognizer
	marker     AttendanceMarker
	callbacks  Callbacks
	logger     *slog.Logger

	mu         sync.Mutex
	state      State
	generation int
	attempts   int
	runID      string
	startedAt  time.Time
	cancel     context.CancelFunc
	done       chan struct{}
	outcome    *Outcome
}

// New constructs a controller in the Idle state.
func New(source camera.FrameSource, recognizer Recognizer, marker AttendanceMarker, opts Options, callbacks Callbacks, logger *slog.Logger) (*Controller, error) {
	if source == nil {
		return nil, services.Wrap(services.ErrConfiguration, "capture", "new", "frame source required", nil)
	}
	if recognizer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "capture", "new", "recognizer required", nil)
	}
	if marker == nil {
		return nil, services.Wrap(services.ErrConfiguration, "capture", "new", "attendance marker required", nil)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 20
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 0.30
	}

	return &Controller{
		opts:       opts,
		source:     source,
		recognizer: recognizer,
		marker:     marker,
		callbacks:  callbacks,
		logger:     logging.NewComponentLogger(logger, "capture"),
		state:      StateIdle,
	}, nil
}

// State returns the current run state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RunID returns the identifier of the current or last run.
func (c *Controller) RunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

// Attempts returns how many polling ticks the current or last run consumed.
func (c *Controller) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Outcome returns the terminal record of the last run, or nil while a run is
// in progress or before any run started.
func (c *Controller) Outcome() *Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome == nil {
		return nil
	}
	outcome := *c.outcome
	return &outcome
}

// StartCamera binds the camera without starting the polling loop, so the
// operator sees a preview-ready device before committing to a scan.
func (c *Controller) StartCamera(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateScanning {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.mu.Unlock()

	c.status("starting camera")
	if err := c.source.Start(ctx); err != nil {
		c.status("camera unavailable")
		return fmt.Errorf("start camera: %w", err)
	}

	c.mu.Lock()
	c.state = StateCameraReady
	c.mu.Unlock()

	c.status("camera ready")
	return nil
}

// Start begins the polling loop. The camera must already be bound.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateCameraReady {
		c.mu.Unlock()
		return fmt.Errorf("%w: state is %s", ErrNotReady, c.state)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.generation++
	generation := c.generation
	c.state = StateScanning
	c.attempts = 0
	c.runID = uuid.NewString()
	runID := c.runID
	c.startedAt = time.Now()
	c.outcome = nil
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	c.logger.Info("capture run started",
		logging.String(logging.FieldRunID, runID),
		logging.Int64(logging.FieldSessionID, c.opts.SessionID),
	)
	c.status("looking for a face, hold still")

	go func() {
		defer close(done)
		c.run(runCtx, generation)
	}()
	return nil
}

// Stop cancels an active run. Success and error callbacks do not fire; the
// run records a stopped outcome and the camera is released.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state != StateScanning {
		c.mu.Unlock()
		return
	}
	c.state = StateStopped
	c.generation++
	cancel := c.cancel
	c.cancel = nil
	outcome := c.buildOutcomeLocked(StateStopped, 0, 0, 0, "stopped by operator")
	c.outcome = &outcome
	done := c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	_ = c.source.Close()

	c.logger.Info("capture run stopped", logging.String(logging.FieldRunID, outcome.RunID))
	c.status("scan stopped")
	if c.callbacks.OnFinish != nil {
		c.callbacks.OnFinish(outcome)
	}
}

// Close tears the controller down, cancelling any active run and releasing
// the camera regardless of state.
func (c *Controller) Close() {
	c.Stop()
	_ = c.source.Close()
}

func (c *Controller) run(ctx context.Context, generation int) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.tick(ctx, generation) {
				return
			}
		}
	}
}

// tick performs one recognition attempt. It returns true when the run is
// over. Frame-grab and recognition errors consume an attempt rather than
// ending the run: a transient glitch should not kill a scan that still has
// attempts left.
func (c *Controller) tick(ctx context.Context, generation int) bool {
	c.mu.Lock()
	if c.generation != generation || c.state != StateScanning {
		c.mu.Unlock()
		return true
	}
	c.attempts++
	attempt := c.attempts
	c.mu.Unlock()

	c.status(fmt.Sprintf("scanning (%d/%d)", attempt, c.opts.MaxAttempts))

	result := c.attemptRecognition(ctx)
	if result != nil && result.Success && result.Recognized {
		if !result.IsReal {
			c.logger.Warn("liveness check rejected the presented face",
				logging.Int64("user_id", result.UserID),
				logging.Float64("confidence", result.Confidence),
			)
			c.finishFailure(generation, StateFailedLiveness, ErrLivenessRejected, result)
			return true
		}
		return c.markAttendance(ctx, generation, result)
	}

	if attempt >= c.opts.MaxAttempts {
		c.finishFailure(generation, StateFailedNoMatch, ErrAttemptsExhausted, nil)
		return true
	}
	return false
}

func (c *Controller) attemptRecognition(ctx context.Context) *recognition.Result {
	frame, err := c.source.Frame(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Debug("frame grab failed", logging.Error(err))
		}
		return nil
	}

	result, err := c.recognizer.Recognize(ctx, frame, c.opts.SessionID, c.opts.Threshold)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Debug("recognition request failed", logging.Error(err))
		}
		return nil
	}
	return result
}

func (c *Controller) markAttendance(ctx context.Context, generation int, result *recognition.Result) bool {
	// A stale match from a cancelled run must never reach the backend.
	c.mu.Lock()
	if c.generation != generation || c.state != StateScanning {
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()

	c.status(fmt.Sprintf("recognized user %d (%.1f%% confidence)", result.UserID, result.Confidence))

	marked, err := c.marker.MarkAttendance(ctx, c.opts.SessionID, result.UserID, result.Confidence, result.Distance)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		c.finishFailure(generation, StateFailedBackend, fmt.Errorf("mark attendance: %w", err), result)
		return true
	}

	c.mu.Lock()
	if c.generation != generation || c.state != StateScanning {
		c.mu.Unlock()
		return true
	}
	c.state = StateSucceeded
	outcome := c.buildOutcomeLocked(StateSucceeded, result.UserID, result.Confidence, result.Distance, "")
	c.outcome = &outcome
	attempts := c.attempts
	c.mu.Unlock()

	c.logger.Info("attendance marked",
		logging.String(logging.FieldRunID, outcome.RunID),
		logging.Int64("user_id", result.UserID),
		logging.Float64("confidence", result.Confidence),
		logging.Int("attempts", attempts),
	)
	c.status(fmt.Sprintf("attendance marked for %s", marked.User.Username))

	if c.callbacks.OnSuccess != nil {
		c.callbacks.OnSuccess(Success{
			User:       marked.User,
			JoinedTime: marked.JoinedTime,
			Confidence: result.Confidence,
			Distance:   result.Distance,
			Attempts:   attempts,
		})
	}
	if c.callbacks.OnFinish != nil {
		c.callbacks.OnFinish(outcome)
	}

	c.lingerThenRelease(generation)
	return true
}

func (c *Controller) finishFailure(generation int, state State, cause error, result *recognition.Result) {
	var userID int64
	var confidence, distance float64
	if result != nil {
		userID = result.UserID
		confidence = result.Confidence
		distance = result.Distance
	}

	c.mu.Lock()
	if c.generation != generation || c.state != StateScanning {
		c.mu.Unlock()
		return
	}
	c.state = state
	outcome := c.buildOutcomeLocked(state, userID, confidence, distance, cause.Error())
	c.outcome = &outcome
	c.mu.Unlock()

	_ = c.source.Close()

	c.logger.Warn("capture run failed",
		logging.String(logging.FieldRunID, outcome.RunID),
		logging.String("state", state.String()),
		logging.Error(cause),
	)
	c.status(failureStatus(state))

	if c.callbacks.OnError != nil {
		c.callbacks.OnError(cause)
	}
	if c.callbacks.OnFinish != nil {
		c.callbacks.OnFinish(outcome)
	}
}

// lingerThenRelease keeps the camera bound briefly after success so the
// operator sees the final frame, then releases it. A newer run owns the
// camera once the generation moves on, so the release is guarded.
func (c *Controller) lingerThenRelease(generation int) {
	if c.opts.SuccessLinger <= 0 {
		_ = c.source.Close()
		return
	}
	time.AfterFunc(c.opts.SuccessLinger, func() {
		c.mu.Lock()
		stale := c.generation != generation
		c.mu.Unlock()
		if stale {
			return
		}
		_ = c.source.Close()
	})
}

func (c *Controller) buildOutcomeLocked(state State, userID int64, confidence, distance float64, detail string) Outcome {
	return Outcome{
		RunID:      c.runID,
		SessionID:  c.opts.SessionID,
		State:      state,
		UserID:     userID,
		Confidence: confidence,
		Distance:   distance,
		Attempts:   c.attempts,
		StartedAt:  c.startedAt,
		EndedAt:    time.Now(),
		Detail:     detail,
	}
}

func (c *Controller) status(message string) {
	if c.callbacks.OnStatus != nil {
		c.callbacks.OnStatus(message)
	}
}

func failureStatus(state State) string {
	switch state {
	case StateFailedLiveness:
		return "liveness check failed, use a live face"
	case StateFailedNoMatch:
		return "no matching face found"
	case StateFailedBackend:
		return "attendance could not be recorded"
	default:
		return "scan failed"
	}
}

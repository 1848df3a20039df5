package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"rollcall/internal/api"
	"rollcall/internal/camera"
	"rollcall/internal/capture"
	"rollcall/internal/config"
	"rollcall/internal/journal"
	"rollcall/internal/lms"
	"rollcall/internal/logging"
	"rollcall/internal/recognition"
	"rollcall/internal/services"
)

// ErrCaptureActive is returned when a capture run is requested while another
// one is still scanning.
var ErrCaptureActive = errors.New("a capture run is already active")

// Daemon supervises attendance capture runs and enforces single-instance
// execution. At most one run scans at a time; terminal outcomes are journaled.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	journal    *journal.Store
	lms        *lms.Client
	recognizer *recognition.Client
	monitor    *camera.Monitor

	lockPath string
	lock     *flock.Flock

	running       atomic.Bool
	cameraPresent atomic.Bool
	ctx           context.Context
	cancel        context.CancelFunc
	api           *apiServer

	mu         sync.Mutex
	starting   bool
	active     *capture.Controller
	activeRun  api.RunStatus
	lastStatus string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *journal.Store, lmsClient *lms.Client, recognizer *recognition.Client, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || lmsClient == nil || recognizer == nil {
		return nil, errors.New("daemon requires config, journal store, lms client, and recognizer")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "rollcalld.lock")
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		journal:    store,
		lms:        lmsClient,
		recognizer: recognizer,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}

	d.monitor = camera.NewMonitor(cfg.Camera.Device, logger, func(present bool) {
		d.cameraPresent.Store(present)
	})
	if _, err := os.Stat(cfg.Camera.Device); err == nil {
		d.cameraPresent.Store(true)
	}
	return d, nil
}

// Start acquires the daemon lock and brings up the camera monitor and the
// control API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another rollcall daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if err := d.monitor.Start(d.ctx); err != nil {
		d.logger.Warn("camera monitor unavailable", logging.Error(err))
	}

	server, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.releaseStart()
		return err
	}
	d.api = server
	if err := d.api.start(d.ctx); err != nil {
		d.releaseStart()
		return err
	}

	d.running.Store(true)
	d.logger.Info("rollcall daemon started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) releaseStart() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
	d.monitor.Stop()
	_ = d.lock.Unlock()
}

// Stop halts any active run and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.StopCapture()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.monitor.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("rollcall daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.journal.Close()
}

// StartCapture begins a capture run for the given class session. Only one
// run may be active at a time.
func (d *Daemon) StartCapture(ctx context.Context, sessionID int64) (api.RunStatus, error) {
	if sessionID <= 0 {
		return api.RunStatus{}, services.Wrap(services.ErrValidation, "daemon", "start capture", "session id is required", nil)
	}

	source, err := camera.NewV4L2Source(
		d.cfg.Camera.Device,
		d.cfg.Camera.Width,
		d.cfg.Camera.Height,
		d.cfg.Camera.FFmpegBinary,
	)
	if err != nil {
		return api.RunStatus{}, err
	}
	return d.startRun(ctx, source, sessionID)
}

func (d *Daemon) startRun(ctx context.Context, source camera.FrameSource, sessionID int64) (api.RunStatus, error) {
	// Reserve the run slot before releasing the lock. Camera binding happens
	// outside the lock; the flag keeps a concurrent start from admitting a
	// second run while this one is still coming up.
	d.mu.Lock()
	if d.starting || (d.active != nil && !d.active.State().Terminal()) {
		d.mu.Unlock()
		return api.RunStatus{}, ErrCaptureActive
	}
	d.starting = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.starting = false
		d.mu.Unlock()
	}()

	controller, err := capture.New(source, d.recognizer, d.lms, capture.Options{
		SessionID:     sessionID,
		Threshold:     d.cfg.Recognition.Threshold,
		PollInterval:  d.cfg.PollInterval(),
		MaxAttempts:   d.cfg.Capture.MaxAttempts,
		SuccessLinger: d.cfg.SuccessLinger(),
	}, capture.Callbacks{
		OnStatus: d.recordStatus,
		OnFinish: d.recordOutcome,
	}, d.logger)
	if err != nil {
		return api.RunStatus{}, err
	}

	runCtx := d.ctx
	if runCtx == nil {
		runCtx = ctx
	}
	if err := controller.StartCamera(runCtx); err != nil {
		return api.RunStatus{}, err
	}
	if err := controller.Start(runCtx); err != nil {
		_ = source.Close()
		return api.RunStatus{}, err
	}

	run := api.RunStatus{
		RunID:       controller.RunID(),
		SessionID:   sessionID,
		MaxAttempts: d.cfg.Capture.MaxAttempts,
		StartedAt:   time.Now(),
	}

	d.mu.Lock()
	d.active = controller
	d.activeRun = run
	d.lastStatus = ""
	status := d.runStatusLocked()
	d.mu.Unlock()

	d.logger.Info("capture run requested", logging.Int64(logging.FieldSessionID, sessionID))
	return status, nil
}

// StopCapture cancels the active run. It reports whether a run was scanning.
func (d *Daemon) StopCapture() bool {
	d.mu.Lock()
	controller := d.active
	d.mu.Unlock()

	if controller == nil || controller.State() != capture.StateScanning {
		return false
	}
	controller.Stop()
	return true
}

// ActiveRun returns the status of the current or most recent run, or nil if
// no run has started since the daemon came up.
func (d *Daemon) ActiveRun() *api.RunStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return nil
	}
	status := d.runStatusLocked()
	return &status
}

// runStatusLocked requires d.mu to be held.
func (d *Daemon) runStatusLocked() api.RunStatus {
	run := d.activeRun
	if d.active != nil {
		run.RunID = d.active.RunID()
		run.State = d.active.State().String()
		run.Attempts = d.active.Attempts()
	}
	run.Status = d.lastStatus
	return run
}

func (d *Daemon) recordStatus(status string) {
	d.mu.Lock()
	d.lastStatus = status
	d.mu.Unlock()
}

func (d *Daemon) recordOutcome(outcome capture.Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := d.journal.Record(ctx, journal.Run{
		RunID:      outcome.RunID,
		SessionID:  outcome.SessionID,
		State:      outcome.State.String(),
		UserID:     outcome.UserID,
		Confidence: outcome.Confidence,
		Distance:   outcome.Distance,
		Attempts:   outcome.Attempts,
		Detail:     outcome.Detail,
		StartedAt:  outcome.StartedAt,
		EndedAt:    outcome.EndedAt,
	})
	if err != nil {
		d.logger.Error("failed to journal capture run",
			logging.String(logging.FieldRunID, outcome.RunID),
			logging.Error(err),
		)
	}
}

// Login authenticates against the LMS through the daemon's client so the
// stored credential pair is shared with capture runs.
func (d *Daemon) Login(ctx context.Context, email, password string, rememberMe bool) (*lms.LoginResult, error) {
	return d.lms.Login(ctx, email, password, rememberMe)
}

// Logout clears stored credentials.
func (d *Daemon) Logout(ctx context.Context) error {
	return d.lms.Logout(ctx)
}

// History returns journaled runs, newest first. A sessionID of zero returns
// runs for all sessions.
func (d *Daemon) History(ctx context.Context, limit int, sessionID int64) ([]journal.Run, error) {
	if sessionID > 0 {
		return d.journal.BySession(ctx, sessionID)
	}
	return d.journal.Recent(ctx, limit)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	authenticated := false
	tokenExpired := false
	if creds, err := d.lms.Credentials(); err == nil && creds.Valid() {
		authenticated = true
		// Advisory only: requests still rely on 401-triggered refresh.
		tokenExpired = lms.TokenExpired(creds.AccessToken, time.Now())
	}

	status := api.DaemonStatus{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		Authenticated: authenticated,
		TokenExpired:  tokenExpired,
		CameraPresent: d.cameraPresent.Load(),
		CameraDevice:  d.cfg.Camera.Device,
		JournalDBPath: d.journal.Path(),
		LockFilePath:  d.lockPath,
	}

	if counts, err := d.journal.CountByState(ctx); err == nil && len(counts) > 0 {
		status.RunCounts = counts
	}

	if run := d.ActiveRun(); run != nil {
		status.ActiveRun = run
	}
	return status
}

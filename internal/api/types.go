package api

import "time"

// DaemonStatus reports daemon runtime information over the control API.
type DaemonStatus struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid"`
	Authenticated bool           `json:"authenticated"`
	TokenExpired  bool           `json:"token_expired,omitempty"`
	CameraPresent bool           `json:"camera_present"`
	CameraDevice  string         `json:"camera_device"`
	JournalDBPath string         `json:"journal_db_path"`
	LockFilePath  string         `json:"lock_file_path"`
	ActiveRun     *RunStatus     `json:"active_run,omitempty"`
	RunCounts     map[string]int `json:"run_counts,omitempty"`
}

// RunStatus describes an in-progress or just-finished capture run.
type RunStatus struct {
	RunID       string    `json:"run_id"`
	SessionID   int64     `json:"session_id"`
	State       string    `json:"state"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
}

// CaptureStartRequest asks the daemon to begin a capture run.
type CaptureStartRequest struct {
	SessionID int64 `json:"session_id"`
}

// CaptureStartResponse returns the newly started run.
type CaptureStartResponse struct {
	Run RunStatus `json:"run"`
}

// CaptureStopResponse reports whether a run was active when stop arrived.
type CaptureStopResponse struct {
	Stopped bool `json:"stopped"`
}

// HistoryEntry is one journaled capture run.
type HistoryEntry struct {
	RunID      string    `json:"run_id"`
	SessionID  int64     `json:"session_id"`
	State      string    `json:"state"`
	UserID     int64     `json:"user_id,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Distance   float64   `json:"distance,omitempty"`
	Attempts   int       `json:"attempts"`
	Detail     string    `json:"detail,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// HistoryResponse lists journaled capture runs, newest first.
type HistoryResponse struct {
	Runs []HistoryEntry `json:"runs"`
}

// LoginRequest carries operator credentials to the daemon.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// LoginResponse returns the authenticated user.
type LoginResponse struct {
	User User `json:"user"`
}

// User identifies an LMS account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// ErrorResponse carries an API error message.
type ErrorResponse struct {
	Error string `json:"error"`
}

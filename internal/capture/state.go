package capture

// State identifies where a capture run is in its lifecycle.
type State string

const (
	// StateIdle means no camera is bound and no run is active.
	StateIdle State = "idle"
	// StateCameraReady means the camera is acquired but polling has not started.
	StateCameraReady State = "camera_ready"
	// StateScanning means the polling loop is active.
	StateScanning State = "scanning"
	// StateSucceeded means attendance was marked.
	StateSucceeded State = "succeeded"
	// StateFailedLiveness means a face matched but failed the anti-spoofing check.
	StateFailedLiveness State = "failed_liveness"
	// StateFailedNoMatch means the attempt bound was reached without a match.
	StateFailedNoMatch State = "failed_no_match"
	// StateFailedBackend means recognition succeeded but the mark call failed.
	StateFailedBackend State = "failed_backend"
	// StateStopped means the operator cancelled the run.
	StateStopped State = "stopped"
)

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailedLiveness, StateFailedNoMatch, StateFailedBackend, StateStopped:
		return true
	}
	return false
}

// String returns the state identifier.
func (s State) String() string { return string(s) }

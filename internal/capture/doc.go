// Package capture drives attendance capture runs: poll the camera on a
// fixed interval, send frames to the recognition service, and mark
// attendance exactly once when a live face matches. Runs are bounded by an
// attempt limit and can be cancelled by the operator at any point; the
// camera is released on every exit path.
package capture

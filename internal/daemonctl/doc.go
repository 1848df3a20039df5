// Package daemonctl is the HTTP client for the daemon control API, used by
// the CLI to drive capture runs and query status without linking the full
// daemon stack.
package daemonctl

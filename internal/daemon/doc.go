// Package daemon hosts the long-running rollcall process: it enforces
// single-instance execution with a lock file, supervises one capture run at
// a time, journals terminal outcomes, watches camera hotplug, and serves
// the HTTP control API the CLI talks to.
package daemon

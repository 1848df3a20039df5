// Package logging constructs the slog loggers used across the kiosk.
//
// Two handler formats are supported: a compact console format for
// interactive use and JSON for log collection. Component loggers carry a
// standardized "component" attribute that the console handler promotes into
// the message prefix.
package logging

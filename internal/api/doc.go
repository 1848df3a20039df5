// Package api defines the JSON types exchanged over the daemon control API.
// The daemon serves them and the CLI consumes them through daemonctl, so
// both sides marshal against one set of definitions.
package api

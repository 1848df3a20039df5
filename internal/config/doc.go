// Package config loads, validates, and normalizes kiosk configuration.
//
// Configuration lives in a TOML file (default ~/.config/rollcall/config.toml,
// with a rollcall.toml in the working directory as a fallback). Load applies
// defaults for unset keys, expands ~ in path fields, and rejects values the
// rest of the system cannot work with, so downstream packages can assume a
// coherent Config.
package config

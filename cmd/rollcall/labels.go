package main

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

// stateLabel turns a machine state identifier into a display label, e.g.
// "failed_no_match" becomes "Failed No Match".
func stateLabel(state string) string {
	state = strings.TrimSpace(state)
	if state == "" {
		return "Unknown"
	}
	return titleCaser.String(strings.ReplaceAll(state, "_", " "))
}

func stateKind(state string) statusKind {
	switch state {
	case "succeeded":
		return statusOK
	case "scanning", "camera_ready", "idle", "stopped":
		return statusInfo
	default:
		return statusError
	}
}

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// statusKind pairs the bracketed tag on a status line with the ANSI color
// used when the output is a terminal.
type statusKind struct {
	tag   string
	color string
}

var (
	statusInfo  = statusKind{tag: "INFO", color: ansiBlue}
	statusOK    = statusKind{tag: "OK", color: ansiGreen}
	statusWarn  = statusKind{tag: "WARN", color: ansiYellow}
	statusError = statusKind{tag: "ERROR", color: ansiRed}
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	tag := "[" + kind.tag + "]"
	if message != "" {
		tag += " " + message
	}
	line := fmt.Sprintf("  %-16s %s", label+":", tag)
	if colorize && kind.color != "" {
		return kind.color + line + ansiReset
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	title = strings.TrimSpace(title)
	rule := strings.Repeat("-", len(title))
	if colorize {
		return []string{ansiBlue + title + ansiReset, ansiBlue + rule + ansiReset}
	}
	return []string{title, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	return ok && (isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd()))
}

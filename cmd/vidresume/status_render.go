package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"vidresume/internal/pipeline"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const ansiReset = "\x1b[0m"

// kindStyles is indexed by statusKind.
var kindStyles = [...]struct {
	tag   string
	color string
}{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

const statusLabelWidth = 20

func (k statusKind) style() (tag, color string) {
	if k < 0 || int(k) >= len(kindStyles) {
		k = statusInfo
	}
	return kindStyles[k].tag, kindStyles[k].color
}

// renderStatusLine formats "  label:   [TAG] message", coloured on a terminal.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	tag, color := kind.style()
	line := fmt.Sprintf("  %-*s [%s]", statusLabelWidth, label+":", tag)
	if message != "" {
		line += " " + message
	}
	if colorize {
		line = color + line + ansiReset
	}
	return line
}

// stageKind maps a stage state onto a status line severity.
func stageKind(state pipeline.State) statusKind {
	switch state {
	case pipeline.StateCompleted:
		return statusOK
	case pipeline.StateCancelled:
		return statusWarn
	case pipeline.StateFailed:
		return statusError
	}
	return statusInfo
}

func renderSectionHeader(title string, colorize bool) []string {
	heading := "== " + strings.TrimSpace(title) + " =="
	lines := []string{heading, strings.Repeat("-", len(heading))}
	if colorize {
		_, blue := statusInfo.style()
		for i := range lines {
			lines[i] = blue + lines[i] + ansiReset
		}
	}
	return lines
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

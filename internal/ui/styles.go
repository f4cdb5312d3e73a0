// Package ui renders terminal output for the dojo CLI.
package ui

import (
	"fmt"

	"github.com/alfredjeanlab/dojolog/internal/model"
)

// ANSI256 color codes.
const (
	colorAccent  = 74  // blue
	colorCmd     = 250 // light gray
	colorMuted   = 245 // medium gray
	colorSynced  = 114 // green
	colorPending = 179 // amber
	colorError   = 203 // red
)

var noColor bool

func paint(color int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", color, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return paint(colorCmd, s) }

// RenderError returns s in the error (red) color.
func RenderError(s string) string { return paint(colorError, s) }

// RenderSyncState returns the state name colored by how far it is from
// being mirrored remotely.
func RenderSyncState(s model.SyncState) string {
	switch s {
	case model.SyncSynced:
		return paint(colorSynced, s.String())
	case model.SyncError:
		return paint(colorError, s.String())
	default:
		return paint(colorPending, s.String())
	}
}

// SyncMarker is a one-character sync indicator for dense listings.
func SyncMarker(s model.SyncState) string {
	switch s {
	case model.SyncSynced:
		return paint(colorSynced, "✓")
	case model.SyncError:
		return paint(colorError, "!")
	default:
		return paint(colorPending, "•")
	}
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

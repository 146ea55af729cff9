package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a TTY.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// ShouldUseColor reports whether stdout should get ANSI styling. NO_COLOR
// wins over everything, then CLICOLOR_FORCE=1, then CLICOLOR=0, and finally
// TTY detection.
func ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	switch {
	case envIs("CLICOLOR_FORCE", "1"):
		return true
	case envIs("CLICOLOR", "0"):
		return false
	}
	return IsTerminal(os.Stdout)
}

func envIs(key, want string) bool {
	return strings.TrimSpace(os.Getenv(key)) == want
}

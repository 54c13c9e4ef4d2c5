package util

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal checks if the given file descriptor is a terminal
func IsTerminal(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// ShowProgress reports whether progress bars should be drawn: stderr must be
// a terminal and quiet mode off.
func ShowProgress() bool {
	return IsTerminal(os.Stderr.Fd()) && !IsQuiet()
}

// ProgressWidth returns a bar width that fits the terminal next to its
// description, or 40 if stderr is not a terminal
func ProgressWidth() int {
	width, _, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil || width < 80 {
		return 40
	}
	return width / 3
}

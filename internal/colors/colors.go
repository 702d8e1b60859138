// Package colors provides terminal color support for repository CLI output.
//
// This package provides:
// - ANSI color codes for terminal output
// - Functions to colorize text based on overlay status
// - Automatic color detection and fallback for non-color terminals
// - Consistent color scheme across all commands
package colors

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// ANSI color codes
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	// Regular colors
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorMagenta = "\033[35m"
	ColorCyan    = "\033[36m"
	ColorWhite   = "\033[37m"
	ColorGray    = "\033[90m"

	// Bright colors
	BrightRed     = "\033[91m"
	BrightGreen   = "\033[92m"
	BrightYellow  = "\033[93m"
	BrightBlue    = "\033[94m"
	BrightMagenta = "\033[95m"
	BrightCyan    = "\033[96m"
	BrightWhite   = "\033[97m"
)

// colorEnabled determines if color output should be used
var colorEnabled = shouldUseColor()

// shouldUseColor determines if the terminal supports colors
func shouldUseColor() bool {
	// Check if NO_COLOR environment variable is set
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	// Force color if FORCE_COLOR is set
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}

	// On Windows, check if we're in a modern terminal
	if runtime.GOOS == "windows" {
		// Check for Windows Terminal, VS Code terminal, etc.
		term := strings.ToLower(os.Getenv("TERM"))
		wt := os.Getenv("WT_SESSION")
		vscode := os.Getenv("VSCODE_PID")

		if wt != "" || vscode != "" || strings.Contains(term, "color") || strings.Contains(term, "xterm") {
			return true
		}
		return false
	}

	// On Unix-like systems, check TERM environment variable
	term := strings.ToLower(os.Getenv("TERM"))
	if term == "dumb" || term == "" {
		return false
	}

	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		return (fileInfo.Mode() & os.ModeCharDevice) != 0
	}

	return true
}

// SetColorEnabled allows manual control of color output
func SetColorEnabled(enabled bool) {
	colorEnabled = enabled
}

// IsColorEnabled returns whether colors are currently enabled
func IsColorEnabled() bool {
	return colorEnabled
}

// colorize applies color to text if colors are enabled
func colorize(text, color string) string {
	if !colorEnabled {
		return text
	}
	return color + text + ColorReset
}

// Status-based coloring functions
func New(text string) string {
	return colorize(text, BrightGreen)
}

func Modified(text string) string {
	return colorize(text, BrightBlue)
}

func Removed(text string) string {
	return colorize(text, BrightRed)
}

func Stale(text string) string {
	return colorize(text, BrightYellow)
}

func Destroyed(text string) string {
	return colorize(text, ColorRed)
}

// Generic color functions
func Red(text string) string {
	return colorize(text, BrightRed)
}

func Green(text string) string {
	return colorize(text, BrightGreen)
}

func Blue(text string) string {
	return colorize(text, BrightBlue)
}

func Yellow(text string) string {
	return colorize(text, BrightYellow)
}

func Cyan(text string) string {
	return colorize(text, BrightCyan)
}

func Magenta(text string) string {
	return colorize(text, BrightMagenta)
}

func White(text string) string {
	return colorize(text, BrightWhite)
}

func Gray(text string) string {
	return colorize(text, ColorGray)
}

func Bold(text string) string {
	if !colorEnabled {
		return text
	}
	return ColorBold + text + ColorReset
}

func Dim(text string) string {
	if !colorEnabled {
		return text
	}
	return ColorDim + text + ColorReset
}

// Status prefixes with colors
func NewPrefix() string {
	return New("A")
}

func ModifiedPrefix() string {
	return Modified("M")
}

func RemovedPrefix() string {
	return Removed("D")
}

func StalePrefix() string {
	return Stale("!")
}

func DestroyedPrefix() string {
	return Destroyed("X")
}

// ColorizeStatus renders one overlay entry with its status prefix.
func ColorizeStatus(status, nodePath string) string {
	switch strings.ToLower(status) {
	case "new":
		return fmt.Sprintf("  %s  %s", NewPrefix(), Green(nodePath))
	case "modified":
		return fmt.Sprintf("  %s  %s", ModifiedPrefix(), Blue(nodePath))
	case "removed":
		return fmt.Sprintf("  %s  %s", RemovedPrefix(), Red(nodePath))
	case "stale-modified":
		return fmt.Sprintf("  %s  %s", StalePrefix(), Yellow(nodePath))
	case "stale-destroyed":
		return fmt.Sprintf("  %s  %s", DestroyedPrefix(), Yellow(nodePath))
	default:
		return fmt.Sprintf("     %s", nodePath)
	}
}

// Section headers with colors
func SectionHeader(text string) string {
	return Bold(text)
}

func ErrorText(text string) string {
	return Red(text)
}

func SuccessText(text string) string {
	return Green(text)
}

func InfoText(text string) string {
	return Cyan(text)
}

func WarningText(text string) string {
	return Yellow(text)
}

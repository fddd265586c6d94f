// Package printer renders solver output for the CLI: assignments, costs,
// warnings and structured errors, coloured with fatih/color.
package printer

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Success prints a success message in green with a checkmark prefix.
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Printf("✓ %s", msg)
	} else {
		green.Print(msg)
	}
}

// Info prints an informational message in the default color.
func Info(format string, a ...any) {
	fmt.Printf(format, a...)
}

// Assignment prints one variable's final value, cyan-highlighted.
func Assignment(variable string, value any) {
	fmt.Printf("  %s = ", variable)
	cyan.Printf("%v\n", value)
}

// Warning prints a warning message in yellow.
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	yellow.Printf("⚠ %s", msg)
}

// Error prints a structured error (title, explanation, suggestions) to
// stderr with colors and returns a simple error for Cobra. The returned
// error carries only the title, so Cobra's own output does not duplicate
// the rich explanation.
func Error(title string, explanation string, suggestions []string) error {
	red.Fprintf(os.Stderr, "%s\n\n", title)
	fmt.Fprintf(os.Stderr, "%s\n", explanation)
	if len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\nSuggestions:\n")
		for _, s := range suggestions {
			fmt.Fprintf(os.Stderr, "  • %s\n", s)
		}
	}
	return fmt.Errorf("%s", title)
}

// Package output provides the icon-prefixed print helpers used by every
// CLI subcommand, so status lines look consistent across index/sync/
// query/forget/etc. There is no structured logging in this codebase;
// these helpers are it.
package output

import (
	"fmt"
	"os"
)

// Icon semantics:
//
//	✓  success
//	✗  error (stderr)
//	⚠  warning
//	○  skipped
//	~  neutral info / state change

// Section prints a top-level header, e.g. "=== Sync ===".
func Section(title string) {
	fmt.Printf("\n=== %s ===\n", title)
}

// OK prints a success line.
func OK(msg string, args ...any) {
	fmt.Printf("  ✓  %s\n", fmt.Sprintf(msg, args...))
}

// Err prints an error line to stderr.
func Err(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "  ✗  %s\n", fmt.Sprintf(msg, args...))
}

// Warn prints a warning line.
func Warn(msg string, args ...any) {
	fmt.Printf("  ⚠  %s\n", fmt.Sprintf(msg, args...))
}

// Skip prints a skipped / not-applicable line.
func Skip(msg string, args ...any) {
	fmt.Printf("  ○  %s\n", fmt.Sprintf(msg, args...))
}

// Info prints a neutral informational line.
func Info(msg string, args ...any) {
	fmt.Printf("  ~  %s\n", fmt.Sprintf(msg, args...))
}

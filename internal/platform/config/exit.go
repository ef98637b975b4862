package config

import (
	"fmt"
	"io"
	"os"
)

// exit is swapped in tests; os.Exit cannot be intercepted in-process.
var exit = os.Exit

// Exitf writes a formatted error message to stderr and exits with code 1.
// It provides a consistent fatal-exit pattern for CLI entry points.
func Exitf(format string, args ...any) {
	exitf(os.Stderr, format, args...)
}

func exitf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
	exit(1)
}

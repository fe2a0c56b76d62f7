package main

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/term"
)

// ANSI color codes
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// colorEnabled tracks whether color output is active
var colorEnabled = true

// InitColor configures color output based on flags and terminal detection
func InitColor(enable bool) {
	if !enable {
		colorEnabled = false
		return
	}

	// Honor the NO_COLOR convention (https://no-color.org)
	if _, set := os.LookupEnv("NO_COLOR"); set {
		colorEnabled = false
		return
	}

	colorEnabled = term.IsTerminal(int(os.Stdout.Fd()))
}

// colorize wraps s in the given ANSI code when color is enabled
func colorize(code, s string) string {
	if !colorEnabled {
		return s
	}
	return code + s + ansiReset
}

// Bold returns s in bold
func Bold(s string) string { return colorize(ansiBold, s) }

// Dim returns s dimmed
func Dim(s string) string { return colorize(ansiDim, s) }

// Red returns s in red
func Red(s string) string { return colorize(ansiRed, s) }

// Green returns s in green
func Green(s string) string { return colorize(ansiGreen, s) }

// Yellow returns s in yellow
func Yellow(s string) string { return colorize(ansiYellow, s) }

// Cyan returns s in cyan
func Cyan(s string) string { return colorize(ansiCyan, s) }

// printJSON writes v as indented JSON to stdout
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Fprintln(stdout, string(data))
	return nil
}

// diagnostic prints an operator-facing failure to stdout with the
// conventional prefix. Exit-1 explanations are part of the command's
// output contract, not the log stream, so they do not go to stderr.
func diagnostic(msg string) {
	fmt.Fprintf(stdout, "convergectl: %s\n", msg)
}

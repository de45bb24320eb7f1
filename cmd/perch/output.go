package main

import (
	"fmt"
	"os"
)

// ANSI escapes for terminal output. The --no-color flag suppresses them.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// stderrLine prints one tagged, colored line on stderr.
func stderrLine(color, tag, format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(color, tag+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) {
	stderrLine(colorGreen, "ok: ", format, args...)
}

func printError(format string, args ...any) {
	stderrLine(colorRed, "error: ", format, args...)
}

func printWarning(format string, args ...any) {
	stderrLine(colorYellow, "warning: ", format, args...)
}

// printStatus renders one "label: value" row of the status report.
func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(colorBold, label+":"), val)
}

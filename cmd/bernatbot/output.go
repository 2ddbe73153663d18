package main

import (
	"fmt"
	"io"
	"os"
)

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

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

// printReply writes a chat reply to w. Safety replies are highlighted so
// they stand apart from answers.
func printReply(w io.Writer, r chatReply) {
	text := r.Reply
	if r.Source == "safeguard" {
		text = colorize(colorYellow, text)
	}
	fmt.Fprintln(w, text)
	for _, res := range r.Resources {
		fmt.Fprintf(w, "  %s %s\n", colorize(colorCyan, "→"), res)
	}
	if r.WarningCount > 0 {
		fmt.Fprintf(w, "%s\n", colorize(colorBold, fmt.Sprintf("[%s, warnings: %d]", r.Stage, r.WarningCount)))
	}
}

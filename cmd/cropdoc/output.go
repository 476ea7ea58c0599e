package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
	stepColor    = color.New(color.FgCyan)
	labelColor   = color.New(color.Bold)
)

// applyColorMode disables ANSI output when --no-color is set. fatih/color
// already honours NO_COLOR and non-TTY output.
func applyColorMode() {
	if noColor {
		color.NoColor = true
	}
}

func printSuccess(format string, args ...any) {
	successColor.Fprintln(os.Stderr, "✓ "+fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	errorColor.Fprintln(os.Stderr, "✗ "+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	warnColor.Fprintln(os.Stderr, "⚠ "+fmt.Sprintf(format, args...))
}

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", labelColor.Sprint(label+":"), fmt.Sprintf(format, args...))
}

func printStep(format string, args ...any) {
	stepColor.Fprintln(os.Stderr, "→ "+fmt.Sprintf(format, args...))
}

// field prints one "label: value" line, skipping empty values.
func field(w io.Writer, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(w, "%s %s\n", labelColor.Sprint(label+":"), value)
}

func list(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(w, labelColor.Sprint(label+":"))
	for _, it := range items {
		fmt.Fprintf(w, "  • %s\n", it)
	}
}

// severityColor maps Mild/Moderate/Severe and Low/Medium/High onto colors.
func severityColor(level string) *color.Color {
	switch strings.ToLower(level) {
	case "severe", "high":
		return color.New(color.FgRed, color.Bold)
	case "moderate", "medium":
		return color.New(color.FgYellow, color.Bold)
	case "mild", "low":
		return color.New(color.FgGreen, color.Bold)
	default:
		return color.New(color.Bold)
	}
}

func confidenceLabel(c int) string {
	return fmt.Sprintf("%d%%", c)
}

package ui

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

// Init configures the UI color mode.
func Init(noColor bool) {
	if noColor {
		color.NoColor = true
	}
}

var (
	sectionColor = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	groupColor   = color.New(color.FgMagenta, color.Bold)
)

// Section prints a section heading.
func Section(title string) {
	fmt.Println()
	sectionColor.Println(title)
	sectionColor.Println(strings.Repeat("─", len(title)))
}

// Group prints a group heading.
func Group(name string, count int) {
	fmt.Println()
	groupColor.Printf("▌ %s (%d)\n", name, count)
}

// Success prints a success line.
func Success(format string, args ...interface{}) {
	successColor.Printf("✓ "+format+"\n", args...)
}

// Warning prints a warning line.
func Warning(format string, args ...interface{}) {
	warnColor.Printf("! "+format+"\n", args...)
}

// Error prints an error line to stderr.
func Error(format string, args ...interface{}) {
	errorColor.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

// Table displays data in a formatted table.
func Table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))

	separator := make([]string, len(headers))
	for i := range separator {
		separator[i] = strings.Repeat("-", len(headers[i]))
	}
	fmt.Fprintln(w, strings.Join(separator, "\t"))

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	_ = w.Flush()
}

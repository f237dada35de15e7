// Package output provides terminal output formatting utilities for the
// tracklog CLI. This package is designed to have minimal dependencies
// to avoid import cycles.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// GetTerminalWidth returns the terminal width, defaulting to 80 if unavailable.
func GetTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// PrintPhaseHeader prints a colored pipeline phase header, e.g.
// "[2/4] Resolving tickets...".
func PrintPhaseHeader(out io.Writer, phaseNum, totalPhases int, phaseName string) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	white := color.New(color.FgWhite, color.Bold).SprintFunc()
	fmt.Fprintf(out, "%s %s\n", cyan(fmt.Sprintf("[%d/%d]", phaseNum, totalPhases)), white(phaseName+"..."))
}

// PrintSuccess prints a green checkmark line for a completed step.
func PrintSuccess(out io.Writer, message string) {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(out, "%s %s\n", green("✓"), cyan(message))
}

// PrintWarning prints a yellow warning line.
func PrintWarning(out io.Writer, message string) {
	yellow := color.New(color.FgYellow, color.Bold).SprintFunc()
	fmt.Fprintf(out, "%s %s\n", yellow("!"), message)
}

// PrintSeparator prints a dim full-width separator between the
// operator chrome and the rendered changelog.
func PrintSeparator(out io.Writer) {
	dim := color.New(color.Faint).SprintFunc()
	width := GetTerminalWidth()
	label := " tracklog "
	lineLen := (width - len(label)) / 2
	if lineLen < 3 {
		lineLen = 3
	}
	line := strings.Repeat("─", lineLen)
	fmt.Fprintf(out, "%s%s%s\n", dim(line), dim(label), dim(line))
}

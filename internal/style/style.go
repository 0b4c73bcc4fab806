// Package style provides consistent terminal styling for wsmongo output.
package style

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Bold is used for names and headings.
	Bold = lipgloss.NewStyle().Bold(true)

	// Dim is used for secondary information.
	Dim = lipgloss.NewStyle().Faint(true)

	// Success is used for completed operations.
	Success = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1a7f37", Dark: "#3fb950"})

	// Warning is used for recoverable problems.
	Warning = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9a6700", Dark: "#d29922"})

	// Error is used for failures.
	Error = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f85149"})

	// Info is used for neutral highlights such as hosts and paths.
	Info = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0969da", Dark: "#58a6ff"})

	// Header is used for table headers.
	Header = lipgloss.NewStyle().Bold(true).Padding(0, 1)

	// Cell pads table cells.
	Cell = lipgloss.NewStyle().Padding(0, 1)
)

var (
	SuccessPrefix = Success.Render("✓")
	WarningPrefix = Warning.Render("⚠")
	ErrorPrefix   = Error.Render("✗")
	ArrowPrefix   = Dim.Render("→")
)

// PrintWarning writes a styled warning line to stderr.
func PrintWarning(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", WarningPrefix, fmt.Sprintf(format, args...))
}

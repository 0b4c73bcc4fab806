// Package doctor provides a framework for running health checks on the
// wsmongo home directory and its host tooling.
package doctor

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wsdb/wsmongo/internal/config"
	"github.com/wsdb/wsmongo/internal/style"
)

// ErrCannotFix is returned by Fix on checks that have no automatic fix.
var ErrCannotFix = errors.New("check does not support auto-fix")

// CheckCategory groups checks in the report.
type CheckCategory string

const (
	CategoryInfrastructure CheckCategory = "infrastructure"
	CategoryConfiguration  CheckCategory = "configuration"
	CategoryStorage        CheckCategory = "storage"
)

// categoryOrder is the order categories are printed in.
var categoryOrder = []CheckCategory{CategoryInfrastructure, CategoryConfiguration, CategoryStorage}

// Title returns the heading printed above the category's checks.
func (c CheckCategory) Title() string {
	return cases.Title(language.English).String(string(c))
}

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	// StatusOK indicates the check passed.
	StatusOK CheckStatus = iota
	// StatusWarning indicates a non-critical issue.
	StatusWarning
	// StatusError indicates a critical problem.
	StatusError
)

// String returns a human-readable status.
func (s CheckStatus) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWarning:
		return "Warning"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// CheckContext provides context for running checks.
type CheckContext struct {
	Settings *config.Settings // Loaded settings, including the home directory
	Verbose  bool             // Enable verbose output
}

// CheckResult represents the outcome of a health check.
type CheckResult struct {
	Name     string        // Check name
	Category CheckCategory // Set by Doctor from the check
	Status   CheckStatus   // Result status
	Message string      // Primary result message
	Details []string    // Additional information
	FixHint string      // Suggestion if not auto-fixable
}

// Check defines the interface for a health check.
type Check interface {
	// Name returns the check identifier.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Category returns the report group the check belongs to.
	Category() CheckCategory

	// Run executes the check and returns a result.
	Run(ctx *CheckContext) *CheckResult

	// Fix attempts to automatically fix the issue.
	// Should only be called if CanFix() returns true.
	Fix(ctx *CheckContext) error

	// CanFix returns true if this check can automatically fix issues.
	CanFix() bool
}

// ReportSummary summarizes the results of all checks.
type ReportSummary struct {
	Total    int
	OK       int
	Warnings int
	Errors   int
}

// Report contains all check results and a summary.
type Report struct {
	Timestamp time.Time
	Checks    []*CheckResult
	Summary   ReportSummary
}

// NewReport creates an empty report with the current timestamp.
func NewReport() *Report {
	return &Report{
		Timestamp: time.Now(),
		Checks:    make([]*CheckResult, 0),
	}
}

// Add adds a check result to the report and updates the summary.
func (r *Report) Add(result *CheckResult) {
	r.Checks = append(r.Checks, result)
	r.Summary.Total++

	switch result.Status {
	case StatusOK:
		r.Summary.OK++
	case StatusWarning:
		r.Summary.Warnings++
	case StatusError:
		r.Summary.Errors++
	}
}

// HasErrors returns true if any check reported an error.
func (r *Report) HasErrors() bool {
	return r.Summary.Errors > 0
}

// HasWarnings returns true if any check reported a warning.
func (r *Report) HasWarnings() bool {
	return r.Summary.Warnings > 0
}

// IsHealthy returns true if all checks passed without errors or warnings.
func (r *Report) IsHealthy() bool {
	return r.Summary.Errors == 0 && r.Summary.Warnings == 0
}

// Print outputs the report to the given writer.
func (r *Report) Print(w io.Writer, verbose bool) {
	// Print individual check results, grouped by category
	for _, category := range categoryOrder {
		printed := false
		for _, check := range r.Checks {
			if check.Category != category {
				continue
			}
			if !printed {
				fmt.Fprintln(w, style.Bold.Render(category.Title()))
				printed = true
			}
			r.printCheck(w, check, verbose)
		}
	}
	for _, check := range r.Checks {
		if !knownCategory(check.Category) {
			r.printCheck(w, check, verbose)
		}
	}

	// Print summary
	fmt.Fprintln(w)
	r.printSummary(w)
}

func knownCategory(c CheckCategory) bool {
	for _, known := range categoryOrder {
		if c == known {
			return true
		}
	}
	return false
}

// printCheck outputs a single check result.
func (r *Report) printCheck(w io.Writer, check *CheckResult, verbose bool) {
	var prefix string
	switch check.Status {
	case StatusOK:
		prefix = style.SuccessPrefix
	case StatusWarning:
		prefix = style.WarningPrefix
	case StatusError:
		prefix = style.ErrorPrefix
	}

	fmt.Fprintf(w, "  %s %s: %s\n", prefix, check.Name, check.Message)

	// Print details in verbose mode or for non-OK results
	if len(check.Details) > 0 && (verbose || check.Status != StatusOK) {
		for _, detail := range check.Details {
			fmt.Fprintf(w, "      %s\n", detail)
		}
	}

	// Print fix hint for errors/warnings
	if check.FixHint != "" && check.Status != StatusOK {
		fmt.Fprintf(w, "      %s %s\n", style.ArrowPrefix, check.FixHint)
	}
}

// printSummary outputs the summary line.
func (r *Report) printSummary(w io.Writer) {
	parts := []string{
		fmt.Sprintf("%d checks", r.Summary.Total),
	}

	if r.Summary.OK > 0 {
		parts = append(parts, style.Success.Render(fmt.Sprintf("%d passed", r.Summary.OK)))
	}
	if r.Summary.Warnings > 0 {
		parts = append(parts, style.Warning.Render(fmt.Sprintf("%d warnings", r.Summary.Warnings)))
	}
	if r.Summary.Errors > 0 {
		parts = append(parts, style.Error.Render(fmt.Sprintf("%d errors", r.Summary.Errors)))
	}

	fmt.Fprintln(w, strings.Join(parts, ", "))
}

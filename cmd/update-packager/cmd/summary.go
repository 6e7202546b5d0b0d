package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/oshokin/update-packager/internal/domain/release"
	"github.com/oshokin/update-packager/internal/service/packager"
)

// Styles for the run summary.
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// renderSummary prints one line per processed version and the totals.
func renderSummary(w io.Writer, summary *packager.Summary) {
	_, _ = fmt.Fprintln(w, titleStyle.Render("Update packages"))

	for _, result := range summary.Results {
		_, _ = fmt.Fprintln(w, "  "+resultLine(result))

		if result.Warning != nil {
			_, _ = fmt.Fprintln(w, "    "+warningStyle.Render("warning: "+result.Warning.Error()))
		}
	}

	if len(summary.Results) > 1 || summary.PublishErr != nil {
		if summary.Publish != "" {
			_, _ = fmt.Fprintln(w, "  "+mutedStyle.Render("publish: "+string(summary.Publish)))
		}

		if summary.PublishWarning != nil {
			_, _ = fmt.Fprintln(w, "  "+warningStyle.Render("warning: "+summary.PublishWarning.Error()))
		}

		if summary.PublishErr != nil {
			_, _ = fmt.Fprintln(w, "  "+errorStyle.Render("✘ "+summary.PublishErr.Error()))
		}
	}

	totals := fmt.Sprintf("Succeeded: %d, failed: %d", summary.Succeeded(), summary.Failed())
	if summary.Err() != nil {
		_, _ = fmt.Fprintln(w, errorStyle.Render(totals))

		return
	}

	_, _ = fmt.Fprintln(w, successStyle.Render(totals))
}

// resultLine describes one version outcome.
func resultLine(result *packager.Result) string {
	version := result.Version.String()
	if version == "" {
		version = "-"
	}

	if !result.OK() {
		var stepErr *release.StepError
		if errors.As(result.Err, &stepErr) {
			return errorStyle.Render(fmt.Sprintf("✘ %s failed at %s: %v", version, stepErr.Step, stepErr.Err))
		}

		return errorStyle.Render(fmt.Sprintf("✘ %s: %v", version, result.Err))
	}

	line := fmt.Sprintf("✔ %s %s, %d files", version, result.Path, len(result.Manifest))
	if result.Publish != "" {
		line += ", " + string(result.Publish)
	}

	return successStyle.Render(line)
}

// renderError prints a top-level failure.
func renderError(w io.Writer, err error) {
	_, _ = fmt.Fprintln(w, errorStyle.Render("Error: "+err.Error()))
}

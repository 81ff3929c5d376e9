package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"rosterx/internal/batch"
)

var (
	summaryTitle = lipgloss.NewStyle().Bold(true)
	summaryOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	summaryBad   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	summaryDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	summaryBox   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// renderSummary formats the end-of-run counts and the failed inputs.
func renderSummary(s batch.Summary, output string) string {
	var b strings.Builder
	b.WriteString(summaryTitle.Render("rosterx run complete"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Processed: %d\n", s.Processed)
	fmt.Fprintf(&b, "Succeeded: %s\n", summaryOK.Render(fmt.Sprint(s.Succeeded)))
	failed := fmt.Sprint(s.Failed)
	if s.Failed > 0 {
		failed = summaryBad.Render(failed)
	}
	fmt.Fprintf(&b, "Failed:    %s\n", failed)
	fmt.Fprintf(&b, "Output:    %s", output)

	for _, it := range s.Items {
		if it.State != batch.StateFailed {
			continue
		}
		b.WriteString("\n")
		b.WriteString(summaryDim.Render(fmt.Sprintf("  %s: %v", filepath.Base(it.Path), it.Err)))
	}

	return summaryBox.Render(b.String())
}

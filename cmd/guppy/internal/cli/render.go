package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/guppyfunds/consumer/internal/ingest"
)

const maxListed = 5

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(20)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	panelStyle = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
)

func row(label string, value any) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), fmt.Sprint(value))
}

func listed(style lipgloss.Style, items []string) []string {
	var lines []string

	for i, item := range items {
		if i == maxListed {
			lines = append(lines, style.Render(fmt.Sprintf("  … %d more", len(items)-maxListed)))
			break
		}

		lines = append(lines, style.Render("  "+item))
	}

	return lines
}

func renderDetect(s detectSummary) string {
	lines := []string{
		titleStyle.Render("guppy detect"),
		"",
		row("File", s.File),
		row("Bank", s.Bank),
		row("Columns", s.Columns),
	}

	if s.Rows > 0 || s.Parsed > 0 {
		lines = append(lines,
			row("Rows", s.Rows),
			row("Parsed", okStyle.Render(fmt.Sprint(s.Parsed))),
			row("Unique hashes", s.UniqueHashes),
		)
	}

	if len(s.Skipped) > 0 {
		lines = append(lines, row("Skipped", warnStyle.Render(fmt.Sprint(len(s.Skipped)))))
		lines = append(lines, listed(warnStyle, s.Skipped)...)
	}

	return panelStyle.Render(strings.Join(lines, "\n"))
}

func renderResult(file string, res ingest.ProcessingResult) string {
	ins := res.InsertionResult

	lines := []string{
		titleStyle.Render("guppy ingest"),
		"",
		row("File", file),
		row("Bank", res.BankType),
		row("Rows", res.TotalRowsProcessed),
	}

	if res.Error != "" {
		lines = append(lines, row("Error", errStyle.Render(res.Error)))
	}

	if res.ParsingSuccessful {
		lines = append(lines,
			row("Submitted", ins.TotalSubmitted),
			row("Inserted", okStyle.Render(fmt.Sprint(ins.TotalInserted))),
			row("Duplicates", warnStyle.Render(fmt.Sprint(ins.TotalDuplicates))),
			row("Errors", errStyle.Render(fmt.Sprint(ins.TotalErrors))),
			row("Time", fmt.Sprintf("%dms", ins.ProcessingTimeMs)),
		)
	}

	if len(res.SkippedRows) > 0 {
		lines = append(lines, row("Skipped rows", warnStyle.Render(fmt.Sprint(len(res.SkippedRows)))))
		lines = append(lines, listed(warnStyle, res.SkippedRows)...)
	}

	if len(ins.ErrorDetails) > 0 {
		details := make([]string, 0, len(ins.ErrorDetails))
		for _, d := range ins.ErrorDetails {
			details = append(details, fmt.Sprintf("[%s] %s", d.Code, d.Message))
		}

		lines = append(lines, listed(errStyle, details)...)
	}

	return panelStyle.Render(strings.Join(lines, "\n"))
}

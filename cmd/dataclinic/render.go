package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"dataclinic/internal/store"
	"dataclinic/internal/types"
)

// One badge style per pipeline stage, mirroring the stage tags on LogEntry.
var stageStyles = map[string]lipgloss.Style{
	types.StageAnalysis:  lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true),
	types.StageSynthesis: lipgloss.NewStyle().Foreground(lipgloss.Color("135")).Bold(true),
	types.StageExecution: lipgloss.NewStyle().Foreground(lipgloss.Color("35")).Bold(true),
	types.StageRetry:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
	types.StageError:     lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Bold(true),
	types.StagePipeline:  lipgloss.NewStyle().Foreground(lipgloss.Color("37")).Bold(true),
}

var (
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	detailStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).PaddingLeft(4)
	headerStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
)

// renderLogs prints the audit trail, one timestamped line per entry.
func renderLogs(logs []types.LogEntry) {
	for _, entry := range logs {
		style, ok := stageStyles[entry.Stage]
		if !ok {
			style = lipgloss.NewStyle()
		}
		fmt.Printf("%s %s %s\n",
			timestampStyle.Render("["+entry.Timestamp.Format("15:04:05")+"]"),
			style.Render(strings.ToUpper(entry.Stage)),
			entry.Message)
		if entry.Details != "" && verbose {
			fmt.Println(detailStyle.Render(entry.Details))
		}
	}
}

// renderDiagnosis prints a per-column diagnosis in column-name order.
func renderDiagnosis(d *types.Diagnosis) {
	if d.ParseFailed {
		fmt.Println(headerStyle.Render("Diagnosis (raw - structured extraction failed)"))
		fmt.Println(d.Raw)
		return
	}

	names := make([]string, 0, len(d.Columns))
	for name := range d.Columns {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println(headerStyle.Render("Diagnosis"))
	for _, name := range names {
		col := d.Columns[name]
		fmt.Printf("\nColumn: %s\n", lipgloss.NewStyle().Bold(true).Render(name))
		fmt.Printf("  Type:     %s\n", col.InferredType)
		if len(col.ObservedFormats) > 0 {
			fmt.Printf("  Formats:  %s\n", strings.Join(col.ObservedFormats, " | "))
		}
		if len(col.Problems) > 0 {
			fmt.Printf("  Problems: %s\n", strings.Join(col.Problems, "; "))
		}
		if col.RemediationSuggestion != "" {
			fmt.Printf("  Suggest:  %s\n", col.RemediationSuggestion)
		}
	}
}

// renderSummary prints before/after dataset metrics.
func renderSummary(raw, clean *types.Table) {
	fmt.Println()
	fmt.Println(headerStyle.Render("Summary"))
	fmt.Printf("  Rows:        %d -> %d\n", len(raw.Rows), len(clean.Rows))
	fmt.Printf("  Columns:     %d -> %d\n", len(raw.Columns), len(clean.Columns))
	fmt.Printf("  Empty cells: %d -> %d\n", store.EmptyCells(raw), store.EmptyCells(clean))
}

// renderPreview prints the first rows of a table.
func renderPreview(t *types.Table, n int) {
	fmt.Println("  " + strings.Join(t.Columns, " | "))
	for i, row := range t.Rows {
		if i >= n {
			fmt.Printf("  ... (%d more rows)\n", len(t.Rows)-n)
			break
		}
		fmt.Println("  " + strings.Join(row, " | "))
	}
}

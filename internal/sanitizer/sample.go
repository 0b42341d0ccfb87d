package sanitizer

import (
	"strings"

	"dataclinic/internal/types"
)

// renderSample formats a table as aligned plain text for a prompt. Column
// widths follow the widest value so mixed formats line up visibly.
func renderSample(t *types.Table) string {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = len(c)
	}
	for _, row := range t.Rows {
		for i, v := range row {
			if i < len(widths) && len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, v := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(v)
			if i < len(widths) && len(v) < widths[i] {
				b.WriteString(strings.Repeat(" ", widths[i]-len(v)))
			}
		}
		b.WriteString("\n")
	}

	writeRow(t.Columns)
	for _, row := range t.Rows {
		writeRow(row)
	}
	return strings.TrimRight(b.String(), "\n")
}

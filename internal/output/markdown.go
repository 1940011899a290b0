package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders views as a markdown table.
type MarkdownFormatter struct{}

// Format renders the view as Markdown.
func (f *MarkdownFormatter) Format(view View) (string, error) {
	var sb strings.Builder
	if view.Title != "" {
		sb.WriteString(fmt.Sprintf("## %s\n\n", view.Title))
	}

	if len(view.Columns) > 0 {
		cells := make([]string, len(view.Columns))
		rules := make([]string, len(view.Columns))
		for i, column := range view.Columns {
			cells[i] = escapeMarkdownCell(column)
			rules[i] = strings.Repeat("-", max(len(column), 3))
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		sb.WriteString("|" + strings.Join(rules, "|") + "|\n")
	}

	for _, row := range view.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = escapeMarkdownCell(cell)
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}

	if view.Footer != "" {
		sb.WriteString(fmt.Sprintf("\n**%s**\n", view.Footer))
	}
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.ReplaceAll(value, "|", "\\|")
}

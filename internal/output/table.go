package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders views as an ASCII table.
type TableFormatter struct{}

// Format renders the view as a rounded table.
func (f *TableFormatter) Format(view View) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	if view.Title != "" {
		t.SetTitle(view.Title)
	}

	if len(view.Columns) > 0 {
		t.AppendHeader(toRow(view.Columns))
	}
	for _, row := range view.Rows {
		t.AppendRow(toRow(row))
	}

	if view.Footer != "" {
		footer := make(table.Row, max(len(view.Columns), 1))
		footer[len(footer)-1] = view.Footer
		t.AppendFooter(footer)
	}

	return t.Render(), nil
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, cell := range cells {
		row[i] = cell
	}
	return row
}

package db

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/nickyhof/BatchDB/core"
)

// Table renders rows as a bordered text table. Columns are taken from the
// first row; null values print as NULL.
type Table struct {
	writer  io.Writer
	columns []string
	cells   [][]string
}

func NewTable(w io.Writer) *Table {
	return &Table{writer: w}
}

// Append adds rows to the table.
func (t *Table) Append(rows ...core.Row) {
	for _, row := range rows {
		if t.columns == nil {
			t.columns = row.Columns()
		}
		cells := make([]string, len(t.columns))
		for i, column := range t.columns {
			value, ok := row.Get(column)
			switch {
			case !ok:
			case value.IsNull():
				cells[i] = "NULL"
			default:
				cells[i] = value.String()
			}
		}
		t.cells = append(t.cells, cells)
	}
}

func (t *Table) Render() {
	if len(t.columns) == 0 {
		return
	}

	widths := t.widths()
	separator := separatorLine(widths)

	fmt.Fprintln(t.writer, separator)
	fmt.Fprintln(t.writer, formatLine(t.columns, widths))
	fmt.Fprintln(t.writer, separator)
	for _, cells := range t.cells {
		fmt.Fprintln(t.writer, formatLine(cells, widths))
	}
	fmt.Fprintln(t.writer, separator)
}

func (t *Table) widths() []int {
	widths := make([]int, len(t.columns))
	for i, column := range t.columns {
		widths[i] = max(1, utf8.RuneCountInString(column))
	}
	for _, cells := range t.cells {
		for i, cell := range cells {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}
	return widths
}

func separatorLine(widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("-", w+2)
	}
	return "+" + strings.Join(parts, "+") + "+"
}

func formatLine(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := cells[i]
		parts[i] = " " + cell + strings.Repeat(" ", w-utf8.RuneCountInString(cell)+1)
	}
	return "|" + strings.Join(parts, "|") + "|"
}

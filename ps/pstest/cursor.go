package pstest

import (
	"github.com/nickyhof/BatchDB/core"
)

// Cursor iterates a fixed set of rows. Every row must carry the columns
// of the first row in the same order.
type Cursor struct {
	rows    []core.Row
	columns []string
	index   int
}

func NewCursor(rows []core.Row) *Cursor {
	cursor := &Cursor{rows: rows, index: -1}
	if len(rows) > 0 {
		cursor.columns = rows[0].Columns()
	}
	return cursor
}

func (cursor *Cursor) Columns() []string {
	return cursor.columns
}

func (cursor *Cursor) Next() bool {
	if cursor.index+1 >= len(cursor.rows) {
		return false
	}
	cursor.index++
	return true
}

func (cursor *Cursor) value(index int) core.Value {
	return cursor.rows[cursor.index].Values()[index]
}

func (cursor *Cursor) Type(index int) core.ValueType {
	return cursor.value(index).Type
}

func (cursor *Cursor) Int64(index int) int64 {
	return cursor.value(index).Int
}

func (cursor *Cursor) Float64(index int) float64 {
	return cursor.value(index).Float
}

func (cursor *Cursor) String(index int) string {
	return cursor.value(index).String()
}

func (cursor *Cursor) Err() error {
	return nil
}

func (cursor *Cursor) Close() error {
	return nil
}

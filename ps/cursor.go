package ps

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/nickyhof/BatchDB/core"
)

// sqlCursor scans each row into driver values and reports their storage
// class the way the engine returned them.
type sqlCursor struct {
	rows      *sql.Rows
	columns   []string
	current   []any
	scanErr   error
	translate func(error) error
}

func newSQLCursor(rows *sql.Rows, translate func(error) error) (*sqlCursor, error) {
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, translate(err)
	}
	return &sqlCursor{
		rows:      rows,
		columns:   columns,
		current:   make([]any, len(columns)),
		translate: translate,
	}, nil
}

func (cursor *sqlCursor) Columns() []string {
	return cursor.columns
}

func (cursor *sqlCursor) Next() bool {
	if !cursor.rows.Next() {
		return false
	}

	pointers := make([]any, len(cursor.current))
	for i := range cursor.current {
		pointers[i] = &cursor.current[i]
	}
	if err := cursor.rows.Scan(pointers...); err != nil {
		cursor.scanErr = err
		cursor.rows.Close()
		return false
	}
	return true
}

func (cursor *sqlCursor) Type(index int) core.ValueType {
	switch cursor.current[index].(type) {
	case nil:
		return core.NullType
	case int64, int32, int16, int8, int, uint8, uint16, uint32, bool:
		return core.IntegerType
	case float64, float32:
		return core.FloatType
	default:
		return core.TextType
	}
}

func (cursor *sqlCursor) Int64(index int) int64 {
	switch v := cursor.current[index].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case int8:
		return int64(v)
	case int:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		n, _ := strconv.ParseInt(cursor.String(index), 10, 64)
		return n
	}
}

func (cursor *sqlCursor) Float64(index int) float64 {
	switch v := cursor.current[index].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	default:
		f, _ := strconv.ParseFloat(cursor.String(index), 64)
		return f
	}
}

func (cursor *sqlCursor) String(index int) string {
	switch v := cursor.current[index].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

func (cursor *sqlCursor) Err() error {
	if cursor.scanErr != nil {
		return cursor.scanErr
	}
	return cursor.translate(cursor.rows.Err())
}

func (cursor *sqlCursor) Close() error {
	return cursor.rows.Close()
}

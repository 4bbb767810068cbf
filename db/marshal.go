package db

import (
	"math"

	"github.com/nickyhof/BatchDB/core"
	"github.com/nickyhof/BatchDB/ps"
	"github.com/pkg/errors"
)

// Marshal reads every remaining row of cursor. Columns keep the order the
// cursor declares them in. A cursor without rows yields an empty, non-nil
// slice. A NaN or infinite float fails the whole result set, since it has
// no JSON form.
func Marshal(cursor ps.Cursor) ([]core.Row, error) {
	columns := cursor.Columns()
	rows := []core.Row{}

	for cursor.Next() {
		row := core.NewRow(len(columns))
		for i, column := range columns {
			value := columnValue(cursor, i)
			if value.Type == core.FloatType && (math.IsInf(value.Float, 0) || math.IsNaN(value.Float)) {
				return nil, errors.Errorf("unsupported value in column %s: %v", column, value.Float)
			}
			row.Set(column, value)
		}
		rows = append(rows, row)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func columnValue(cursor ps.Cursor, index int) core.Value {
	switch cursor.Type(index) {
	case core.NullType:
		return core.Null()
	case core.IntegerType:
		return core.Integer(cursor.Int64(index))
	case core.FloatType:
		return core.Float(cursor.Float64(index))
	default:
		return core.Text(cursor.String(index))
	}
}

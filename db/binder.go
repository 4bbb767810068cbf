package db

import (
	"github.com/nickyhof/BatchDB/core"
	"github.com/nickyhof/BatchDB/ps"
)

// Bind assigns params to the statement's placeholders by position,
// starting at 1.
func Bind(statement ps.PreparedStatement, params []core.Parameter) error {
	for i, param := range params {
		index := i + 1

		var err error
		switch param.Type {
		case core.FloatType:
			err = statement.BindFloat64(index, param.Float)
		case core.IntegerType:
			err = statement.BindInt64(index, param.Int)
		case core.NullType:
			err = statement.BindNull(index)
		default:
			err = statement.BindText(index, param.String())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

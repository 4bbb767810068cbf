package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueFromJSONInference(t *testing.T) {
	require := require.New(t)

	var params []Value
	err := json.Unmarshal([]byte(`[null, 1, -7, 1.5, 2.0, 1e3, "text", true, 99999999999999999999]`), &params)
	require.NoError(err)
	require.Len(params, 9)

	require.Equal(Null(), params[0])
	require.Equal(Integer(1), params[1])
	require.Equal(Integer(-7), params[2])
	require.Equal(Float(1.5), params[3])
	require.Equal(Float(2.0), params[4])
	require.Equal(Float(1000), params[5])
	require.Equal(Text("text"), params[6])
	require.Equal(Text("true"), params[7])
	require.Equal(FloatType, params[8].Type)
}

func TestValueStringCoercion(t *testing.T) {
	require := require.New(t)

	require.Equal("", Null().String())
	require.Equal("42", Integer(42).String())
	require.Equal("1.5", Float(1.5).String())
	require.Equal("abc", Text("abc").String())
}

func TestValueMarshalJSON(t *testing.T) {
	require := require.New(t)

	data, err := json.Marshal([]Value{Null(), Integer(3), Float(0.25), Text("x")})
	require.NoError(err)
	require.JSONEq(`[null, 3, 0.25, "x"]`, string(data))
}

func TestRowKeepsColumnOrder(t *testing.T) {
	require := require.New(t)

	row := NewRow(3)
	row.Set("z", Integer(1))
	row.Set("a", Text("first"))
	row.Set("m", Null())
	row.Set("a", Text("second"))

	require.Equal([]string{"z", "a", "m"}, row.Columns())

	data, err := json.Marshal(row)
	require.NoError(err)
	require.Equal(`{"z":1,"a":"second","m":null}`, string(data))

	var decoded Row
	require.NoError(json.Unmarshal(data, &decoded))
	require.Equal(row.Columns(), decoded.Columns())
	v, ok := decoded.Get("a")
	require.True(ok)
	require.Equal(Text("second"), v)
}

func TestOutcomeJSON(t *testing.T) {
	require := require.New(t)

	outcomes := []Outcome{
		Inserted(5),
		RowsAffected(0),
		Rows(nil),
		Failed("constraint failure: UNIQUE constraint failed: t.id", ConstraintErr),
	}

	data, err := json.Marshal(outcomes)
	require.NoError(err)
	require.JSONEq(`[
		{"type":"success","result":{"rowsAffected":1,"insertId":5}},
		{"type":"success","result":{"rowsAffected":0}},
		{"type":"success","result":{"rows":[]}},
		{"type":"error","result":{"message":"constraint failure: UNIQUE constraint failed: t.id","code":6}}
	]`, string(data))

	var decoded []Outcome
	require.NoError(json.Unmarshal(data, &decoded))
	require.Len(decoded, 4)
	require.True(decoded[0].IsSuccess())
	require.Equal(int64(5), *decoded[0].Result.InsertID)
	require.NotNil(decoded[2].Result.Rows)
	require.Empty(decoded[2].Result.Rows)
	require.False(decoded[3].IsSuccess())
	require.Equal(ConstraintErr, decoded[3].Failure.Code)
}

package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type ValueType int

const (
	NullType ValueType = iota
	IntegerType
	FloatType
	TextType
)

func (t ValueType) String() string {
	switch t {
	case NullType:
		return "null"
	case IntegerType:
		return "integer"
	case FloatType:
		return "float"
	case TextType:
		return "text"
	default:
		return fmt.Sprintf("ValueType(%d)", int(t))
	}
}

// Value is a statement parameter or a column value. Only the field matching
// Type is meaningful.
type Value struct {
	Type  ValueType
	Int   int64
	Float float64
	Text  string
}

// Parameter is a Value bound to a statement placeholder.
type Parameter = Value

func Null() Value {
	return Value{Type: NullType}
}

func Integer(v int64) Value {
	return Value{Type: IntegerType, Int: v}
}

func Float(v float64) Value {
	return Value{Type: FloatType, Float: v}
}

func Text(v string) Value {
	return Value{Type: TextType, Text: v}
}

func (v Value) IsNull() bool {
	return v.Type == NullType
}

// Any returns the value as nil, int64, float64 or string.
func (v Value) Any() any {
	switch v.Type {
	case IntegerType:
		return v.Int
	case FloatType:
		return v.Float
	case TextType:
		return v.Text
	default:
		return nil
	}
}

// String returns the text form of the value. Null is the empty string.
func (v Value) String() string {
	switch v.Type {
	case IntegerType:
		return strconv.FormatInt(v.Int, 10)
	case FloatType:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case TextType:
		return v.Text
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case NullType:
		return []byte("null"), nil
	case IntegerType:
		return []byte(strconv.FormatInt(v.Int, 10)), nil
	case FloatType:
		return json.Marshal(v.Float)
	case TextType:
		return json.Marshal(v.Text)
	default:
		return nil, fmt.Errorf("unknown value type: %v", v.Type)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return err
	}

	switch r := raw.(type) {
	case nil:
		*v = Null()
	case json.Number:
		*v = ValueFromNumber(r.String())
	case string:
		*v = Text(r)
	case bool:
		*v = Text(strconv.FormatBool(r))
	default:
		// objects and arrays are passed through as their JSON text
		*v = Text(string(bytes.TrimSpace(data)))
	}
	return nil
}

// ValueFromNumber infers Integer or Float from a numeric literal. Literals
// with a fractional part or exponent are Float, as are whole numbers that
// overflow int64.
func ValueFromNumber(literal string) Value {
	if !strings.ContainsAny(literal, ".eE") {
		if i, err := strconv.ParseInt(literal, 10, 64); err == nil {
			return Integer(i)
		}
	}
	f, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return Text(literal)
	}
	return Float(f)
}

// ValueOf converts a Go value into a Value. Unknown types become Text.
func ValueOf(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case int:
		return Integer(int64(t))
	case int32:
		return Integer(int64(t))
	case int64:
		return Integer(t)
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case string:
		return Text(t)
	case []byte:
		return Text(string(t))
	case json.Number:
		return ValueFromNumber(t.String())
	default:
		return Text(fmt.Sprint(t))
	}
}

package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Row is an ordered column to value mapping. Columns keep the order in
// which they were first set; setting an existing column replaces its value
// in place.
type Row struct {
	columns []string
	values  []Value
}

func NewRow(capacity int) Row {
	return Row{
		columns: make([]string, 0, capacity),
		values:  make([]Value, 0, capacity),
	}
}

func (row *Row) Set(column string, value Value) {
	for i, c := range row.columns {
		if c == column {
			row.values[i] = value
			return
		}
	}
	row.columns = append(row.columns, column)
	row.values = append(row.values, value)
}

func (row Row) Get(column string) (Value, bool) {
	for i, c := range row.columns {
		if c == column {
			return row.values[i], true
		}
	}
	return Value{}, false
}

func (row Row) Columns() []string {
	return row.columns
}

func (row Row) Values() []Value {
	return row.values
}

func (row Row) Len() int {
	return len(row.columns)
}

func (row Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, column := range row.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(column)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := row.values[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (row *Row) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row must be a JSON object, got %v", token)
	}

	*row = NewRow(0)
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return err
		}
		key, _ := keyToken.(string)

		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			return err
		}
		var value Value
		if err := value.UnmarshalJSON(raw); err != nil {
			return err
		}
		row.Set(key, value)
	}

	_, err = decoder.Token()
	return err
}

package core

// Statement is one entry of a batch: an opaque SQL string and its
// positional parameters.
type Statement struct {
	SQL    string  `json:"sql"`
	Params []Value `json:"params"`
}

func NewStatement(sql string, params ...any) Statement {
	values := make([]Value, len(params))
	for i, p := range params {
		values[i] = ValueOf(p)
	}
	return Statement{SQL: sql, Params: values}
}

// Package core provides core types used throughout BatchDB.
//
// The package defines the typed values that flow in and out of a batch,
// the Statement submitted by callers, the ordered Row produced by queries
// and the Outcome recorded for every statement of a batch.
//
// # Values
//
// Parameters and column values share one tagged type:
//
//	core.Null()
//	core.Integer(42)
//	core.Float(3.5)
//	core.Text("hello")
//
// JSON numbers are decoded as Integer when they have no fractional or
// exponent part and fit in 64 bits, otherwise as Float. null decodes as
// Null and everything else as Text.
//
// # Statements
//
//	stmt := core.Statement{
//	    SQL:    "INSERT INTO users (id, name) VALUES (?, ?)",
//	    Params: []core.Value{core.Integer(1), core.Text("Alice")},
//	}
//
// # Outcomes
//
// Every statement of a batch yields exactly one Outcome, either a success
// carrying rowsAffected, insertId and rows, or an error carrying a message
// and a WebSQL-compatible code:
//
//	{"type":"success","result":{"rowsAffected":1,"insertId":7}}
//	{"type":"error","result":{"message":"constraint failure: ...","code":6}}
package core

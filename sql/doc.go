// Package sql provides the statement-level lexing BatchDB needs to route
// statements without parsing them.
//
// Statements are opaque to BatchDB: the storage engine parses and plans
// them. This package only inspects the leading keyword to decide how a
// statement is dispatched, and counts parameter placeholders so bind
// positions can be validated before execution.
//
// # Classification
//
//	statementType, err := sql.Classify("  ;insert into t values (?)")
//	// statementType == sql.InsertStatementType
//
// Leading whitespace and semicolons are skipped and the first token is
// matched case-insensitively against UPDATE, INSERT, DELETE, SELECT, BEGIN,
// COMMIT and ROLLBACK. Any other word is OtherStatementType. A statement
// with no token at all fails with ErrMalformedStatement.
//
// # Placeholders
//
//	n := sql.CountPlaceholders("SELECT * FROM t WHERE a = ? AND b = ?")
//	// n == 2
package sql

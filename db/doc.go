// Package db executes statement batches against one storage handle.
//
// The Executor classifies each statement, binds its parameters, runs it
// and records exactly one outcome per statement. A failing statement never
// stops the statements after it.
//
// # Batch Execution
//
//	executor := db.NewExecutor(false)
//	outcomes := executor.ExecuteBatch(ctx, handle, []core.Statement{
//	    core.NewStatement("BEGIN"),
//	    core.NewStatement("INSERT INTO users (name) VALUES (?)", "alice"),
//	    core.NewStatement("COMMIT"),
//	})
//
// # Outcomes
//
// Mutations report rowsAffected, inserts also report insertId when a row
// was written, and queries report rows (never null). Constraint violations
// carry code 6 and a "constraint failure: " message prefix; every other
// failure carries code 0.
//
// # Transactions
//
// BEGIN, COMMIT and ROLLBACK drive the executor's TxController. COMMIT and
// ROLLBACK always leave it idle, even when the engine call fails, so a
// caller retries by issuing BEGIN again.
package db

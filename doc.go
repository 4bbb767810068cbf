// Package BatchDB runs batches of SQL statements against named databases.
//
// Each open database has one worker that executes its batches strictly in
// submission order, while different databases run in parallel. Every
// statement in a batch gets its own outcome; one failing statement never
// stops the rest of the batch.
//
// # Quick Start
//
//	instance, _ := BatchDB.Open(ctx, BatchDB.Config{BaseDir: "/var/lib/batchdb"})
//	defer instance.Shutdown(ctx)
//
//	instance.OpenSync("app.db", runner.OpenOptions{})
//	outcomes, _ := instance.SubmitSync("app.db", []core.Statement{
//	    core.NewStatement("CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)"),
//	    core.NewStatement("INSERT INTO users (name) VALUES (?)", "Alice"),
//	    core.NewStatement("SELECT * FROM users"),
//	})
//
// # Statements
//
// Statements are classified by their first word:
//   - INSERT, UPDATE, DELETE: prepared, bound and executed as mutations
//   - BEGIN, COMMIT, ROLLBACK: drive the database's transaction state
//   - everything else: executed as a query returning rows
//
// # Storage
//
// SQLite (github.com/mattn/go-sqlite3) is the default engine; DuckDB is
// available with Driver "duckdb". Deleted databases can be archived to S3
// or a git repository first.
package BatchDB

// Package ps provides the storage layer for BatchDB.
//
// Storage is one file per database name, opened through database/sql with
// the SQLite or DuckDB driver. Every Handle pins a single connection so a
// transaction opened by one batch stays visible to the next batch on the
// same database.
//
// # Opening Storage
//
//	engine, err := ps.NewEngine("sqlite3")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	path, _ := ps.NewResolver("/var/lib/batchdb").Path("orders")
//	handle, err := engine.Open(ctx, path, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer handle.Close()
//
// # Prepared Statements
//
// Parameters are bound by 1-based position. Binding past the last
// placeholder fails with ErrBind:
//
//	stmt, _ := handle.Prepare(ctx, "INSERT INTO t (a, b) VALUES (?, ?)")
//	stmt.BindInt64(1, 42)
//	stmt.BindText(2, "hello")
//	id, err := stmt.ExecuteInsert(ctx)
//
// # Archiving
//
// Before a database is deleted its file can be archived to S3 or into a
// git repository:
//
//	archiver, _ := ps.NewArchiver(ctx, "s3://backups/batchdb", ps.ArchiveConfig{})
//	archiver.Archive(ctx, "orders", path)
package ps

package ps

import (
	"fmt"
	"strings"

	"github.com/duckdb/duckdb-go/v2"
	"github.com/mattn/go-sqlite3"
	bsql "github.com/nickyhof/BatchDB/sql"
	"github.com/pkg/errors"
)

// Dialect adapts the database/sql engine to one driver.
type Dialect struct {
	Name       string
	DriverName string

	// DSN builds the data source name for a storage file.
	DSN func(path string) string

	// KeyStatement returns the statement applying an encryption key, or
	// an error when the driver cannot encrypt storage.
	KeyStatement func(key string) (string, error)

	IsConstraint func(err error) bool

	// IsTransient reports errors worth retrying, such as a busy lock held
	// by another process.
	IsTransient func(err error) bool

	Begin    string
	Commit   string
	Rollback string

	// Placeholders decides how "$NNN" parameters are counted.
	Placeholders bsql.PlaceholderStyle

	// Sidecars are suffixes of files the driver keeps next to the storage
	// file.
	Sidecars []string
}

var SQLite = Dialect{
	Name:       "sqlite3",
	DriverName: "sqlite3",
	DSN: func(path string) string {
		return "file:" + path + "?_busy_timeout=5000"
	},
	KeyStatement: func(key string) (string, error) {
		return fmt.Sprintf("PRAGMA key = '%s'", strings.ReplaceAll(key, "'", "''")), nil
	},
	IsConstraint: func(err error) bool {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) {
			return sqliteErr.Code == sqlite3.ErrConstraint
		}
		return false
	},
	IsTransient: func(err error) bool {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) {
			return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
		}
		return false
	},
	Begin:        "BEGIN",
	Commit:       "COMMIT",
	Rollback:     "ROLLBACK",
	Placeholders: bsql.NamedDollar,
	Sidecars:     []string{"-journal", "-wal", "-shm"},
}

var DuckDB = Dialect{
	Name:       "duckdb",
	DriverName: "duckdb",
	DSN: func(path string) string {
		return path
	},
	KeyStatement: func(string) (string, error) {
		return "", errors.New("duckdb: encrypted storage is not supported")
	},
	IsConstraint: func(err error) bool {
		var duckErr *duckdb.Error
		if errors.As(err, &duckErr) {
			return duckErr.Type == duckdb.ErrorTypeConstraint
		}
		return false
	},
	IsTransient: func(error) bool {
		return false
	},
	Begin:        "BEGIN TRANSACTION",
	Commit:       "COMMIT",
	Rollback:     "ROLLBACK",
	Placeholders: bsql.NumberedDollar,
	Sidecars:     []string{".wal"},
}

// LookupDialect returns the dialect registered under name.
func LookupDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "duckdb":
		return DuckDB, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported driver: %s", name)
	}
}

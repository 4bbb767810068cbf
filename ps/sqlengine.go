package ps

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"syscall"

	"github.com/golang/glog"
	"github.com/nickyhof/BatchDB/core"
	bsql "github.com/nickyhof/BatchDB/sql"
	"github.com/pkg/errors"
)

// SQLEngine is an Engine over a database/sql driver. Each Handle pins a
// single connection so that transaction statements and the statements
// inside the transaction share it.
type SQLEngine struct {
	dialect Dialect
}

func NewSQLEngine(dialect Dialect) *SQLEngine {
	return &SQLEngine{dialect: dialect}
}

// NewEngine returns the engine for a driver name ("sqlite3" or "duckdb").
func NewEngine(driver string) (*SQLEngine, error) {
	dialect, err := LookupDialect(driver)
	if err != nil {
		return nil, err
	}
	return NewSQLEngine(dialect), nil
}

func (engine *SQLEngine) Dialect() Dialect {
	return engine.dialect
}

func (engine *SQLEngine) Open(ctx context.Context, path string, key string) (Handle, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrapf(err, "SQLEngine.Open: Problem creating directory for %s", path)
		}
	}

	glog.V(1).Infof("SQLEngine.Open: Opening %s database at %s", engine.dialect.Name, path)

	db, err := sql.Open(engine.dialect.DriverName, engine.dialect.DSN(path))
	if err != nil {
		return nil, errors.Wrapf(err, "SQLEngine.Open: ")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	var conn *sql.Conn
	err = withRetry(ctx, "SQLEngine.Open", engine.dialect.IsTransient, func(ctx context.Context) error {
		var err error
		conn, err = db.Conn(ctx)
		if err != nil {
			return err
		}
		if err = conn.PingContext(ctx); err != nil {
			conn.Close()
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "SQLEngine.Open: Problem connecting to %s", path)
	}

	if key != "" {
		statement, err := engine.dialect.KeyStatement(key)
		if err == nil {
			_, err = conn.ExecContext(ctx, statement)
		}
		if err != nil {
			conn.Close()
			db.Close()
			return nil, errors.Wrapf(err, "SQLEngine.Open: Problem applying key")
		}
	}

	return &sqlHandle{
		db:      db,
		conn:    conn,
		dialect: engine.dialect,
	}, nil
}

func (engine *SQLEngine) Delete(ctx context.Context, path string) error {
	err := withRetry(ctx, "SQLEngine.Delete", isTransientFileError, func(context.Context) error {
		return os.Remove(path)
	})
	if err != nil {
		return errors.Wrapf(ErrDeleteFailed, "%v", err)
	}

	for _, suffix := range engine.dialect.Sidecars {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			glog.Errorf("SQLEngine.Delete: Problem removing %s: %v", path+suffix, err)
		}
	}
	return nil
}

func isTransientFileError(err error) bool {
	return errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.EAGAIN)
}

type sqlHandle struct {
	db      *sql.DB
	conn    *sql.Conn
	dialect Dialect
}

func (handle *sqlHandle) translate(err error) error {
	if err == nil {
		return nil
	}
	if handle.dialect.IsConstraint(err) {
		return &ConstraintError{Err: err}
	}
	return err
}

func (handle *sqlHandle) Prepare(ctx context.Context, query string) (PreparedStatement, error) {
	if handle.conn == nil {
		return nil, ErrHandleClosed
	}

	stmt, err := handle.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, handle.translate(err)
	}

	return &sqlStatement{
		handle: handle,
		stmt:   stmt,
		args:   make([]any, bsql.CountPlaceholdersStyle(query, handle.dialect.Placeholders)),
	}, nil
}

func (handle *sqlHandle) Query(ctx context.Context, query string, args []core.Value) (Cursor, error) {
	if handle.conn == nil {
		return nil, ErrHandleClosed
	}

	values := make([]any, len(args))
	for i, arg := range args {
		values[i] = arg.Any()
	}

	rows, err := handle.conn.QueryContext(ctx, query, values...)
	if err != nil {
		return nil, handle.translate(err)
	}
	return newSQLCursor(rows, handle.translate)
}

func (handle *sqlHandle) exec(ctx context.Context, statement string) error {
	if handle.conn == nil {
		return ErrHandleClosed
	}
	_, err := handle.conn.ExecContext(ctx, statement)
	return handle.translate(err)
}

func (handle *sqlHandle) BeginTransaction(ctx context.Context) error {
	return handle.exec(ctx, handle.dialect.Begin)
}

func (handle *sqlHandle) SetSuccessfulAndEnd(ctx context.Context) error {
	return handle.exec(ctx, handle.dialect.Commit)
}

func (handle *sqlHandle) EndTransaction(ctx context.Context) error {
	return handle.exec(ctx, handle.dialect.Rollback)
}

func (handle *sqlHandle) Close() error {
	if handle.conn == nil {
		return nil
	}
	connErr := handle.conn.Close()
	dbErr := handle.db.Close()
	handle.conn = nil
	handle.db = nil
	if connErr != nil {
		return connErr
	}
	return dbErr
}

type sqlStatement struct {
	handle *sqlHandle
	stmt   *sql.Stmt
	args   []any
}

func (statement *sqlStatement) bind(index int, value any) error {
	if index < 1 || index > len(statement.args) {
		return errors.Wrapf(ErrBind, "index %d, statement has %d placeholders", index, len(statement.args))
	}
	statement.args[index-1] = value
	return nil
}

func (statement *sqlStatement) BindNull(index int) error {
	return statement.bind(index, nil)
}

func (statement *sqlStatement) BindInt64(index int, value int64) error {
	return statement.bind(index, value)
}

func (statement *sqlStatement) BindFloat64(index int, value float64) error {
	return statement.bind(index, value)
}

func (statement *sqlStatement) BindText(index int, value string) error {
	return statement.bind(index, value)
}

func (statement *sqlStatement) ExecuteUpdateDelete(ctx context.Context) (int64, error) {
	result, err := statement.stmt.ExecContext(ctx, statement.args...)
	if err != nil {
		return 0, statement.handle.translate(err)
	}
	return result.RowsAffected()
}

func (statement *sqlStatement) ExecuteInsert(ctx context.Context) (int64, error) {
	result, err := statement.stmt.ExecContext(ctx, statement.args...)
	if err != nil {
		return -1, statement.handle.translate(err)
	}

	if changed, err := result.RowsAffected(); err == nil && changed == 0 {
		return -1, nil
	}
	id, err := result.LastInsertId()
	if err != nil {
		return -1, nil
	}
	return id, nil
}

func (statement *sqlStatement) Close() error {
	return statement.stmt.Close()
}

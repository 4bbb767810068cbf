package ps

import (
	"context"

	"github.com/nickyhof/BatchDB/core"
	"github.com/pkg/errors"
)

var (
	// ErrBind is returned when a parameter position exceeds the statement's
	// placeholder count.
	ErrBind = errors.New("bind index out of range")

	// ErrDeleteFailed is returned when the underlying storage could not be
	// removed.
	ErrDeleteFailed = errors.New("couldn't delete database")

	ErrHandleClosed = errors.New("database handle is closed")
)

// Engine opens and removes the storage behind a database name.
type Engine interface {
	// Open opens the storage file at path, creating it if needed. key is the
	// optional credential for encrypted storage.
	Open(ctx context.Context, path string, key string) (Handle, error)

	// Delete removes the storage file at path and its sidecar files.
	Delete(ctx context.Context, path string) error
}

// Handle is an open connection to one storage file. A Handle is not safe
// for concurrent use; its owner must serialize every call.
type Handle interface {
	Prepare(ctx context.Context, query string) (PreparedStatement, error)

	// Query runs any statement and returns a cursor over its result set,
	// which is empty for statements that produce no rows.
	Query(ctx context.Context, query string, args []core.Value) (Cursor, error)

	BeginTransaction(ctx context.Context) error
	// SetSuccessfulAndEnd commits the open transaction.
	SetSuccessfulAndEnd(ctx context.Context) error
	// EndTransaction ends the open transaction discarding its changes.
	EndTransaction(ctx context.Context) error

	Close() error
}

// PreparedStatement holds positional parameter slots, indexed from 1.
type PreparedStatement interface {
	BindNull(index int) error
	BindInt64(index int, value int64) error
	BindFloat64(index int, value float64) error
	BindText(index int, value string) error

	// ExecuteUpdateDelete runs a row-mutating statement and returns the
	// number of rows it changed.
	ExecuteUpdateDelete(ctx context.Context) (int64, error)

	// ExecuteInsert runs an insert and returns the generated row id, or -1
	// when no row was inserted or the engine reports no id.
	ExecuteInsert(ctx context.Context) (int64, error)

	Close() error
}

// Cursor iterates a result set. Column accessors refer to the current row.
type Cursor interface {
	Columns() []string
	Next() bool
	Type(index int) core.ValueType
	Int64(index int) int64
	Float64(index int) float64
	String(index int) string
	Err() error
	Close() error
}

// ConstraintError marks an engine error caused by a constraint violation.
type ConstraintError struct {
	Err error
}

func (e *ConstraintError) Error() string {
	return e.Err.Error()
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// IsConstraint reports whether err, or any error it wraps, is a constraint
// violation reported by the engine.
func IsConstraint(err error) bool {
	var constraintErr *ConstraintError
	return errors.As(err, &constraintErr)
}

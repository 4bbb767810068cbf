// Package pstest provides an in-memory ps.Engine for tests.
//
// Every handle it returns counts the calls in flight and records a
// violation whenever two goroutines are inside the same handle at once.
package pstest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nickyhof/BatchDB/core"
	"github.com/nickyhof/BatchDB/ps"
	bsql "github.com/nickyhof/BatchDB/sql"
	"github.com/pkg/errors"
)

var (
	ErrNestedTransaction = errors.New("cannot start a transaction within a transaction")
	ErrNoTransaction     = errors.New("cannot commit - no transaction is active")
)

// Engine is a scripted ps.Engine. Statements succeed unless listed in
// Errors; queries return the rows listed in Rows.
type Engine struct {
	// Errors maps a statement text to the error executing it returns.
	Errors map[string]error
	// Rows maps a query text to its result set.
	Rows map[string][]core.Row
	// NoInsertID lists inserts that report no generated id.
	NoInsertID map[string]bool
	// Panics maps a statement text to the value executing it panics with.
	Panics map[string]any

	OpenErr   error
	DeleteErr error

	// Delay is slept inside every handle call to widen race windows.
	Delay time.Duration

	mu         sync.Mutex
	files      map[string]bool
	statements map[string][]string
	deleted    []string
	nextID     int64
	violations int64
	opened     int64
	closed     int64
}

func New() *Engine {
	return &Engine{
		Errors:     make(map[string]error),
		Rows:       make(map[string][]core.Row),
		NoInsertID: make(map[string]bool),
		Panics:     make(map[string]any),
		files:      make(map[string]bool),
		statements: make(map[string][]string),
	}
}

func (engine *Engine) Open(ctx context.Context, path string, key string) (ps.Handle, error) {
	if engine.OpenErr != nil {
		return nil, engine.OpenErr
	}
	engine.mu.Lock()
	engine.files[path] = true
	engine.mu.Unlock()
	atomic.AddInt64(&engine.opened, 1)
	return &Handle{engine: engine, path: path}, nil
}

func (engine *Engine) Delete(ctx context.Context, path string) error {
	if engine.DeleteErr != nil {
		return errors.Wrapf(ps.ErrDeleteFailed, "%v", engine.DeleteErr)
	}
	engine.mu.Lock()
	defer engine.mu.Unlock()
	delete(engine.files, path)
	engine.deleted = append(engine.deleted, path)
	return nil
}

// Exists reports whether path was opened and not deleted since.
func (engine *Engine) Exists(path string) bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.files[path]
}

// Deleted lists the deleted paths in order.
func (engine *Engine) Deleted() []string {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return append([]string(nil), engine.deleted...)
}

// Statements returns the statements executed against path, in order.
func (engine *Engine) Statements(path string) []string {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return append([]string(nil), engine.statements[path]...)
}

// Violations counts the calls that overlapped another call on the same
// handle.
func (engine *Engine) Violations() int64 {
	return atomic.LoadInt64(&engine.violations)
}

// Opened and Closed count handle lifecycles.
func (engine *Engine) Opened() int64 { return atomic.LoadInt64(&engine.opened) }
func (engine *Engine) Closed() int64 { return atomic.LoadInt64(&engine.closed) }

func (engine *Engine) record(path, query string) error {
	engine.mu.Lock()
	engine.statements[path] = append(engine.statements[path], query)
	value, panics := engine.Panics[query]
	err := engine.Errors[query]
	engine.mu.Unlock()

	if panics {
		panic(value)
	}
	return err
}

func (engine *Engine) insertID(query string) int64 {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.NoInsertID[query] {
		return -1
	}
	engine.nextID++
	return engine.nextID
}

func (engine *Engine) rows(query string) []core.Row {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.Rows[query]
}

// Handle is the fake connection returned by Engine.Open.
type Handle struct {
	engine   *Engine
	path     string
	inFlight int32
	inTx     bool
	closed   bool
}

func (handle *Handle) enter() func() {
	if atomic.AddInt32(&handle.inFlight, 1) > 1 {
		atomic.AddInt64(&handle.engine.violations, 1)
	}
	if handle.engine.Delay > 0 {
		time.Sleep(handle.engine.Delay)
	}
	return func() { atomic.AddInt32(&handle.inFlight, -1) }
}

// InTransaction reports whether BEGIN was issued without a matching end.
func (handle *Handle) InTransaction() bool {
	return handle.inTx
}

func (handle *Handle) Prepare(ctx context.Context, query string) (ps.PreparedStatement, error) {
	defer handle.enter()()
	if handle.closed {
		return nil, ps.ErrHandleClosed
	}
	return &Statement{
		handle: handle,
		query:  query,
		args:   make([]core.Value, bsql.CountPlaceholders(query)),
	}, nil
}

func (handle *Handle) Query(ctx context.Context, query string, args []core.Value) (ps.Cursor, error) {
	defer handle.enter()()
	if handle.closed {
		return nil, ps.ErrHandleClosed
	}
	if err := handle.engine.record(handle.path, query); err != nil {
		return nil, err
	}
	return NewCursor(handle.engine.rows(query)), nil
}

func (handle *Handle) BeginTransaction(ctx context.Context) error {
	defer handle.enter()()
	if err := handle.engine.record(handle.path, "BEGIN"); err != nil {
		return err
	}
	if handle.inTx {
		return ErrNestedTransaction
	}
	handle.inTx = true
	return nil
}

func (handle *Handle) SetSuccessfulAndEnd(ctx context.Context) error {
	return handle.end("COMMIT")
}

func (handle *Handle) EndTransaction(ctx context.Context) error {
	return handle.end("ROLLBACK")
}

func (handle *Handle) end(statement string) error {
	defer handle.enter()()
	if err := handle.engine.record(handle.path, statement); err != nil {
		handle.inTx = false
		return err
	}
	if !handle.inTx {
		return ErrNoTransaction
	}
	handle.inTx = false
	return nil
}

func (handle *Handle) Close() error {
	defer handle.enter()()
	if !handle.closed {
		handle.closed = true
		atomic.AddInt64(&handle.engine.closed, 1)
	}
	return nil
}

// Statement is the fake prepared statement.
type Statement struct {
	handle *Handle
	query  string
	args   []core.Value
}

func (statement *Statement) bind(index int, value core.Value) error {
	defer statement.handle.enter()()
	if index < 1 || index > len(statement.args) {
		return errors.Wrapf(ps.ErrBind, "index %d, statement has %d placeholders", index, len(statement.args))
	}
	statement.args[index-1] = value
	return nil
}

// Args returns the values bound so far.
func (statement *Statement) Args() []core.Value {
	return statement.args
}

func (statement *Statement) BindNull(index int) error {
	return statement.bind(index, core.Null())
}

func (statement *Statement) BindInt64(index int, value int64) error {
	return statement.bind(index, core.Integer(value))
}

func (statement *Statement) BindFloat64(index int, value float64) error {
	return statement.bind(index, core.Float(value))
}

func (statement *Statement) BindText(index int, value string) error {
	return statement.bind(index, core.Text(value))
}

func (statement *Statement) ExecuteUpdateDelete(ctx context.Context) (int64, error) {
	defer statement.handle.enter()()
	if err := statement.handle.engine.record(statement.handle.path, statement.query); err != nil {
		return 0, err
	}
	return 1, nil
}

func (statement *Statement) ExecuteInsert(ctx context.Context) (int64, error) {
	defer statement.handle.enter()()
	if err := statement.handle.engine.record(statement.handle.path, statement.query); err != nil {
		return -1, err
	}
	return statement.handle.engine.insertID(statement.query), nil
}

func (statement *Statement) Close() error {
	return nil
}

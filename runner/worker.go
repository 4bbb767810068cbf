package runner

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
	"github.com/nickyhof/BatchDB/db"
	"github.com/nickyhof/BatchDB/ps"
	"github.com/oleiade/lane"
	"github.com/pkg/errors"
)

type State int32

const (
	Opening State = iota
	Running
	Draining
	Closing
	Terminated
)

func (s State) String() string {
	switch s {
	case Opening:
		return "opening"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Closing:
		return "closing"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Worker is the only goroutine that touches its handle. Commands run one
// at a time in the order they were enqueued.
type Worker struct {
	name string
	path string
	key  string

	registry *Registry
	executor *db.Executor
	handle   ps.Handle

	// queueMtx makes the closed check and the append one step, so nothing
	// is enqueued after the worker drained its queue for the last time.
	queueMtx sync.Mutex
	queue    *lane.Deque
	closed   bool
	wakeup   chan struct{}

	state atomic.Int32
	done  chan struct{}
}

func newWorker(registry *Registry, name, path, key string) *Worker {
	return &Worker{
		name:     name,
		path:     path,
		key:      key,
		registry: registry,
		executor: db.NewExecutor(registry.config.LegacyNullAsEmptyText),
		queue:    lane.NewDeque(),
		wakeup:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (w *Worker) Name() string {
	return w.name
}

func (w *Worker) State() State {
	return State(w.state.Load())
}

// Done is closed once the worker has terminated.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) setState(state State) {
	glog.V(2).Infof("Worker.setState: %s %s -> %s", w.name, w.State(), state)
	w.state.Store(int32(state))
}

// enqueue appends cmd to the queue. It returns false once the worker has
// stopped accepting commands.
func (w *Worker) enqueue(cmd Command) bool {
	w.queueMtx.Lock()
	defer w.queueMtx.Unlock()

	if w.closed {
		return false
	}
	w.queue.Append(cmd)

	select {
	case w.wakeup <- struct{}{}:
	default:
	}
	return true
}

func (w *Worker) next() Command {
	for {
		if item := w.queue.Shift(); item != nil {
			return item.(Command)
		}
		<-w.wakeup
	}
}

func (w *Worker) run(ctx context.Context, opened chan<- Reply) {
	defer close(w.done)

	handle, err := w.registry.engine.Open(ctx, w.path, w.key)
	if err != nil {
		glog.Errorf("Worker.run: Problem opening %s: %v", w.name, err)
		w.terminate(ctx, ErrNotOpen)
		deliver(opened, Reply{Err: errors.Errorf("can't open database %v", err)})
		return
	}
	w.handle = handle
	glog.Infof("Worker.run: Opened database %s", w.name)
	w.setState(Running)
	deliver(opened, Reply{})

	for {
		cmd := w.next()
		switch cmd.Type {
		case BatchCommand:
			w.executeBatch(ctx, cmd)

		case CloseCommand:
			err := w.close(ctx, cmd.Delete)
			w.terminate(ctx, ErrClosed)
			deliver(cmd.Reply, Reply{Err: err})
			return

		case StopCommand:
			w.release(ctx)
			w.terminate(ctx, ErrClosed)
			return
		}
	}
}

func (w *Worker) executeBatch(ctx context.Context, cmd Command) {
	if w.handle == nil {
		deliver(cmd.Reply, Reply{Err: ErrClosed})
		return
	}
	outcomes := w.executor.ExecuteBatch(ctx, w.handle, cmd.Statements)
	deliver(cmd.Reply, Reply{Outcomes: outcomes})
}

// release ends any open transaction and closes the handle.
func (w *Worker) release(ctx context.Context) error {
	if w.handle == nil {
		return nil
	}
	w.setState(Draining)
	w.executor.Tx.End(ctx, w.handle)

	w.setState(Closing)
	err := w.handle.Close()
	w.handle = nil
	if err != nil {
		glog.Errorf("Worker.release: Problem closing %s: %v", w.name, err)
		return errors.Wrapf(err, "couldn't close database")
	}
	glog.Infof("Worker.release: Closed database %s", w.name)
	return nil
}

func (w *Worker) close(ctx context.Context, deleteStorage bool) error {
	if err := w.release(ctx); err != nil {
		return err
	}
	if !deleteStorage {
		return nil
	}
	return w.registry.deleteStorage(ctx, w.name, w.path)
}

// terminate stops accepting commands, answers whatever is still queued as
// if the name were not registered and removes the worker from the
// registry. Queued batches fail with reason.
func (w *Worker) terminate(ctx context.Context, reason error) {
	w.queueMtx.Lock()
	w.closed = true
	w.queueMtx.Unlock()

	for !w.queue.Empty() {
		w.registry.unrouted(ctx, w.name, w.path, w.queue.Shift().(Command), reason)
	}

	w.registry.remove(w.name, w)
	w.setState(Terminated)
}

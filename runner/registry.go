package runner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/deso-protocol/go-deadlock"
	"github.com/golang/glog"
	"github.com/nickyhof/BatchDB/core"
	"github.com/nickyhof/BatchDB/ps"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var (
	ErrAlreadyOpen = errors.New("database already open")
	ErrNotOpen     = errors.New("database not open")
	ErrClosed      = errors.New("database has been closed")
)

// AlreadyOpenError is returned when opening a name that is registered.
type AlreadyOpenError struct {
	Name string
}

func (e *AlreadyOpenError) Error() string {
	return fmt.Sprintf("database already open for db name: %s", e.Name)
}

func (e *AlreadyOpenError) Is(target error) bool {
	return target == ErrAlreadyOpen
}

func IsAlreadyOpen(err error) bool {
	return errors.Is(err, ErrAlreadyOpen)
}

type OpenOptions struct {
	// Key is the credential forwarded to the engine for encrypted storage.
	Key string
}

type Config struct {
	// Archiver, when set, keeps a copy of every database before it is
	// deleted.
	Archiver ps.Archiver

	LegacyNullAsEmptyText bool
}

// Registry maps database names to their workers. A name has at most one
// worker; a worker removes itself once its terminal command has run.
type Registry struct {
	ctx      context.Context
	engine   ps.Engine
	resolver ps.Resolver
	config   Config

	mtx     deadlock.RWMutex
	workers map[string]*Worker
}

func NewRegistry(ctx context.Context, engine ps.Engine, resolver ps.Resolver, config Config) *Registry {
	return &Registry{
		ctx:      ctx,
		engine:   engine,
		resolver: resolver,
		config:   config,
		workers:  make(map[string]*Worker),
	}
}

func (registry *Registry) lookup(name string) *Worker {
	registry.mtx.RLock()
	defer registry.mtx.RUnlock()
	return registry.workers[name]
}

func (registry *Registry) remove(name string, worker *Worker) {
	registry.mtx.Lock()
	defer registry.mtx.Unlock()
	if registry.workers[name] == worker {
		delete(registry.workers, name)
	}
}

// Open registers name and starts its worker. The reply is delivered once
// the handle is open or the open failed.
func (registry *Registry) Open(name string, options OpenOptions) <-chan Reply {
	path, err := registry.resolver.Path(name)
	if err != nil {
		return replied(errors.Errorf("can't open database %v", err))
	}

	registry.mtx.Lock()
	if _, exists := registry.workers[name]; exists {
		registry.mtx.Unlock()
		glog.Errorf("Registry.Open: Database %s is already open", name)
		return replied(&AlreadyOpenError{Name: name})
	}
	worker := newWorker(registry, name, path, options.Key)
	registry.workers[name] = worker
	registry.mtx.Unlock()

	reply := newReply()
	go worker.run(registry.ctx, reply)
	return reply
}

// Submit queues a batch on the worker for name.
func (registry *Registry) Submit(name string, statements []core.Statement) <-chan Reply {
	reply := newReply()
	cmd := Command{Type: BatchCommand, Statements: statements, Reply: reply}
	if !registry.route(name, cmd) {
		registry.unrouted(registry.ctx, name, "", cmd, ErrNotOpen)
	}
	return reply
}

// Close queues a close after every command already queued for name.
// Closing a name that is not open succeeds.
func (registry *Registry) Close(name string) <-chan Reply {
	reply := newReply()
	cmd := Command{Type: CloseCommand, Reply: reply}
	if !registry.route(name, cmd) {
		registry.unrouted(registry.ctx, name, "", cmd, ErrNotOpen)
	}
	return reply
}

// Delete closes name like Close and then removes its storage. A name that
// is not open is deleted directly.
func (registry *Registry) Delete(name string) <-chan Reply {
	reply := newReply()
	cmd := Command{Type: CloseCommand, Delete: true, Reply: reply}
	if !registry.route(name, cmd) {
		registry.unrouted(registry.ctx, name, "", cmd, ErrNotOpen)
	}
	return reply
}

func (registry *Registry) route(name string, cmd Command) bool {
	worker := registry.lookup(name)
	return worker != nil && worker.enqueue(cmd)
}

// unrouted answers a command that no running worker will execute.
func (registry *Registry) unrouted(ctx context.Context, name, path string, cmd Command, reason error) {
	switch cmd.Type {
	case BatchCommand:
		deliver(cmd.Reply, Reply{Err: reason})
	case CloseCommand:
		if !cmd.Delete {
			deliver(cmd.Reply, Reply{})
			return
		}
		if path == "" {
			var err error
			if path, err = registry.resolver.Path(name); err != nil {
				deliver(cmd.Reply, Reply{Err: errors.Wrapf(ps.ErrDeleteFailed, "%v", err)})
				return
			}
		}
		deliver(cmd.Reply, Reply{Err: registry.deleteStorage(ctx, name, path)})
	}
}

// deleteStorage archives the storage file, when an archiver is set, and
// removes it.
func (registry *Registry) deleteStorage(ctx context.Context, name, path string) error {
	if registry.config.Archiver != nil {
		if err := registry.config.Archiver.Archive(ctx, name, path); err != nil {
			glog.Errorf("Registry.deleteStorage: Problem archiving %s: %v", name, err)
			return errors.Errorf("%v: %v", ps.ErrDeleteFailed, err)
		}
	}

	if err := registry.engine.Delete(ctx, path); err != nil {
		glog.Errorf("Registry.deleteStorage: Problem deleting %s: %v", name, err)
		return ps.ErrDeleteFailed
	}
	glog.Infof("Registry.deleteStorage: Deleted database %s", name)
	return nil
}

// Names returns the registered names in sorted order.
func (registry *Registry) Names() []string {
	registry.mtx.RLock()
	names := make([]string, 0, len(registry.workers))
	for name := range registry.workers {
		names = append(names, name)
	}
	registry.mtx.RUnlock()

	sort.Strings(names)
	return names
}

// Echo returns value unchanged. Bridges use it as a self-test.
func (registry *Registry) Echo(value string) string {
	return value
}

// CloseAll stops every worker, ending open transactions and closing their
// handles, and waits for them to terminate.
func (registry *Registry) CloseAll(ctx context.Context) error {
	return registry.CloseAllExcept(ctx, "")
}

// CloseAllExcept is CloseAll but keeps names starting with keepPrefix
// open. An empty prefix keeps nothing.
func (registry *Registry) CloseAllExcept(ctx context.Context, keepPrefix string) error {
	registry.mtx.RLock()
	var workers []*Worker
	for name, worker := range registry.workers {
		if keepPrefix != "" && strings.HasPrefix(name, keepPrefix) {
			continue
		}
		workers = append(workers, worker)
	}
	registry.mtx.RUnlock()

	group, ctx := errgroup.WithContext(ctx)
	for _, worker := range workers {
		group.Go(func() error {
			worker.enqueue(Command{Type: StopCommand})
			select {
			case <-worker.Done():
				return nil
			case <-ctx.Done():
				return errors.Wrapf(ctx.Err(), "Registry.CloseAll: Waiting for %s", worker.Name())
			}
		})
	}
	return group.Wait()
}

func wait(reply <-chan Reply) Reply {
	return <-reply
}

// OpenSync is Open waiting for its reply.
func (registry *Registry) OpenSync(name string, options OpenOptions) error {
	return wait(registry.Open(name, options)).Err
}

// SubmitSync is Submit waiting for its reply.
func (registry *Registry) SubmitSync(name string, statements []core.Statement) ([]core.Outcome, error) {
	reply := wait(registry.Submit(name, statements))
	return reply.Outcomes, reply.Err
}

// CloseSync is Close waiting for its reply.
func (registry *Registry) CloseSync(name string) error {
	return wait(registry.Close(name)).Err
}

// DeleteSync is Delete waiting for its reply.
func (registry *Registry) DeleteSync(name string) error {
	return wait(registry.Delete(name)).Err
}

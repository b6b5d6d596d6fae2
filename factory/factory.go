// Package factory implements the function factory: the namespace that
// maps function names to packet functions.
//
// Pipelines resolve their steps through Lookup when they are built and
// call the returned functions on every packet without touching the
// factory again. A function handed out by Lookup stays valid until it
// is unregistered; there is no reference counting, so callers must not
// keep one across an Unregister they did not perform themselves.
//
// Every operation, Lookup included, runs under one mutex. Registration
// happens at configuration time, so the lock is never contended on the
// packet path.
package factory

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/frobware/go-pfq"
)

// NameLen is the fixed size of a function name including its
// terminator; names are truncated to NameLen-1 bytes.
const NameLen = 64

// Entry describes one registered function.
type Entry struct {
	Name       string    `json:"name"`
	Module     string    `json:"module,omitempty"`
	Func       pfq.Func  `json:"-"`
	Registered time.Time `json:"registered"`
}

// DismissFunc is called with the factory lock held, immediately before
// a function is removed by Unregister, so that state built around the
// function can detach from it. It must not call back into the factory
// and must not block.
type DismissFunc func(name string, fn pfq.Func)

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Factory) { f.logger = l }
}

// WithDismiss sets the hook run before each Unregister.
func WithDismiss(d DismissFunc) Option {
	return func(f *Factory) { f.dismiss = d }
}

// WithCapacity bounds the number of entries. Registration beyond the
// bound fails with pfq.ErrOutOfMemory. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(f *Factory) { f.capacity = n }
}

// Factory is the function namespace. The zero value is not usable; use New.
type Factory struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	dismiss  DismissFunc
	capacity int
	logger   *slog.Logger
	now      func() time.Time
}

// New returns an empty Factory.
func New(opts ...Option) *Factory {
	f := &Factory{
		entries: make(map[string]*Entry),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "factory")
	return f
}

// canonical truncates name to the stored length.
func canonical(name string) string {
	if len(name) >= NameLen {
		return name[:NameLen-1]
	}
	return name
}

func funcAddr(fn pfq.Func) string {
	return fmt.Sprintf("%#x", reflect.ValueOf(fn).Pointer())
}

// Register adds fn under name. It fails with pfq.ErrFunctionExists if
// the name is taken; an existing mapping is never replaced. module is
// informational and only used for logging.
func (f *Factory) Register(module, name string, fn pfq.Func) error {
	if name == "" || fn == nil {
		return fmt.Errorf("register %q: %w", name, pfq.ErrInvalid)
	}
	key := canonical(name)

	f.mu.Lock()
	err := f.register(module, key, fn)
	f.mu.Unlock()

	if err != nil {
		f.logger.Debug("register failed", "module", module, "name", key, "error", err)
		return err
	}
	if module != "" {
		f.logger.Info("function registered", "module", module, "name", key, "addr", funcAddr(fn))
	}
	return nil
}

func (f *Factory) register(module, key string, fn pfq.Func) error {
	if _, ok := f.entries[key]; ok {
		return pfq.ErrFunctionExists{Name: key}
	}
	if f.capacity > 0 && len(f.entries) >= f.capacity {
		return pfq.ErrOutOfMemory{Name: key, Capacity: f.capacity}
	}
	f.entries[key] = &Entry{Name: key, Module: module, Func: fn, Registered: f.now()}
	return nil
}

// Unregister removes name after running the dismiss hook on it. It
// fails with pfq.ErrFunctionNotFound if the name is not registered.
func (f *Factory) Unregister(module, name string) error {
	key := canonical(name)

	f.mu.Lock()
	e, ok := f.entries[key]
	if !ok {
		f.mu.Unlock()
		f.logger.Debug("unregister failed", "module", module, "name", key, "error", "no such function")
		return pfq.ErrFunctionNotFound{Name: key}
	}
	if f.dismiss != nil {
		f.dismiss(e.Name, e.Func)
	}
	delete(f.entries, key)
	f.mu.Unlock()

	f.logger.Info("function unregistered", "module", module, "name", key)
	return nil
}

// Lookup returns the function registered under name. An empty name is
// never found.
func (f *Factory) Lookup(name string) (pfq.Func, bool) {
	if name == "" {
		return nil, false
	}
	key := canonical(name)

	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[key]
	if !ok {
		return nil, false
	}
	return e.Func, true
}

// RegisterFunctions registers every entry of table in order. A failing
// entry does not undo the entries before it; the per-entry failures are
// joined into the returned error.
func (f *Factory) RegisterFunctions(module string, table pfq.FunctionTable) error {
	var errs []error
	for _, d := range table {
		if err := f.Register(module, d.Name, d.Func); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UnregisterFunctions is the inverse of RegisterFunctions, with the same
// best-effort semantics.
func (f *Factory) UnregisterFunctions(module string, table pfq.FunctionTable) error {
	var errs []error
	for _, d := range table {
		if err := f.Unregister(module, d.Name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Init registers the given tables, normally the built-in filter,
// forward and steering tables, without a module name.
func (f *Factory) Init(tables ...pfq.FunctionTable) error {
	var errs []error
	for _, t := range tables {
		if err := f.RegisterFunctions("", t); err != nil {
			errs = append(errs, err)
		}
	}
	f.logger.Info("function factory initialized", "functions", f.Len())
	return errors.Join(errs...)
}

// Teardown drops every entry without running the dismiss hook. It is
// meant for shutdown, once nothing can call into pipelines any more.
func (f *Factory) Teardown() {
	f.mu.Lock()
	n := len(f.entries)
	clear(f.entries)
	f.mu.Unlock()

	f.logger.Info("function factory freed", "functions", n)
}

// Len returns the number of registered functions.
func (f *Factory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// List returns a copy of every entry sorted by name.
func (f *Factory) List() []Entry {
	f.mu.Lock()
	out := make([]Entry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, *e)
	}
	f.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

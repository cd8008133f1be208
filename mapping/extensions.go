package mapping

import (
	"fmt"
	"sort"
	"sync"

	"github.com/edicraft/edipipe/edierrors"
	"github.com/edicraft/edipipe/ir"
)

// Func is a named extension-provided callable: it takes the resolved
// argument values for a rule invocation and returns a single Value.
type Func func(values []ir.Value) (ir.Value, error)

// Extension is a process-wide pluggable unit exposing a map of named
// callables. OnInit runs once at registration, before the extension
// becomes visible to lookups; OnCleanup runs once at unregistration
// or during CleanupAll.
type Extension interface {
	Name() string
	OnInit() error
	OnCleanup() error
	Functions() map[string]Func
}

// Registry is a thread-safe, process-wide collection of registered
// Extensions, queried by name.function during mapping execution.
type Registry struct {
	mu         sync.RWMutex
	extensions map[string]Extension
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{extensions: make(map[string]Extension)}
}

// Register runs ext.OnInit and, iff it succeeds, inserts ext into the
// registry under its Name. An init failure leaves the registry
// unchanged.
func (r *Registry) Register(ext Extension) error {
	if err := ext.OnInit(); err != nil {
		return &edierrors.ExtensionError{Name: ext.Name(), Details: "init failed", Cause: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.extensions[ext.Name()] = ext
	return nil
}

// Unregister removes the named extension and invokes its OnCleanup.
// Unregistering an unknown name is a no-op.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	ext, ok := r.extensions[name]
	if ok {
		delete(r.extensions, name)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	if err := ext.OnCleanup(); err != nil {
		return &edierrors.ExtensionError{Name: name, Details: "cleanup failed", Cause: err}
	}
	return nil
}

// CleanupAll drains the registry, invoking every extension's
// OnCleanup, and returns the first error encountered (continuing
// through the remainder regardless).
func (r *Registry) CleanupAll() error {
	r.mu.Lock()
	drained := r.extensions
	r.extensions = make(map[string]Extension)
	r.mu.Unlock()

	var firstErr error
	for name, ext := range drained {
		if err := ext.OnCleanup(); err != nil && firstErr == nil {
			firstErr = &edierrors.ExtensionError{Name: name, Details: "cleanup failed", Cause: err}
		}
	}
	return firstErr
}

// Call invokes extension.function with values. A missing extension or
// function is reported as a MappingError; the function-not-found case
// includes the list of available function names for that extension,
// sorted for determinism.
func (r *Registry) Call(extension, function string, values []ir.Value) (ir.Value, error) {
	r.mu.RLock()
	ext, ok := r.extensions[extension]
	r.mu.RUnlock()
	if !ok {
		return ir.Value{}, &edierrors.MappingError{Details: fmt.Sprintf("extension %q is not registered", extension)}
	}

	fns := ext.Functions()
	fn, ok := fns[function]
	if !ok {
		names := make([]string, 0, len(fns))
		for n := range fns {
			names = append(names, n)
		}
		sort.Strings(names)
		return ir.Value{}, &edierrors.MappingError{
			Details: fmt.Sprintf("extension %q has no function %q; available: %v", extension, function, names),
		}
	}

	return fn(values)
}

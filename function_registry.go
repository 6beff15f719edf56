package sparse

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-sparse/internal/tree"
)

// Function represents a callable registered against evaluators.
type Function func(args ...any) (any, error)

// FunctionRegistry stores custom functions keyed by name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("sparse: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("sparse: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("sparse: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("sparse: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("sparse: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithFunctionRegistry configures the default evaluator to use registry.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the default evaluator.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *config) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithDocumentFunctions registers lookup(node, pointer) and refs(node) so
// expressions can navigate document trees by JSON Pointer.
func WithDocumentFunctions() Option {
	return func(cfg *config) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = RegisterDocumentFunctions(cfg.functions)
	}
}

// RegisterDocumentFunctions adds the document navigation helpers to r.
func RegisterDocumentFunctions(r *FunctionRegistry) error {
	if err := r.Register("lookup", documentLookup); err != nil {
		return err
	}
	return r.Register("refs", documentRefs)
}

func documentLookup(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("sparse: lookup expects (node, pointer), got %d arguments", len(args))
	}
	pointer, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("sparse: lookup pointer must be a string, got %T", args[1])
	}
	return tree.Lookup(args[0], pointer)
}

func documentRefs(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("sparse: refs expects (node), got %d arguments", len(args))
	}
	infos := tree.Refs(args[0])
	out := make([]any, 0, len(infos))
	for _, info := range infos {
		out = append(out, info.Ref)
	}
	return out, nil
}

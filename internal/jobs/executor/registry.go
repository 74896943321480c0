package executor

import (
	"fmt"
	"sync"
)

// Registry maps task names to work functions. Every worker process builds
// the same registry so any backend can run any submitted task.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]WorkFunc
}

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]WorkFunc)}
}

func (r *Registry) Register(name string, fn WorkFunc) error {
	if fn == nil {
		return fmt.Errorf("nil work func")
	}
	if name == "" {
		return fmt.Errorf("task name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("work func already registered for task=%s", name)
	}
	r.funcs[name] = fn
	return nil
}

func (r *Registry) Get(name string) (WorkFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	return out
}

type missingFuncError struct{ Name string }

func (e *missingFuncError) Error() string { return "no work func registered for task=" + e.Name }

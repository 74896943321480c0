package executor

// Hooks observes task state transitions.
type Hooks interface {
	TaskTransition(name string, state State)
}

type NoopHooks struct{}

func (NoopHooks) TaskTransition(string, State) {}

// HooksFunc adapts a function to Hooks.
type HooksFunc func(name string, state State)

func (f HooksFunc) TaskTransition(name string, state State) { f(name, state) }

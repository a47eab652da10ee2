// Package navigation drives the interactive session as an explicit stack
// machine.
//
// Every screen is an Action. Running an Action either returns the next Action
// (descend: the current one is kept on the stack and resumes when the user
// comes back) or nil (go back to the caller). With nothing pending and an
// empty stack the root Action runs again. The loop only ends when Exit
// becomes the current Action.
package navigation

import (
	"context"
	"log/slog"
	"os"
)

// Action is one screen or step of the session.
type Action interface {
	Run(ctx context.Context) Action
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(ctx context.Context) Action

// Run calls f.
func (f ActionFunc) Run(ctx context.Context) Action {
	return f(ctx)
}

type exitAction struct{}

func (exitAction) Run(context.Context) Action { return nil }

// Exit is the terminal Action. When it becomes current the engine calls its
// exit hook with status 0 and stops.
var Exit Action = exitAction{}

type stack struct {
	items []Action
}

func (s *stack) push(a Action) {
	s.items = append(s.items, a)
}

func (s *stack) pop() Action {
	if len(s.items) == 0 {
		return nil
	}
	last := s.items[len(s.items)-1]
	s.items[len(s.items)-1] = nil
	s.items = s.items[:len(s.items)-1]
	return last
}

func (s *stack) len() int {
	return len(s.items)
}

// Engine runs Actions until Exit.
type Engine struct {
	root    Action
	stack   stack
	pending Action
	exit    func(code int)
	done    bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithExitFunc replaces os.Exit as the exit hook.
func WithExitFunc(fn func(code int)) Option {
	return func(e *Engine) {
		e.exit = fn
	}
}

// New creates an Engine starting at root.
func New(root Action, opts ...Option) *Engine {
	e := &Engine{root: root, exit: os.Exit}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Step performs one transition. It reports false once Exit was reached.
func (e *Engine) Step(ctx context.Context) bool {
	if e.done {
		return false
	}

	var current Action
	switch {
	case e.pending != nil:
		current = e.pending
		e.pending = nil
	case e.stack.len() > 0:
		current = e.stack.pop()
	default:
		current = e.root
	}

	if _, ok := current.(exitAction); ok {
		slog.Info("session finished")
		e.done = true
		e.exit(0)
		return false
	}

	next := current.Run(ctx)
	if isNil(next) {
		return true
	}

	e.stack.push(current)
	e.pending = next
	return true
}

// Run steps until Exit or until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	for e.Step(ctx) {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Depth returns the number of Actions waiting on the stack.
func (e *Engine) Depth() int {
	return e.stack.len()
}

// Pending returns the Action that runs next, or nil if the next step pops.
func (e *Engine) Pending() Action {
	return e.pending
}

func isNil(a Action) bool {
	if a == nil {
		return true
	}
	f, ok := a.(ActionFunc)
	return ok && f == nil
}

// Package expressions evaluates rule predicates and JSON queries.
package expressions

import (
	"context"
	"sync"
)

// Engine evaluates a single expression against a set of named values.
// CEL and Expr back the rule tables; GoJQ backs JSON output queries.
type Engine interface {
	Name() string
	// Compile checks an expression and caches its program without running it.
	Compile(expression string) error
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// New returns the engine registered under name, declaring vars where the
// engine needs them up front. Unknown names return ok=false.
func New(name string, vars ...string) (Engine, bool, error) {
	switch name {
	case "cel":
		e, err := NewCELEngine(vars...)
		return e, true, err
	case "expr":
		return NewExprEngine(vars...), true, nil
	case "jq":
		return NewGoJQEngine(), true, nil
	default:
		return nil, false, nil
	}
}

// programCache memoizes compiled programs by expression text.
type programCache[P any] struct {
	mu    sync.RWMutex
	items map[string]P
}

func newProgramCache[P any]() *programCache[P] {
	return &programCache[P]{items: make(map[string]P)}
}

func (c *programCache[P]) get(expression string, compile func() (P, error)) (P, error) {
	c.mu.RLock()
	if p, ok := c.items[expression]; ok {
		c.mu.RUnlock()
		return p, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock.
	if p, ok := c.items[expression]; ok {
		return p, nil
	}

	p, err := compile()
	if err != nil {
		return p, err
	}
	c.items[expression] = p
	return p, nil
}

func (c *programCache[P]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

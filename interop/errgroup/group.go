// Package errgroup provides an adapter that mimics golang.org/x/sync/errgroup
// semantics using the local scope implementation. It enables incremental
// migration without pulling errgroup into the core library.
package errgroup

import (
	"context"
	"sync"

	"github.com/NetPo4ki/go-scoped/backend/gorun"
	"github.com/NetPo4ki/go-scoped/scope"
)

// Group is an errgroup-like wrapper over a scope.Scope (fail-fast).
type Group struct {
	s   *scope.Scope[struct{}]
	ctx context.Context

	mu       sync.Mutex
	firstErr error
}

// WithContext creates a Group bound to ctx. The returned context is canceled
// when any function passed to Go returns a non-nil error.
func WithContext(ctx context.Context) (*Group, context.Context) {
	s := scope.New[struct{}](ctx, gorun.New[struct{}]())
	g := &Group{s: s, ctx: s.Context()}
	return g, g.ctx
}

// Go starts a function. It should return a non-nil error to signal failure.
// Go must not be called after Wait.
func (g *Group) Go(f func() error) {
	if f == nil {
		return
	}
	g.s.Spawn(func(context.Context) (struct{}, error) {
		err := f()
		if err != nil {
			g.mu.Lock()
			if g.firstErr == nil {
				g.firstErr = err
			}
			g.mu.Unlock()
			g.s.Cancel(err)
		}
		return struct{}{}, err
	})
}

// Wait blocks until all functions have returned. It returns the first non-nil
// error (fail-fast semantics) or nil on success.
func (g *Group) Wait() error {
	g.s.Close()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.firstErr
}

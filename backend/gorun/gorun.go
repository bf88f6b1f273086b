// Package gorun adapts the Go runtime scheduler to the backend capabilities.
// Spawn starts one goroutine per task; SpawnLocal serializes tasks on a
// single lazily started runner; SpawnFunc uses a fresh goroutine per callable
// (the runtime has no shutdown, so ErrClosed never occurs here).
package gorun

import (
	"context"
	"sync"

	"github.com/NetPo4ki/go-scoped/backend"
)

// Backend implements all four executor capabilities over bare goroutines.
// A Backend is safe for concurrent use; its only state is the serial lane.
type Backend[T any] struct {
	mu      sync.Mutex
	queue   []localJob[T]
	running bool
}

type localJob[T any] struct {
	ctx  context.Context
	task backend.Task[T]
	h    *handle[T]
}

// New returns a goroutine-backed executor.
func New[T any]() *Backend[T] { return &Backend[T]{} }

type handle[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	val    T
	err    error
}

func newHandle[T any](cancel context.CancelFunc) *handle[T] {
	return &handle[T]{done: make(chan struct{}), cancel: cancel}
}

func (h *handle[T]) Done() <-chan struct{} { return h.done }
func (h *handle[T]) Result() (T, error)    { return h.val, h.err }
func (h *handle[T]) Cancel()               { h.cancel() }

func (h *handle[T]) finish(v T, err error) {
	h.val, h.err = v, err
	close(h.done)
}

// Spawn runs task on its own goroutine.
func (b *Backend[T]) Spawn(ctx context.Context, task backend.Task[T]) backend.Handle[T] {
	ctx, cancel := context.WithCancel(ctx)
	h := newHandle[T](cancel)
	go func() {
		defer cancel()
		h.finish(task(ctx))
	}()
	return h
}

// SpawnLocal enqueues task on the serial lane. The lane's runner goroutine
// starts on demand and exits once the queue is empty.
func (b *Backend[T]) SpawnLocal(ctx context.Context, task backend.Task[T]) backend.Handle[T] {
	ctx, cancel := context.WithCancel(ctx)
	h := newHandle[T](cancel)
	b.mu.Lock()
	b.queue = append(b.queue, localJob[T]{ctx: ctx, task: task, h: h})
	if !b.running {
		b.running = true
		go b.runLocal()
	}
	b.mu.Unlock()
	return h
}

func (b *Backend[T]) runLocal() {
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.running = false
			b.mu.Unlock()
			return
		}
		j := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()
		v, err := j.task(j.ctx)
		j.h.cancel()
		j.h.finish(v, err)
	}
}

// SpawnFunc runs fn on a fresh goroutine. The returned handle's Cancel is a
// no-op: a plain callable has no cancellation points.
func (b *Backend[T]) SpawnFunc(fn backend.Func[T]) backend.Handle[T] {
	h := newHandle[T](func() {})
	go func() {
		h.finish(fn())
	}()
	return h
}

// BlockOn parks the calling goroutine until h completes. Safe to call from
// inside another spawned task; the runtime keeps scheduling everything else.
func (b *Backend[T]) BlockOn(h backend.Handle[T]) (T, error) {
	<-h.Done()
	return h.Result()
}

// Package pool provides a bounded executor backend: the shared lane admits at
// most a fixed number of concurrently running tasks, and SpawnFunc callables
// are served by dedicated long-lived blocking-work goroutines. Close stops
// intake on the blocking lane; callables accepted but never handed to a
// worker complete with backend.ErrClosed.
package pool

import (
	"context"
	"errors"
	"sync"

	"github.com/ygrebnov/errorc"
	"golang.org/x/sync/semaphore"

	"github.com/NetPo4ki/go-scoped/backend"
)

const Namespace = "pool"

// ErrInvalidConfig reports unusable pool sizes.
var ErrInvalidConfig = errors.New(Namespace + ": invalid configuration")

// Pool implements all four executor capabilities with bounded concurrency.
type Pool[T any] struct {
	sem   *semaphore.Weighted
	funcs chan funcJob[T]
	stop  chan struct{}

	mu      sync.Mutex
	queue   []localJob[T]
	running bool
	closed  bool

	workers sync.WaitGroup
}

type funcJob[T any] struct {
	fn backend.Func[T]
	h  *handle[T]
}

type localJob[T any] struct {
	ctx  context.Context
	task backend.Task[T]
	h    *handle[T]
}

// New creates a pool admitting up to workers concurrent shared-lane tasks and
// serving SpawnFunc callables from blockers dedicated goroutines. Call Close
// when done with the pool.
func New[T any](workers, blockers int) (*Pool[T], error) {
	if workers <= 0 {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("", "workers must be > 0"))
	}
	if blockers <= 0 {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("", "blockers must be > 0"))
	}
	p := &Pool[T]{
		sem:   semaphore.NewWeighted(int64(workers)),
		funcs: make(chan funcJob[T]),
		stop:  make(chan struct{}),
	}
	for i := 0; i < blockers; i++ {
		p.workers.Add(1)
		go p.serveFuncs()
	}
	return p, nil
}

func (p *Pool[T]) serveFuncs() {
	defer p.workers.Done()
	for {
		select {
		case j := <-p.funcs:
			j.h.finish(j.fn())
		case <-p.stop:
			return
		}
	}
}

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

func (h *handle[T]) fail(err error) {
	h.err = err
	close(h.done)
}

// Spawn admits task to the shared lane. The task starts once a slot is free;
// cancelling the handle while it is still waiting for a slot retires it with
// the context error.
func (p *Pool[T]) Spawn(ctx context.Context, task backend.Task[T]) backend.Handle[T] {
	ctx, cancel := context.WithCancel(ctx)
	h := newHandle[T](cancel)
	go func() {
		defer cancel()
		if err := p.sem.Acquire(ctx, 1); err != nil {
			h.fail(err)
			return
		}
		defer p.sem.Release(1)
		h.finish(task(ctx))
	}()
	return h
}

// SpawnLocal enqueues task on the pool's serial lane, mirroring gorun's.
func (p *Pool[T]) SpawnLocal(ctx context.Context, task backend.Task[T]) backend.Handle[T] {
	ctx, cancel := context.WithCancel(ctx)
	h := newHandle[T](cancel)
	p.mu.Lock()
	p.queue = append(p.queue, localJob[T]{ctx: ctx, task: task, h: h})
	if !p.running {
		p.running = true
		go p.runLocal()
	}
	p.mu.Unlock()
	return h
}

func (p *Pool[T]) runLocal() {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.running = false
			p.mu.Unlock()
			return
		}
		j := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()
		v, err := j.task(j.ctx)
		j.h.cancel()
		j.h.finish(v, err)
	}
}

// SpawnFunc hands fn to the blocking-work lane. If the pool closes before a
// worker picks it up, the handle completes with backend.ErrClosed.
func (p *Pool[T]) SpawnFunc(fn backend.Func[T]) backend.Handle[T] {
	h := newHandle[T](func() {})
	go func() {
		select {
		case p.funcs <- funcJob[T]{fn: fn, h: h}:
		case <-p.stop:
			h.fail(backend.ErrClosed)
		}
	}()
	return h
}

// BlockOn parks the calling goroutine until h completes.
//
// Re-entrant use from inside a shared-lane task holds that task's slot for
// the duration of the wait; if the awaited handle itself needs a slot, size
// workers so the dependency chain fits, or use the gorun backend.
func (p *Pool[T]) BlockOn(h backend.Handle[T]) (T, error) {
	<-h.Done()
	return h.Result()
}

// Close stops intake on the blocking-work lane and waits for its workers to
// drain. Shared-lane and serial-lane tasks already spawned are unaffected.
// Close is idempotent.
func (p *Pool[T]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	close(p.stop)
	p.workers.Wait()
}

package scope

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/NetPo4ki/go-scoped/backend"
)

type Option func(*Options)

type Options struct {
	PanicAsError   bool
	Observer       Observer
	MaxConcurrency int
}

func defaultOptions() Options { return Options{PanicAsError: true} }

func WithPanicAsError(v bool) Option { return func(o *Options) { o.PanicAsError = v } }

func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

func WithMaxConcurrency(n int) Option { return func(o *Options) { o.MaxConcurrency = n } }

type Observer interface {
	ScopeCreated(ctx context.Context)
	ScopeCancelled(ctx context.Context, cause error)
	ScopeJoined(ctx context.Context, wait time.Duration)
	TaskStarted(ctx context.Context)
	TaskFinished(ctx context.Context, dur time.Duration, err error, panicked bool)
}

// Result is one element of a scope's result sequence: the outcome of a single
// task. Failures are per-element; a scope never aggregates them.
type Result[T any] struct {
	Value T
	Err   error
}

// Scope tracks the in-flight tasks spawned through it. Spawns are accepted
// until the first drain call seals the scope; after that the outputs are
// consumed through Next/All, and Close retires whatever is still outstanding
// before the scope's context is released.
//
// A Scope is owned by a single goroutine: spawning and draining are not safe
// to interleave from multiple goroutines.
type Scope[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	be     backend.Spawner[T]

	opts Options
	obs  Observer
	lim  Limiter

	mu       sync.Mutex
	handles  []backend.Handle[T]
	sealed   bool
	pending  int
	results  chan Result[T]
	canceled bool
	cause    error
	closed   bool
}

// New creates an empty scope bound to the given backend.
func New[T any](parent context.Context, be backend.Spawner[T], optFns ...Option) *Scope[T] {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	s := &Scope[T]{ctx: ctx, cancel: cancel, be: be, opts: defaultOptions()}
	for _, fn := range optFns {
		fn(&s.opts)
	}
	s.obs = s.opts.Observer
	if s.opts.MaxConcurrency > 0 {
		s.lim = newSemaphoreLimiter(s.opts.MaxConcurrency)
	}
	if s.obs != nil {
		s.obs.ScopeCreated(ctx)
	}
	return s
}

func (s *Scope[T]) Context() context.Context { return s.ctx }

// Spawn hands task to the backend's shared lane and registers its handle.
// Panics with ErrScopeSealed if the scope already began draining.
func (s *Scope[T]) Spawn(task backend.Task[T]) {
	if task == nil {
		return
	}
	s.checkOpen()
	s.register(s.be.Spawn(s.ctx, s.wrap(task, true)))
}

// SpawnLocal hands task to the backend's serial lane. Panics with
// ErrCapability if the backend does not implement backend.LocalSpawner.
func (s *Scope[T]) SpawnLocal(task backend.Task[T]) {
	if task == nil {
		return
	}
	ls, ok := s.be.(backend.LocalSpawner[T])
	if !ok {
		panic(fmt.Errorf("%w: SpawnLocal", ErrCapability))
	}
	s.checkOpen()
	s.register(ls.SpawnLocal(s.ctx, s.wrap(task, false)))
}

// SpawnFunc hands a plain callable to the backend's blocking-work lane.
// Panics with ErrCapability if the backend does not implement
// backend.FuncSpawner.
func (s *Scope[T]) SpawnFunc(fn backend.Func[T]) {
	if fn == nil {
		return
	}
	fs, ok := s.be.(backend.FuncSpawner[T])
	if !ok {
		panic(fmt.Errorf("%w: SpawnFunc", ErrCapability))
	}
	s.checkOpen()
	w := s.wrap(func(context.Context) (T, error) { return fn() }, true)
	s.register(fs.SpawnFunc(func() (T, error) { return w(s.ctx) }))
}

// Len reports the number of not-yet-retired task handles. It is a pre-sizing
// hint only; further spawns or retirements invalidate it.
func (s *Scope[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return s.pending
	}
	return len(s.handles)
}

// Cancel cancels the scope's context with the given cause. Cancellation is
// cooperative and not immediate; cancelled tasks are still retired through
// the result sequence. Idempotent.
func (s *Scope[T]) Cancel(cause error) {
	s.mu.Lock()
	wasCanceled := s.canceled
	s.canceled = true
	if s.cause == nil && cause != nil {
		s.cause = cause
	}
	c := s.cause
	s.mu.Unlock()

	s.cancel()
	if !wasCanceled && s.obs != nil {
		s.obs.ScopeCancelled(s.ctx, c)
	}
}

// Next seals the scope on first use and blocks until the next task completes,
// returning its result. ok is false once every handle has been retired. A
// non-nil error means ctx interrupted the wait; the scope is still undrained
// and Close remains mandatory.
func (s *Scope[T]) Next(ctx context.Context) (Result[T], bool, error) {
	s.seal()
	s.mu.Lock()
	if s.pending == 0 {
		s.mu.Unlock()
		return Result[T]{}, false, nil
	}
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case r := <-s.results:
		s.retire()
		return r, true, nil
	case <-ctx.Done():
		return Result[T]{}, false, ctx.Err()
	}
}

// All returns a single-use iterator over the remaining results in completion
// order. The iterator stops early if ctx is cancelled; Close remains the
// caller's obligation in that case.
func (s *Scope[T]) All(ctx context.Context) iter.Seq[Result[T]] {
	return func(yield func(Result[T]) bool) {
		for {
			r, ok, err := s.Next(ctx)
			if err != nil || !ok {
				return
			}
			if !yield(r) {
				return
			}
		}
	}
}

// Close blocks the calling goroutine until every outstanding handle is
// retired, discarding results not yet observed, then releases the scope's
// context. It is the backstop making early release of an undrained scope
// safe, at the cost of a stall. Idempotent.
func (s *Scope[T]) Close() {
	s.seal()
	var start time.Time
	if s.obs != nil {
		start = time.Now()
	}
	for {
		s.mu.Lock()
		if s.pending == 0 {
			alreadyClosed := s.closed
			s.closed = true
			s.mu.Unlock()
			if !alreadyClosed {
				s.cancel()
				if s.obs != nil {
					s.obs.ScopeJoined(s.ctx, time.Since(start))
				}
			}
			return
		}
		s.mu.Unlock()
		<-s.results
		s.retire()
	}
}

// seal transitions the scope into its draining phase: no further spawns are
// accepted, and one forwarder per handle starts retiring handles into the
// results channel. Forwarders use the backend's BlockOn capability when it is
// available. The channel is buffered for every handle, so forwarders never
// outlive the tasks they watch.
func (s *Scope[T]) seal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return
	}
	s.sealed = true
	s.pending = len(s.handles)
	s.results = make(chan Result[T], len(s.handles))
	blocker, _ := s.be.(backend.Blocker[T])
	for _, h := range s.handles {
		go forward(h, blocker, s.results)
	}
	s.handles = nil
}

func forward[T any](h backend.Handle[T], b backend.Blocker[T], out chan<- Result[T]) {
	if b != nil {
		v, err := b.BlockOn(h)
		out <- Result[T]{Value: v, Err: err}
		return
	}
	<-h.Done()
	v, err := h.Result()
	out <- Result[T]{Value: v, Err: err}
}

func (s *Scope[T]) retire() {
	s.mu.Lock()
	s.pending--
	s.mu.Unlock()
}

func (s *Scope[T]) checkOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		panic(ErrScopeSealed)
	}
}

func (s *Scope[T]) register(h backend.Handle[T]) {
	s.mu.Lock()
	s.handles = append(s.handles, h)
	s.mu.Unlock()
}

// wrap applies the limiter, observer hooks, and panic policy around a task.
func (s *Scope[T]) wrap(task backend.Task[T], limited bool) backend.Task[T] {
	return func(ctx context.Context) (out T, err error) {
		if limited && s.lim != nil {
			if aerr := s.lim.Acquire(ctx); aerr != nil {
				return out, aerr
			}
			defer s.lim.Release()
		}
		var start time.Time
		if s.obs != nil {
			start = time.Now()
			s.obs.TaskStarted(ctx)
		}
		defer func() {
			if r := recover(); r != nil {
				if !s.opts.PanicAsError {
					if s.obs != nil {
						s.obs.TaskFinished(ctx, time.Since(start), nil, true)
					}
					panic(r)
				}
				err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
				if s.obs != nil {
					s.obs.TaskFinished(ctx, time.Since(start), err, true)
				}
				return
			}
			if s.obs != nil {
				s.obs.TaskFinished(ctx, time.Since(start), err, false)
			}
		}()
		out, err = task(ctx)
		return out, err
	}
}

// Package backend defines the executor capabilities a Scope consumes. Each
// capability is a separate single-method interface so an adapter can implement
// only the subset its executor supports; the scope core checks for the
// capabilities it needs at spawn time.
package backend

import (
	"context"
	"errors"
)

// Task is one unit of work producing a value of type T. A task must return
// promptly once its context is cancelled.
type Task[T any] func(ctx context.Context) (T, error)

// Func is a plain blocking callable with no cancellation points, intended for
// a lane dedicated to blocking work.
type Func[T any] func() (T, error)

// ErrClosed reports that an executor shut down before running a callable it
// had accepted. It is the distinguishable "never ran" outcome; a missing
// result is never silent.
var ErrClosed = errors.New("backend: executor closed")

// Handle is the join handle of one spawned task.
//
// Done is closed exactly once, when the task has completed, failed, or had
// its cancellation observed to complete. A conforming adapter never leaks an
// accepted task: Done must eventually close.
type Handle[T any] interface {
	// Done is closed once the task outcome is available.
	Done() <-chan struct{}
	// Result reports the outcome. Valid only after Done is closed.
	Result() (T, error)
	// Cancel asks the executor to stop the task. Cancellation is not
	// immediate; the task may still be running. Its completion is reported
	// through Done as usual.
	Cancel()
}

// Spawner runs tasks on any of the executor's workers.
type Spawner[T any] interface {
	Spawn(ctx context.Context, task Task[T]) Handle[T]
}

// LocalSpawner runs tasks on the executor's serial lane: all tasks spawned
// through it execute one at a time, in submission order, on a single
// goroutine. Tasks on the lane may therefore share unsynchronized state with
// each other.
type LocalSpawner[T any] interface {
	SpawnLocal(ctx context.Context, task Task[T]) Handle[T]
}

// FuncSpawner runs plain callables on a lane dedicated to blocking work.
// A callable accepted before shutdown but never run completes with ErrClosed.
type FuncSpawner[T any] interface {
	SpawnFunc(fn Func[T]) Handle[T]
}

// Blocker parks the calling goroutine until h completes and returns its
// outcome. BlockOn must be callable from any goroutine, including the
// executor's own workers: a drain may invoke it re-entrantly from inside a
// task.
type Blocker[T any] interface {
	BlockOn(h Handle[T]) (T, error)
}

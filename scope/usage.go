package scope

import (
	"context"

	"github.com/NetPo4ki/go-scoped/backend"
)

// Create runs fn against a fresh scope and returns the scope undrained along
// with fn's return value. The caller must drive the scope (Next/All) or call
// Close; until then the borrowed state fn's tasks capture must stay valid.
// Close is the backstop if the caller bails out early.
func Create[T, R any](ctx context.Context, be backend.Spawner[T], fn func(*Scope[T]) R, opts ...Option) (*Scope[T], R) {
	s := New[T](ctx, be, opts...)
	out := fn(s)
	return s, out
}

// Block runs fn against a fresh scope and synchronously drains it on the
// calling goroutine, returning fn's value and every task result in completion
// order. Blocking until the drain finishes is what makes this variant safe
// without further caller obligations.
func Block[T, R any](ctx context.Context, be backend.Spawner[T], fn func(*Scope[T]) R, opts ...Option) (R, []Result[T]) {
	s, out := Create(ctx, be, fn, opts...)
	defer s.Close()
	results := make([]Result[T], 0, s.Len())
	for {
		r, ok, _ := s.Next(context.Background())
		if !ok {
			break
		}
		results = append(results, r)
	}
	return out, results
}

// Collect runs fn against a fresh scope and drains it cooperatively under
// ctx, collecting results in completion order. If ctx is cancelled mid-drain
// the scope is cancelled and then drained to completion anyway (blocking),
// and the partial collection is returned with ctx's error; the drain
// guarantee holds on every path.
func Collect[T, R any](ctx context.Context, be backend.Spawner[T], fn func(*Scope[T]) R, opts ...Option) (R, []Result[T], error) {
	s, out := Create(ctx, be, fn, opts...)
	defer s.Close()
	results := make([]Result[T], 0, s.Len())
	for {
		r, ok, err := s.Next(ctx)
		if err != nil {
			s.Cancel(err)
			return out, results, err
		}
		if !ok {
			return out, results, nil
		}
		results = append(results, r)
	}
}

// ForEach runs fn against a fresh scope and feeds every task result through
// each in completion order. A non-nil error from each cancels the scope,
// drains the remainder, and is returned. Ctx cancellation behaves like
// Collect's.
func ForEach[T, R any](ctx context.Context, be backend.Spawner[T], fn func(*Scope[T]) R, each func(context.Context, Result[T]) error, opts ...Option) (R, error) {
	s, out := Create(ctx, be, fn, opts...)
	defer s.Close()
	for {
		r, ok, err := s.Next(ctx)
		if err != nil {
			s.Cancel(err)
			return out, err
		}
		if !ok {
			return out, nil
		}
		if each == nil {
			continue
		}
		if err := each(ctx, r); err != nil {
			s.Cancel(err)
			return out, err
		}
	}
}

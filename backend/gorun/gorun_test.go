package gorun

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/NetPo4ki/go-scoped/backend"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSpawnAndBlockOn(t *testing.T) {
	t.Parallel()
	b := New[int]()
	h := b.Spawn(context.Background(), func(_ context.Context) (int, error) { return 41, nil })
	v, err := b.BlockOn(h)
	if err != nil || v != 41 {
		t.Fatalf("BlockOn = (%d, %v), want (41, nil)", v, err)
	}
}

func TestCancelObservedThroughDone(t *testing.T) {
	t.Parallel()
	b := New[struct{}]()
	h := b.Spawn(context.Background(), func(ctx context.Context) (struct{}, error) {
		<-ctx.Done()
		return struct{}{}, ctx.Err()
	})
	h.Cancel()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("cancelled task never completed")
	}
	if _, err := h.Result(); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSpawnLocalSubmissionOrder(t *testing.T) {
	t.Parallel()
	const N = 16
	b := New[int]()
	var active, violations atomic.Int32
	var order []int
	handles := make([]backend.Handle[int], 0, N)
	for i := 0; i < N; i++ {
		i := i
		handles = append(handles, b.SpawnLocal(context.Background(), func(_ context.Context) (int, error) {
			if active.Add(1) > 1 {
				violations.Add(1)
			}
			order = append(order, i)
			time.Sleep(time.Millisecond)
			active.Add(-1)
			return i, nil
		}))
	}
	for _, h := range handles {
		<-h.Done()
	}
	if violations.Load() != 0 {
		t.Fatalf("serial lane overlapped %d times", violations.Load())
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("serial lane ran out of submission order: %v", order)
		}
	}
}

func TestSpawnFuncRuns(t *testing.T) {
	t.Parallel()
	b := New[string]()
	h := b.SpawnFunc(func() (string, error) { return "done", nil })
	v, err := b.BlockOn(h)
	if err != nil || v != "done" {
		t.Fatalf("SpawnFunc = (%q, %v), want (done, nil)", v, err)
	}
}

func TestBlockOnReentrant(t *testing.T) {
	t.Parallel()
	b := New[int]()
	outer := b.Spawn(context.Background(), func(ctx context.Context) (int, error) {
		inner := b.Spawn(ctx, func(_ context.Context) (int, error) { return 5, nil })
		return b.BlockOn(inner)
	})
	v, err := b.BlockOn(outer)
	if err != nil || v != 5 {
		t.Fatalf("re-entrant BlockOn = (%d, %v), want (5, nil)", v, err)
	}
}

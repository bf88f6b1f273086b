package pool

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

func TestNewValidatesSizes(t *testing.T) {
	t.Parallel()
	if _, err := New[int](0, 1); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for workers=0, got %v", err)
	}
	if _, err := New[int](1, 0); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for blockers=0, got %v", err)
	}
}

func TestSharedLaneBounded(t *testing.T) {
	t.Parallel()
	const workers = 2
	const M = 10
	p, err := New[struct{}](workers, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	var cur, maxSeen atomic.Int64
	handles := make([]backend.Handle[struct{}], 0, M)
	for i := 0; i < M; i++ {
		h := p.Spawn(context.Background(), func(_ context.Context) (struct{}, error) {
			c := cur.Add(1)
			for {
				m := maxSeen.Load()
				if c <= m || maxSeen.CompareAndSwap(m, c) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			cur.Add(-1)
			return struct{}{}, nil
		})
		handles = append(handles, h)
	}
	for _, h := range handles {
		if _, err := p.BlockOn(h); err != nil {
			t.Fatalf("task failed: %v", err)
		}
	}
	if observed := int(maxSeen.Load()); observed > workers {
		t.Fatalf("observed concurrency %d exceeds bound %d", observed, workers)
	}
}

func TestSpawnCancelWhileQueued(t *testing.T) {
	t.Parallel()
	p, err := New[struct{}](1, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	release := make(chan struct{})
	busy := p.Spawn(context.Background(), func(_ context.Context) (struct{}, error) {
		<-release
		return struct{}{}, nil
	})
	queued := p.Spawn(context.Background(), func(_ context.Context) (struct{}, error) {
		return struct{}{}, nil
	})
	time.Sleep(10 * time.Millisecond)
	queued.Cancel()
	if _, err := p.BlockOn(queued); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled for task cancelled in queue, got %v", err)
	}
	close(release)
	if _, err := p.BlockOn(busy); err != nil {
		t.Fatalf("busy task failed: %v", err)
	}
}

func TestSpawnFuncRunsOnBlockers(t *testing.T) {
	t.Parallel()
	p, err := New[int](1, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	h := p.SpawnFunc(func() (int, error) { return 13, nil })
	v, err := p.BlockOn(h)
	if err != nil || v != 13 {
		t.Fatalf("SpawnFunc = (%d, %v), want (13, nil)", v, err)
	}
}

func TestCloseAbandonsQueuedFuncs(t *testing.T) {
	t.Parallel()
	p, err := New[int](1, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	release := make(chan struct{})
	running := p.SpawnFunc(func() (int, error) {
		<-release
		return 1, nil
	})
	time.Sleep(10 * time.Millisecond) // let the worker pick it up
	queued := p.SpawnFunc(func() (int, error) { return 2, nil })

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()

	if _, err := p.BlockOn(queued); !errors.Is(err, backend.ErrClosed) {
		t.Fatalf("expected ErrClosed for abandoned callable, got %v", err)
	}
	close(release)
	if v, err := p.BlockOn(running); err != nil || v != 1 {
		t.Fatalf("in-flight callable = (%d, %v), want (1, nil)", v, err)
	}
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after workers drained")
	}
}

func TestSpawnFuncAfterClose(t *testing.T) {
	t.Parallel()
	p, err := New[int](1, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Close()
	h := p.SpawnFunc(func() (int, error) { return 3, nil })
	if _, err := p.BlockOn(h); !errors.Is(err, backend.ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}

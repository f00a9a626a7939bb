package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type blockingPressure struct {
	release chan struct{}
}

func (p *blockingPressure) Wait(ctx context.Context) error {
	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestNewLimiterSize(t *testing.T) {
	tests := []struct {
		size     int
		expected int
	}{
		{-1, 1},
		{0, 1},
		{1, 1},
		{4, 4},
	}

	for _, tt := range tests {
		if got := NewLimiter(tt.size, nil).Size(); got != tt.expected {
			t.Errorf("NewLimiter(%d).Size() = %d, want %d", tt.size, got, tt.expected)
		}
	}
}

func TestLimiterBoundsConcurrency(t *testing.T) {
	const size = 3
	limiter := NewLimiter(size, nil)

	var running, peak int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := limiter.Do(context.Background(), func() error {
				n := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
			if err != nil {
				t.Errorf("Do() error: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak > size {
		t.Errorf("peak concurrency = %d, want <= %d", peak, size)
	}
	if limiter.InUse() != 0 {
		t.Errorf("InUse() = %d after all work finished", limiter.InUse())
	}
}

func TestLimiterAcquireHonorsContext(t *testing.T) {
	limiter := NewLimiter(1, nil)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	defer limiter.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := limiter.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() on full limiter error = %v, want DeadlineExceeded", err)
	}
}

func TestLimiterWaitsForPressure(t *testing.T) {
	pressure := &blockingPressure{release: make(chan struct{})}
	limiter := NewLimiter(2, pressure)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := limiter.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire() under pressure error = %v, want DeadlineExceeded", err)
	}
	if limiter.InUse() != 0 {
		t.Errorf("InUse() = %d, a slot was taken under pressure", limiter.InUse())
	}

	close(pressure.release)
	called := false
	if err := limiter.Do(context.Background(), func() error { called = true; return nil }); err != nil {
		t.Fatalf("Do() after pressure released error: %v", err)
	}
	if !called {
		t.Error("Do() did not run fn")
	}
}

func TestLimiterDoReturnsError(t *testing.T) {
	limiter := NewLimiter(1, nil)
	want := errors.New("encode failed")

	if err := limiter.Do(context.Background(), func() error { return want }); !errors.Is(err, want) {
		t.Errorf("Do() error = %v, want %v", err, want)
	}
	if limiter.InUse() != 0 {
		t.Error("slot not released after fn error")
	}
}

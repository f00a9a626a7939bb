package workers

import (
	"context"
	"time"

	"thumbnailer/internal/metrics"
)

// Pressure delays new work while a shared resource is exhausted.
// *memory.Monitor implements it.
type Pressure interface {
	Wait(ctx context.Context) error
}

// Limiter bounds the number of thumbnail sessions running at once. Each
// session decodes a full image, so the bound is what keeps memory use
// predictable under load.
type Limiter struct {
	slots    chan struct{}
	pressure Pressure
}

// NewLimiter creates a limiter with size slots. size is raised to 1.
// pressure may be nil.
func NewLimiter(size int, pressure Pressure) *Limiter {
	if size < 1 {
		size = 1
	}
	metrics.WorkersLimit.Set(float64(size))
	return &Limiter{
		slots:    make(chan struct{}, size),
		pressure: pressure,
	}
}

// Acquire blocks until a slot is free and memory pressure allows new
// work, or ctx ends. Every successful Acquire must be paired with Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.WorkerWaitDuration.Observe(time.Since(start).Seconds()) }()

	if l.pressure != nil {
		if err := l.pressure.Wait(ctx); err != nil {
			return err
		}
	}

	select {
	case l.slots <- struct{}{}:
		metrics.WorkersBusy.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	<-l.slots
	metrics.WorkersBusy.Dec()
}

// Do runs fn while holding a slot.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// Size returns the number of slots.
func (l *Limiter) Size() int {
	return cap(l.slots)
}

// InUse returns the number of slots currently held.
func (l *Limiter) InUse() int {
	return len(l.slots)
}

package engine

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// Runner executes one task per partition ordinal. It is the seam an
// external scheduler plugs into; the in-process default is PoolRunner.
//
// Cancellation and timeouts travel through ctx. Task panics are not
// recovered; a retrying scheduler wraps tasks itself.
type Runner interface {
	// Run invokes task for every ordinal in [0, n), blocks until all
	// submitted tasks finish, and returns the joined task errors.
	Run(ctx context.Context, n int, task func(ctx context.Context, ord int) error) error

	// Close releases runner resources. Whoever constructed the runner
	// closes it.
	Close() error
}

// PoolRunner runs tasks on a fixed pool of goroutines, so query load does
// not translate into goroutine churn.
type PoolRunner struct {
	workers  int
	workCh   chan func()
	stopCh   chan struct{}
	wg       sync.WaitGroup
	closed   atomic.Bool
	submitMu sync.RWMutex
}

var _ Runner = (*PoolRunner)(nil)

// NewPoolRunner creates a pool with the given number of workers. A
// non-positive count selects GOMAXPROCS.
func NewPoolRunner(workers int) *PoolRunner {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	r := &PoolRunner{
		workers: workers,
		workCh:  make(chan func(), workers*2),
		stopCh:  make(chan struct{}),
	}

	r.wg.Add(workers)
	for range workers {
		go r.worker()
	}

	return r
}

// Workers returns the pool size.
func (r *PoolRunner) Workers() int { return r.workers }

func (r *PoolRunner) worker() {
	defer r.wg.Done()

	for {
		select {
		case <-r.stopCh:
			// Drain accepted work before exiting.
			for {
				select {
				case work, ok := <-r.workCh:
					if !ok {
						return
					}
					work()
				default:
					return
				}
			}
		case work, ok := <-r.workCh:
			if !ok {
				return
			}
			work()
		}
	}
}

// submit enqueues one work closure, applying backpressure when every worker
// is busy.
func (r *PoolRunner) submit(ctx context.Context, work func()) error {
	r.submitMu.RLock()
	defer r.submitMu.RUnlock()

	if r.closed.Load() {
		return ErrClosed
	}

	select {
	case r.workCh <- work:
		return nil
	case <-r.stopCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run implements Runner. Tasks run concurrently; each task error is
// recorded under its ordinal and the joined error returned after all
// submitted tasks finish.
func (r *PoolRunner) Run(ctx context.Context, n int, task func(ctx context.Context, ord int) error) error {
	if n <= 0 {
		return nil
	}

	errs := make([]error, n)
	var wg sync.WaitGroup

	for ord := range n {
		wg.Add(1)
		err := r.submit(ctx, func() {
			defer wg.Done()
			errs[ord] = task(ctx, ord)
		})
		if err != nil {
			wg.Done()
			errs[ord] = err
			break
		}
	}

	wg.Wait()
	return errors.Join(errs...)
}

// Close stops the workers after draining accepted work. Idempotent.
func (r *PoolRunner) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	r.submitMu.Lock()
	close(r.stopCh)
	close(r.workCh)
	r.submitMu.Unlock()

	r.wg.Wait()
	return nil
}

// SerialRunner runs every task inline on the calling goroutine, one ordinal
// after the other. Useful for tests and tiny collections.
type SerialRunner struct{}

var _ Runner = SerialRunner{}

// Run implements Runner.
func (SerialRunner) Run(ctx context.Context, n int, task func(ctx context.Context, ord int) error) error {
	var errs []error
	for ord := range n {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := task(ctx, ord); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Runner.
func (SerialRunner) Close() error { return nil }

package sandbox

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rendis/codeflow/pkg/schema"
)

// PoolMetrics tracks pool operational counters.
type PoolMetrics struct {
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Rejected  int64 `json:"rejected"`
}

// ErrPoolShutdown is reported when work reaches a shut-down pool.
var ErrPoolShutdown = errors.New("sandbox pool is shut down")

// Pool bounds how many executions run at once. Callers beyond the bound
// wait for a slot or for their context to end.
type Pool struct {
	runner  Runner
	sem     chan struct{}
	wg      sync.WaitGroup
	metrics PoolMetrics
	mu      sync.Mutex
	done    chan struct{}
	closed  bool
}

// NewPool wraps runner with a concurrency bound of size.
func NewPool(runner Runner, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		runner: runner,
		sem:    make(chan struct{}, size),
		done:   make(chan struct{}),
	}
}

// Execute waits for a slot and runs src on the wrapped runner.
func (p *Pool) Execute(ctx context.Context, src string) schema.ExecutionResult {
	if err := p.acquire(ctx); err != nil {
		atomic.AddInt64(&p.metrics.Rejected, 1)
		if errors.Is(err, ErrPoolShutdown) {
			return schema.Failed(schema.ErrCodeInternal, "", err.Error(), 0)
		}
		return schema.Failed(schema.ErrCodeTimeout, "", "Execution cancelled", 0)
	}
	defer p.release()

	res := p.runner.Execute(ctx, src)
	if res.Success {
		atomic.AddInt64(&p.metrics.Completed, 1)
	} else {
		atomic.AddInt64(&p.metrics.Failed, 1)
	}
	return res
}

func (p *Pool) acquire(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolShutdown
	}
	p.mu.Unlock()

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrPoolShutdown
	}

	// wg.Add must happen under the lock so Shutdown's Wait cannot miss it.
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.sem
		return ErrPoolShutdown
	}
	p.wg.Add(1)
	atomic.AddInt64(&p.metrics.Active, 1)
	p.mu.Unlock()
	return nil
}

func (p *Pool) release() {
	atomic.AddInt64(&p.metrics.Active, -1)
	<-p.sem
	p.wg.Done()
}

// Shutdown refuses new work and waits for running executions.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
}

// Metrics returns a snapshot of the pool counters.
func (p *Pool) Metrics() PoolMetrics {
	return PoolMetrics{
		Active:    atomic.LoadInt64(&p.metrics.Active),
		Completed: atomic.LoadInt64(&p.metrics.Completed),
		Failed:    atomic.LoadInt64(&p.metrics.Failed),
		Rejected:  atomic.LoadInt64(&p.metrics.Rejected),
	}
}

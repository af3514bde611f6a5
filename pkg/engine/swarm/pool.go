package swarm

import (
	"context"
	"sync"
	"time"

	"github.com/DrSkyle/cloudreaper/pkg/provider"
)

// Task is a unit of work for the pool.
type Task func(ctx context.Context) error

// Pool runs tasks with a concurrency ceiling steered by AIMD feedback. The
// hard ceiling is the configured limit; throttle responses from the API pull
// the effective limit down below it.
type Pool struct {
	limiter *AIMD

	mu     sync.Mutex
	active int
	cond   *sync.Cond
	wg     sync.WaitGroup

	stats Stats
}

// Stats holds runtime counters for the pool.
type Stats struct {
	TasksCompleted int64
	Throttled      int64
}

// NewPool creates a pool with the given concurrency limit. The limit is the
// AIMD ceiling; the controller starts at the ceiling and backs off only when
// the API pushes back.
func NewPool(limit int) *Pool {
	if limit <= 0 {
		limit = 8
	}
	p := &Pool{
		limiter: NewAIMD(limit, 1, limit),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Go schedules a task, blocking while the pool is at its effective limit.
// The task's error feeds the AIMD controller; throttling errors shrink the
// pool for everyone else.
func (p *Pool) Go(ctx context.Context, task Task) {
	p.acquire()
	p.wg.Add(1)

	go func() {
		defer func() {
			p.release()
			p.wg.Done()
		}()

		start := time.Now()
		err := task(ctx)
		latency := time.Since(start)

		throttled := err != nil && provider.IsKind(err, provider.ErrorKindThrottled)
		p.limiter.Feedback(latency, throttled)

		p.mu.Lock()
		p.stats.TasksCompleted++
		if throttled {
			p.stats.Throttled++
		}
		p.mu.Unlock()
	}()
}

// Wait blocks until every scheduled task has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// GetStats returns a snapshot of the pool counters.
func (p *Pool) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Pool) acquire() {
	p.mu.Lock()
	for p.active >= p.limiter.Concurrency() {
		p.cond.Wait()
	}
	p.active++
	p.mu.Unlock()
}

func (p *Pool) release() {
	p.mu.Lock()
	p.active--
	p.mu.Unlock()
	p.cond.Broadcast()
}

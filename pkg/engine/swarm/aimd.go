// Package swarm provides the bounded worker pool that fans out read-only
// discovery and independent-subtree execution. Cloud APIs throttle; the pool
// adapts its concurrency with an AIMD controller instead of hammering a
// fixed worker count.
package swarm

import (
	"sync"
	"time"
)

// AIMD is an additive-increase multiplicative-decrease concurrency
// controller. Throttle feedback halves the limit; sustained healthy latency
// grows it back linearly.
type AIMD struct {
	mu          sync.Mutex
	concurrency int
	minWorkers  int
	maxWorkers  int
	lastChange  time.Time
}

func NewAIMD(start, min, max int) *AIMD {
	return &AIMD{
		concurrency: start,
		minWorkers:  min,
		maxWorkers:  max,
		lastChange:  time.Now(),
	}
}

func (a *AIMD) Concurrency() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.concurrency
}

// Feedback reports one completed task. Changes are dampened so a burst of
// results cannot oscillate the limit.
func (a *AIMD) Feedback(latency time.Duration, throttled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	if now.Sub(a.lastChange) < 100*time.Millisecond {
		return
	}

	if throttled {
		a.concurrency /= 2
		if a.concurrency < a.minWorkers {
			a.concurrency = a.minWorkers
		}
		a.lastChange = now
		return
	}

	if latency < 200*time.Millisecond && a.concurrency < a.maxWorkers {
		a.concurrency++
		a.lastChange = now
	}
}

package swarm

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/smithy-go"
)

func TestPoolRunsAllTasks(t *testing.T) {
	p := NewPool(4)
	var count int64

	for i := 0; i < 20; i++ {
		p.Go(context.Background(), func(ctx context.Context) error {
			atomic.AddInt64(&count, 1)
			return nil
		})
	}
	p.Wait()

	if count != 20 {
		t.Errorf("Expected 20 completed tasks, got %d", count)
	}
	if got := p.GetStats().TasksCompleted; got != 20 {
		t.Errorf("Expected stats to report 20, got %d", got)
	}
}

func TestPoolHonorsLimit(t *testing.T) {
	p := NewPool(3)
	var active, peak int64
	var mu sync.Mutex

	for i := 0; i < 12; i++ {
		p.Go(context.Background(), func(ctx context.Context) error {
			cur := atomic.AddInt64(&active, 1)
			mu.Lock()
			if cur > peak {
				peak = cur
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&active, -1)
			return nil
		})
	}
	p.Wait()

	if peak > 3 {
		t.Errorf("Concurrency peaked at %d, limit was 3", peak)
	}
}

func TestPoolCountsThrottles(t *testing.T) {
	p := NewPool(2)
	p.Go(context.Background(), func(ctx context.Context) error {
		return &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}
	})
	p.Go(context.Background(), func(ctx context.Context) error {
		return nil
	})
	p.Wait()

	if got := p.GetStats().Throttled; got != 1 {
		t.Errorf("Expected 1 throttled task, got %d", got)
	}
}

package swarm

import (
	"testing"
	"time"
)

func TestAIMD_Feedback(t *testing.T) {
	aimd := NewAIMD(10, 2, 16)

	if aimd.Concurrency() != 10 {
		t.Errorf("Expected initial concurrency 10, got %d", aimd.Concurrency())
	}

	// Additive increase on healthy latency. Wait past the damping window.
	time.Sleep(110 * time.Millisecond)
	aimd.Feedback(50*time.Millisecond, false)
	if aimd.Concurrency() != 11 {
		t.Errorf("Expected concurrency 11 after success, got %d", aimd.Concurrency())
	}

	// Multiplicative decrease on throttle.
	time.Sleep(110 * time.Millisecond)
	aimd.Feedback(500*time.Millisecond, true)
	if aimd.Concurrency() != 5 {
		t.Errorf("Expected concurrency 5 after throttle, got %d", aimd.Concurrency())
	}

	// Floor holds.
	time.Sleep(110 * time.Millisecond)
	aimd.Feedback(500*time.Millisecond, true)
	time.Sleep(110 * time.Millisecond)
	aimd.Feedback(500*time.Millisecond, true)
	time.Sleep(110 * time.Millisecond)
	aimd.Feedback(500*time.Millisecond, true)
	if aimd.Concurrency() < 2 {
		t.Errorf("Concurrency dropped below min limit: %d", aimd.Concurrency())
	}
}

func TestAIMD_DampsBursts(t *testing.T) {
	aimd := NewAIMD(4, 1, 16)

	time.Sleep(110 * time.Millisecond)
	aimd.Feedback(10*time.Millisecond, false)
	// Immediately following feedback is inside the damping window.
	aimd.Feedback(10*time.Millisecond, false)
	aimd.Feedback(10*time.Millisecond, false)

	if got := aimd.Concurrency(); got != 5 {
		t.Errorf("Expected a single increase to 5, got %d", got)
	}
}

func TestAIMD_CeilingHolds(t *testing.T) {
	aimd := NewAIMD(4, 1, 4)
	time.Sleep(110 * time.Millisecond)
	aimd.Feedback(10*time.Millisecond, false)
	if got := aimd.Concurrency(); got != 4 {
		t.Errorf("Expected concurrency to stay at ceiling 4, got %d", got)
	}
}

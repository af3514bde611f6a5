// Package tracker polls dependent resources until they reach a terminal
// state or the wait budget runs out. Deletion on most cloud APIs is
// eventually consistent: the call returns immediately and the resource winds
// down on its own schedule.
package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DrSkyle/cloudreaper/pkg/provider"
)

// Status is the per-resource tracking outcome.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusSuccess  Status = "TerminalSuccess"
	StatusFailure  Status = "TerminalFailure"
	StatusTimedOut Status = "TimedOut"
)

// Terminal reports whether a status ends tracking for a resource.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Tracker drives the Pending -> {TerminalSuccess, TerminalFailure, TimedOut}
// state machine for a batch of resources.
type Tracker struct {
	States       provider.StateFetcher
	Terminal     provider.TerminalStates
	PollInterval time.Duration
	MaxWait      time.Duration
	Logger       *slog.Logger
}

// Await polls the full pending set each tick until every id is terminal or
// MaxWait elapses. Ids still pending at the deadline, or when the context is
// cancelled, are reported as TimedOut — never silently dropped and never
// counted as success.
func (t *Tracker) Await(ctx context.Context, ids []string) map[string]Status {
	statuses := make(map[string]Status, len(ids))
	for _, id := range ids {
		statuses[id] = StatusPending
	}
	if len(ids) == 0 {
		return statuses
	}

	deadline := time.Now().Add(t.MaxWait)

	// First check happens immediately; dependents that were already gone
	// should not cost a full poll interval.
	t.checkPending(ctx, statuses)

	ticker := time.NewTicker(t.PollInterval)
	defer ticker.Stop()

	for t.anyPending(statuses) {
		select {
		case <-ctx.Done():
			t.expirePending(statuses, "cancelled")
			return statuses
		case <-ticker.C:
			if time.Now().After(deadline) {
				// A dependent may have terminated inside the final
				// poll interval; look once more before expiring.
				t.checkPending(ctx, statuses)
				t.expirePending(statuses, "wait budget exhausted")
				return statuses
			}
			t.checkPending(ctx, statuses)
		}
	}
	return statuses
}

func (t *Tracker) checkPending(ctx context.Context, statuses map[string]Status) {
	for id, st := range statuses {
		if st.Terminal() {
			continue
		}

		state, err := t.States.FetchState(ctx, id)
		if err != nil {
			// A vanished resource reached the desired end state.
			if provider.IsKind(err, provider.ErrorKindNotFound) {
				statuses[id] = StatusSuccess
				continue
			}
			if t.Logger != nil {
				t.Logger.Warn("state fetch failed, resource stays pending",
					"resource", id, "error", provider.FormatUserError(err))
			}
			continue
		}

		if _, ok := t.Terminal.Success[state]; ok {
			statuses[id] = StatusSuccess
			continue
		}
		if _, ok := t.Terminal.Failure[state]; ok {
			statuses[id] = StatusFailure
		}
	}
}

func (t *Tracker) anyPending(statuses map[string]Status) bool {
	for _, st := range statuses {
		if !st.Terminal() {
			return true
		}
	}
	return false
}

func (t *Tracker) expirePending(statuses map[string]Status, why string) {
	for id, st := range statuses {
		if st.Terminal() {
			continue
		}
		statuses[id] = StatusTimedOut
		if t.Logger != nil {
			t.Logger.Warn("completion wait expired", "resource", id, "cause", why)
		}
	}
}

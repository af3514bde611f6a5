// Package provider defines the boundary between the retirement engine and the
// per-service cloud adapters. The engine depends only on these interfaces;
// pkg/provider/aws supplies the real implementations.
package provider

import (
	"context"
	"time"

	"github.com/DrSkyle/cloudreaper/pkg/resource"
)

// Event is a single resource-bearing entry from an append-only activity log.
// ResourceID may be a bare id or an ARN-style qualified name; consumers
// normalize before use.
type Event struct {
	ResourceID string
	EventName  string
	EventTime  time.Time
}

// Disposition describes what a successful Delete call did, or in dry-run
// mode, what it would have done.
type Disposition string

const (
	// DispositionDeleted means the resource is gone, or already was.
	DispositionDeleted Disposition = "Deleted"
	// DispositionScheduled means deletion was scheduled with a pending
	// window during which it can still be cancelled.
	DispositionScheduled Disposition = "ScheduledForDeletion"
)

// CandidateLister enumerates every candidate resource in the domain.
// Implementations must paginate to exhaustion; a partial listing is a
// contract violation.
type CandidateLister interface {
	ListCandidates(ctx context.Context) ([]resource.Resource, error)
}

// LiveReferenceLister returns the ids currently referenced by at least one
// holder object (running instance, attached ENI, live app). The full holder
// population must be enumerated before returning.
type LiveReferenceLister interface {
	ListLiveReferences(ctx context.Context) (map[string]struct{}, error)
}

// HistoricalEventLooker scans the activity log once for the whole lookback
// window. Implementations return ErrUnavailable (wrapped) when the log source
// is disabled or access is denied.
type HistoricalEventLooker interface {
	LookupHistoricalEvents(ctx context.Context, start time.Time) ([]Event, error)
}

// DependentLister enumerates the direct dependents of a resource, the
// children that must be removed before the resource itself.
type DependentLister interface {
	ListDependents(ctx context.Context, id string) ([]resource.Resource, error)
}

// StateFetcher re-fetches the current lifecycle state of a resource.
type StateFetcher interface {
	FetchState(ctx context.Context, id string) (string, error)
}

// Deleter performs the destructive call. When dryRun is true no mutating
// request may be issued; the returned disposition is what the real call
// would have produced.
type Deleter interface {
	Delete(ctx context.Context, id string, dryRun bool) (Disposition, error)
}

// ResourceProvider is the full adapter surface for one retirement domain.
type ResourceProvider interface {
	// Domain names the resource domain, e.g. "ami" or "kms".
	Domain() string

	CandidateLister
	LiveReferenceLister
	HistoricalEventLooker
	DependentLister
	StateFetcher
	Deleter
}

// TerminalStates describes the states the CompletionTracker treats as final
// for a domain's dependents.
type TerminalStates struct {
	Success map[string]struct{}
	Failure map[string]struct{}
}

// NewTerminalStates builds the success/failure sets from slices.
func NewTerminalStates(success, failure []string) TerminalStates {
	ts := TerminalStates{
		Success: make(map[string]struct{}, len(success)),
		Failure: make(map[string]struct{}, len(failure)),
	}
	for _, s := range success {
		ts.Success[s] = struct{}{}
	}
	for _, s := range failure {
		ts.Failure[s] = struct{}{}
	}
	return ts
}

// StateTracker is implemented by providers whose dependents require
// completion polling with domain-specific terminal states.
type StateTracker interface {
	TerminalStates() TerminalStates
}

// Package executor performs dependency-ordered destructive execution. A
// parent is only deleted after every child in its plan reached a successful
// terminal state; anything else short-circuits to Skipped instead of relying
// on the server to refuse the call.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DrSkyle/cloudreaper/pkg/engine/depgraph"
	"github.com/DrSkyle/cloudreaper/pkg/engine/tracker"
	"github.com/DrSkyle/cloudreaper/pkg/provider"
)

// Action is the outcome class of one execution attempt.
type Action string

const (
	ActionDeleted   Action = "Deleted"
	ActionScheduled Action = "ScheduledForDeletion"
	ActionSkipped   Action = "Skipped"
	ActionFailed    Action = "Failed"
)

// Record is one append-only entry in the execution log. Past records are
// never mutated; a retry appends a second record.
type Record struct {
	ResourceID string    `json:"resource_id"`
	Type       string    `json:"type"`
	Action     Action    `json:"action"`
	DryRun     bool      `json:"dry_run"`
	Timestamp  time.Time `json:"timestamp"`
	Detail     string    `json:"detail,omitempty"`
}

// Succeeded reports whether the record represents forward progress toward
// removal.
func (r Record) Succeeded() bool {
	return r.Action == ActionDeleted || r.Action == ActionScheduled
}

// Executor walks one dependency subtree in post-order. Subtrees are
// independent; callers may run several Executors concurrently, but one
// subtree is always serialized.
type Executor struct {
	Deleter provider.Deleter
	Tracker *tracker.Tracker
	Logger  *slog.Logger
	DryRun  bool
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// Execute deletes the subtree rooted at node, children first. The returned
// records are ordered by attempt time: every child record precedes its
// parent's, and a blocked parent carries the blocking child's identity.
func (x *Executor) Execute(ctx context.Context, node *depgraph.Node) []Record {
	var records []Record
	x.execute(ctx, node, &records)
	return records
}

func (x *Executor) execute(ctx context.Context, node *depgraph.Node, records *[]Record) Record {
	// Children first.
	var blocked []string
	var childIDs []string
	for _, child := range node.Children {
		childRec := x.execute(ctx, child, records)
		if !childRec.Succeeded() {
			blocked = append(blocked, child.Resource.ID)
			continue
		}
		childIDs = append(childIDs, child.Resource.ID)
	}

	if len(blocked) > 0 {
		rec := x.record(node, ActionSkipped,
			fmt.Sprintf("blocked by dependent %s", blocked[0]))
		*records = append(*records, rec)
		return rec
	}

	// Wait for children to actually reach a terminal success state. The
	// delete calls above only start the teardown; in dry-run there is
	// nothing to wait for.
	if !x.DryRun && len(childIDs) > 0 && x.Tracker != nil {
		statuses := x.Tracker.Await(ctx, childIDs)
		for _, id := range childIDs {
			if st := statuses[id]; st != tracker.StatusSuccess {
				rec := x.record(node, ActionSkipped,
					fmt.Sprintf("dependent %s ended %s before parent delete", id, st))
				*records = append(*records, rec)
				return rec
			}
		}
	}

	rec := x.deleteOne(ctx, node)
	*records = append(*records, rec)
	return rec
}

func (x *Executor) deleteOne(ctx context.Context, node *depgraph.Node) Record {
	id := node.Resource.ID

	disposition, err := x.Deleter.Delete(ctx, id, x.DryRun)
	if err != nil {
		classified := provider.Classify(err)
		switch classified.Kind {
		case provider.ErrorKindNotFound:
			// Someone else got there first; the desired end state
			// holds either way.
			return x.record(node, ActionDeleted, "already removed")
		case provider.ErrorKindAccessDenied:
			return x.record(node, ActionSkipped,
				fmt.Sprintf("permission denied: %s", classified.Message))
		default:
			if x.Logger != nil {
				x.Logger.Error("delete failed", "resource", id,
					"kind", string(classified.Kind), "error", classified.Message)
			}
			return x.record(node, ActionFailed, provider.FormatUserError(err))
		}
	}

	action := ActionDeleted
	if disposition == provider.DispositionScheduled {
		action = ActionScheduled
	}

	detail := ""
	if x.DryRun {
		detail = "dry run: no mutating call issued"
	}
	return x.record(node, action, detail)
}

func (x *Executor) record(node *depgraph.Node, action Action, detail string) Record {
	now := time.Now()
	if x.Now != nil {
		now = x.Now()
	}
	return Record{
		ResourceID: node.Resource.ID,
		Type:       node.Resource.Type,
		Action:     action,
		DryRun:     x.DryRun,
		Timestamp:  now,
		Detail:     detail,
	}
}

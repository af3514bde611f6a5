package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/cloudreaper/pkg/engine/depgraph"
	"github.com/DrSkyle/cloudreaper/pkg/engine/tracker"
	"github.com/DrSkyle/cloudreaper/pkg/provider"
	"github.com/DrSkyle/cloudreaper/pkg/resource"
)

type stubDeleter struct {
	mu      sync.Mutex
	order   []string
	errFor  map[string]error
	dispose provider.Disposition
}

func (d *stubDeleter) Delete(ctx context.Context, id string, dryRun bool) (provider.Disposition, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.errFor[id]; err != nil {
		return "", err
	}
	d.order = append(d.order, id)
	if d.dispose == "" {
		return provider.DispositionDeleted, nil
	}
	return d.dispose, nil
}

type instantStates struct{}

func (instantStates) FetchState(ctx context.Context, id string) (string, error) {
	return "Deleted", nil
}

func newTestTracker() *tracker.Tracker {
	return &tracker.Tracker{
		States:       instantStates{},
		Terminal:     provider.NewTerminalStates([]string{"Deleted"}, []string{"Delete_Failed"}),
		PollInterval: time.Millisecond,
		MaxWait:      100 * time.Millisecond,
	}
}

func node(id string, children ...*depgraph.Node) *depgraph.Node {
	return &depgraph.Node{
		Resource: resource.Resource{ID: id, Type: resource.TypeSageMakerSpace},
		Children: children,
	}
}

func TestChildrenDeletedBeforeParent(t *testing.T) {
	d := &stubDeleter{}
	x := Executor{Deleter: d, Tracker: newTestTracker()}

	tree := node("space", node("app-a"), node("app-b"))
	records := x.Execute(context.Background(), tree)

	require.Len(t, records, 3)
	assert.Equal(t, []string{"app-a", "app-b", "space"}, d.order)
	// Record order mirrors attempt order.
	assert.Equal(t, "space", records[2].ResourceID)
	for _, rec := range records {
		assert.True(t, rec.Succeeded(), "record for %s", rec.ResourceID)
	}
}

func TestBlockedChildSkipsParent(t *testing.T) {
	d := &stubDeleter{errFor: map[string]error{
		"app-a": &smithy.GenericAPIError{Code: "InternalError", Message: "boom"},
	}}
	x := Executor{Deleter: d, Tracker: newTestTracker()}

	records := x.Execute(context.Background(), node("space", node("app-a")))

	require.Len(t, records, 2)
	assert.Equal(t, ActionFailed, records[0].Action)
	assert.Equal(t, ActionSkipped, records[1].Action)
	assert.Contains(t, records[1].Detail, "app-a")
	// The parent delete was never attempted.
	assert.NotContains(t, d.order, "space")
}

func TestNotFoundCountsAsDeleted(t *testing.T) {
	d := &stubDeleter{errFor: map[string]error{
		"gone": &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "gone"},
	}}
	x := Executor{Deleter: d}

	records := x.Execute(context.Background(), node("gone"))

	require.Len(t, records, 1)
	assert.Equal(t, ActionDeleted, records[0].Action)
	assert.Equal(t, "already removed", records[0].Detail)
}

func TestAccessDeniedSkips(t *testing.T) {
	d := &stubDeleter{errFor: map[string]error{
		"locked": &smithy.GenericAPIError{Code: "AccessDenied", Message: "no kms:ScheduleKeyDeletion"},
	}}
	x := Executor{Deleter: d}

	records := x.Execute(context.Background(), node("locked"))
	require.Len(t, records, 1)
	assert.Equal(t, ActionSkipped, records[0].Action)
}

func TestDryRunSkipsCompletionWait(t *testing.T) {
	d := &stubDeleter{}
	slow := &tracker.Tracker{
		States:       neverDone{},
		Terminal:     provider.NewTerminalStates([]string{"Deleted"}, nil),
		PollInterval: 10 * time.Millisecond,
		MaxWait:      5 * time.Second,
	}
	x := Executor{Deleter: d, Tracker: slow, DryRun: true}

	start := time.Now()
	records := x.Execute(context.Background(), node("space", node("app-a")))
	elapsed := time.Since(start)

	require.Len(t, records, 2)
	assert.Less(t, elapsed, time.Second, "dry run must not poll")
	for _, rec := range records {
		assert.True(t, rec.DryRun)
		assert.Equal(t, "dry run: no mutating call issued", rec.Detail)
	}
}

type neverDone struct{}

func (neverDone) FetchState(ctx context.Context, id string) (string, error) {
	return "Deleting", nil
}

func TestScheduledDisposition(t *testing.T) {
	d := &stubDeleter{dispose: provider.DispositionScheduled}
	x := Executor{Deleter: d}

	records := x.Execute(context.Background(), node("key-1"))
	require.Len(t, records, 1)
	assert.Equal(t, ActionScheduled, records[0].Action)
	assert.True(t, records[0].Succeeded())
}

func TestChildTimeoutSkipsParent(t *testing.T) {
	d := &stubDeleter{}
	slow := &tracker.Tracker{
		States:       neverDone{},
		Terminal:     provider.NewTerminalStates([]string{"Deleted"}, nil),
		PollInterval: time.Millisecond,
		MaxWait:      10 * time.Millisecond,
	}
	x := Executor{Deleter: d, Tracker: slow}

	records := x.Execute(context.Background(), node("space", node("app-a")))

	require.Len(t, records, 2)
	assert.Equal(t, ActionSkipped, records[1].Action)
	assert.Contains(t, records[1].Detail, "TimedOut")
	assert.NotContains(t, d.order, "space")
}

func TestRecordTimestampsAreOrdered(t *testing.T) {
	var tick int
	clock := func() time.Time {
		tick++
		return time.Date(2025, 6, 1, 0, 0, tick, 0, time.UTC)
	}
	d := &stubDeleter{}
	x := Executor{Deleter: d, Tracker: newTestTracker(), Now: clock}

	records := x.Execute(context.Background(), node("space", node("app-a")))
	require.Len(t, records, 2)
	assert.True(t, records[0].Timestamp.Before(records[1].Timestamp))
}

func TestNonAPIErrorIsFailed(t *testing.T) {
	d := &stubDeleter{errFor: map[string]error{
		"x": errors.New("transport broke"),
	}}
	x := Executor{Deleter: d}

	records := x.Execute(context.Background(), node("x"))
	require.Len(t, records, 1)
	assert.Equal(t, ActionFailed, records[0].Action)
	assert.False(t, records[0].Succeeded())
}

package evidence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/cloudreaper/pkg/provider"
	"github.com/DrSkyle/cloudreaper/pkg/resource"
)

type stubEventSource struct {
	events []provider.Event
	err    error
	calls  int
}

func (s *stubEventSource) LookupHistoricalEvents(ctx context.Context, start time.Time) ([]provider.Event, error) {
	s.calls++
	return s.events, s.err
}

func TestAggregateMergesWorstCompleteness(t *testing.T) {
	agg := Aggregate("k1", []UsageEvidence{
		{ResourceID: "k1", Source: SourceLiveReference, Completeness: CompletenessFull},
		{ResourceID: "k1", Source: SourceHistoricalEvent, Completeness: CompletenessUnavailable},
	})
	assert.Equal(t, CompletenessUnavailable, agg.Completeness)
	assert.False(t, agg.EverReferencedLive)
	assert.Nil(t, agg.LastHistoricalActivity)
}

func TestAggregateKeepsMaxTimestamp(t *testing.T) {
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.AddDate(0, 2, 0)

	agg := Aggregate("k1", []UsageEvidence{
		{ResourceID: "k1", Source: SourceHistoricalEvent, LastActiveAt: &older, Completeness: CompletenessFull},
		{ResourceID: "k1", Source: SourceHistoricalEvent, LastActiveAt: &newer, Completeness: CompletenessFull},
		{ResourceID: "other", Source: SourceHistoricalEvent, LastActiveAt: &newer, Completeness: CompletenessFull},
	})
	require.NotNil(t, agg.LastHistoricalActivity)
	assert.True(t, agg.LastHistoricalActivity.Equal(newer))
}

func TestAggregateLiveWinsOverAbsence(t *testing.T) {
	agg := Aggregate("sg-1", []UsageEvidence{
		{ResourceID: "sg-1", Source: SourceLiveReference, Live: false, Completeness: CompletenessFull},
		{ResourceID: "sg-1", Source: SourceLiveReference, Live: true, Completeness: CompletenessFull},
	})
	assert.True(t, agg.EverReferencedLive)
}

func TestHistoricalScannerSinglePass(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	src := &stubEventSource{events: []provider.Event{
		{ResourceID: "arn:aws:kms:us-east-1:1:key/key-a", EventName: "Decrypt", EventTime: now.AddDate(0, 0, -10)},
		{ResourceID: "key-a", EventName: "Decrypt", EventTime: now.AddDate(0, 0, -3)},
		{ResourceID: "key-b", EventName: "DescribeKey", EventTime: now.AddDate(0, 0, -1)},
	}}

	scanner := HistoricalScanner{
		Source:     src,
		EventNames: []string{"Decrypt", "Encrypt"},
		CheckDays:  90,
	}
	candidates := []resource.Resource{
		{ID: "key-a", Type: resource.TypeKMSKey},
		{ID: "key-b", Type: resource.TypeKMSKey},
	}

	evs := scanner.Collect(context.Background(), now, candidates)

	assert.Equal(t, 1, src.calls, "one lookup for the whole candidate set")
	// key-b only had a non-usage event, so it has no record at all.
	require.Len(t, evs, 1)
	assert.Equal(t, "key-a", evs[0].ResourceID)
	// ARN and bare id collapse onto one key; max timestamp wins.
	assert.True(t, evs[0].LastActiveAt.Equal(now.AddDate(0, 0, -3)))
	assert.Equal(t, CompletenessFull, evs[0].Completeness)
}

func TestHistoricalScannerFailsClosed(t *testing.T) {
	src := &stubEventSource{err: errors.New("trail not enabled")}
	scanner := HistoricalScanner{Source: src, CheckDays: 90}
	candidates := []resource.Resource{
		{ID: "key-a"}, {ID: "key-b"},
	}

	evs := scanner.Collect(context.Background(), time.Now(), candidates)

	require.Len(t, evs, 2)
	for _, ev := range evs {
		assert.Equal(t, CompletenessUnavailable, ev.Completeness)
		assert.Nil(t, ev.LastActiveAt)
	}
}

func TestSkippedHistoricalIsPartial(t *testing.T) {
	evs := SkippedHistorical([]resource.Resource{{ID: "lg-1"}})
	require.Len(t, evs, 1)
	assert.Equal(t, CompletenessPartial, evs[0].Completeness)
}

type stubRefLister struct {
	refs map[string]struct{}
	err  error
}

func (s *stubRefLister) ListLiveReferences(ctx context.Context) (map[string]struct{}, error) {
	return s.refs, s.err
}

func TestLiveScannerMarksReferenced(t *testing.T) {
	scanner := LiveScanner{Refs: &stubRefLister{refs: map[string]struct{}{"sg-used": {}}}}
	candidates := []resource.Resource{
		{ID: "sg-used"}, {ID: "sg-idle"},
	}

	evs := scanner.Collect(context.Background(), candidates)

	require.Len(t, evs, 1)
	assert.Equal(t, "sg-used", evs[0].ResourceID)
	assert.True(t, evs[0].Live)
}

func TestLiveScannerFailsClosed(t *testing.T) {
	scanner := LiveScanner{Refs: &stubRefLister{err: errors.New("access denied")}}
	candidates := []resource.Resource{{ID: "sg-1"}, {ID: "sg-2"}}

	evs := scanner.Collect(context.Background(), candidates)

	require.Len(t, evs, 2)
	for _, ev := range evs {
		assert.Equal(t, CompletenessUnavailable, ev.Completeness)
		assert.False(t, ev.Live)
	}
}

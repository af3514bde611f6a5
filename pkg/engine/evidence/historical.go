package evidence

import (
	"context"
	"log/slog"
	"time"

	"github.com/DrSkyle/cloudreaper/pkg/provider"
	"github.com/DrSkyle/cloudreaper/pkg/resource"
)

// HistoricalScanner derives last-activity timestamps from an append-only
// event log. The log is scanned exactly once for the whole candidate set and
// turned into a lookup map; querying the log per resource would multiply API
// volume by the candidate count.
type HistoricalScanner struct {
	Source provider.HistoricalEventLooker
	// EventNames restricts which events count as activity. Empty means
	// every event in the window counts.
	EventNames []string
	CheckDays  int
	Logger     *slog.Logger
}

// Collect builds the id -> max(eventTime) map in a single pass, then answers
// per candidate from the map. Inaccessible logs fail closed with Unavailable
// markers for every candidate.
func (s *HistoricalScanner) Collect(ctx context.Context, now time.Time, candidates []resource.Resource) []UsageEvidence {
	window := time.Duration(s.CheckDays) * 24 * time.Hour
	start := now.Add(-window)

	events, err := s.Source.LookupHistoricalEvents(ctx, start)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("historical event scan unavailable, cannot conclude unused",
				"error", provider.FormatUserError(err), "check_days", s.CheckDays)
		}
		out := make([]UsageEvidence, 0, len(candidates))
		for _, r := range candidates {
			out = append(out, UsageEvidence{
				ResourceID:           r.ID,
				Source:               SourceHistoricalEvent,
				ObservedWithinWindow: window,
				Completeness:         CompletenessUnavailable,
			})
		}
		return out
	}

	lastSeen := s.buildActivityMap(events)

	var out []UsageEvidence
	for _, r := range candidates {
		t, ok := lastSeen[resource.BareID(r.ID)]
		if !ok {
			continue
		}
		ts := t
		out = append(out, UsageEvidence{
			ResourceID:           r.ID,
			Source:               SourceHistoricalEvent,
			LastActiveAt:         &ts,
			ObservedWithinWindow: window,
			Completeness:         CompletenessFull,
		})
	}
	return out
}

// buildActivityMap folds the raw event stream into id -> max timestamp.
// Identity normalization happens before insertion so ARN-qualified and bare
// ids collapse onto the same key.
func (s *HistoricalScanner) buildActivityMap(events []provider.Event) map[string]time.Time {
	relevant := make(map[string]struct{}, len(s.EventNames))
	for _, n := range s.EventNames {
		relevant[n] = struct{}{}
	}

	lastSeen := make(map[string]time.Time)
	for _, ev := range events {
		if len(relevant) > 0 {
			if _, ok := relevant[ev.EventName]; !ok {
				continue
			}
		}
		if ev.EventTime.IsZero() || ev.ResourceID == "" {
			continue
		}
		id := resource.BareID(ev.ResourceID)
		if prev, ok := lastSeen[id]; !ok || ev.EventTime.After(prev) {
			lastSeen[id] = ev.EventTime
		}
	}
	return lastSeen
}

// SkippedHistorical produces Partial markers for candidates whose historical
// check was disabled by configuration. Partial is weaker than Unavailable:
// the operator chose to skip, the source itself was fine.
func SkippedHistorical(candidates []resource.Resource) []UsageEvidence {
	out := make([]UsageEvidence, 0, len(candidates))
	for _, r := range candidates {
		out = append(out, UsageEvidence{
			ResourceID:   r.ID,
			Source:       SourceHistoricalEvent,
			Completeness: CompletenessPartial,
		})
	}
	return out
}

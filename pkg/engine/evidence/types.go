// Package evidence collects and merges usage evidence for candidate
// resources. Two source kinds exist: live reference scans (binary, instant)
// and historical event scans (timestamped, windowed). Missing or inaccessible
// evidence always degrades completeness rather than implying "unused".
package evidence

import (
	"time"
)

// SourceKind identifies where a piece of evidence came from.
type SourceKind string

const (
	SourceLiveReference   SourceKind = "LiveReference"
	SourceHistoricalEvent SourceKind = "HistoricalEvent"
)

// Completeness grades how much of the evidence surface was actually observed.
type Completeness string

const (
	CompletenessFull        Completeness = "Full"
	CompletenessPartial     Completeness = "Partial"
	CompletenessUnavailable Completeness = "Unavailable"
)

// worse returns the lower-confidence of two completeness grades.
func worse(a, b Completeness) Completeness {
	rank := map[Completeness]int{
		CompletenessFull:        0,
		CompletenessPartial:     1,
		CompletenessUnavailable: 2,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// UsageEvidence is one observation about one resource from one source.
// Multiple records per resource are expected; aggregation is a pure merge.
type UsageEvidence struct {
	ResourceID           string
	Source               SourceKind
	Live                 bool
	LastActiveAt         *time.Time
	ObservedWithinWindow time.Duration
	Completeness         Completeness
}

// AggregatedUsage is the merged verdict input for one resource.
type AggregatedUsage struct {
	ResourceID             string
	EverReferencedLive     bool
	LastHistoricalActivity *time.Time
	Completeness           Completeness
}

// Aggregate merges all evidence for a single resource. It is pure: no shared
// state, safe to call concurrently per resource.
func Aggregate(resourceID string, evs []UsageEvidence) AggregatedUsage {
	out := AggregatedUsage{
		ResourceID:   resourceID,
		Completeness: CompletenessFull,
	}

	for _, ev := range evs {
		if ev.ResourceID != resourceID {
			continue
		}
		out.Completeness = worse(out.Completeness, ev.Completeness)

		switch ev.Source {
		case SourceLiveReference:
			if ev.Live {
				out.EverReferencedLive = true
			}
		case SourceHistoricalEvent:
			if ev.LastActiveAt == nil {
				continue
			}
			// Absence is distinct from activity at time zero: only set
			// when a real timestamp was observed.
			if out.LastHistoricalActivity == nil || ev.LastActiveAt.After(*out.LastHistoricalActivity) {
				t := *ev.LastActiveAt
				out.LastHistoricalActivity = &t
			}
		}
	}
	return out
}

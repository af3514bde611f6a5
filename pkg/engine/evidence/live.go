package evidence

import (
	"context"
	"log/slog"

	"github.com/DrSkyle/cloudreaper/pkg/provider"
	"github.com/DrSkyle/cloudreaper/pkg/resource"
)

// LiveScanner reports which candidate resources are currently referenced by a
// holder object. Presence is binary: no time dimension.
type LiveScanner struct {
	Refs   provider.LiveReferenceLister
	Logger *slog.Logger
}

// Collect enumerates the entire holder population before answering. If the
// enumeration fails partway the scanner fails closed: every candidate gets an
// Unavailable marker instead of a possibly-false "unused".
func (s *LiveScanner) Collect(ctx context.Context, candidates []resource.Resource) []UsageEvidence {
	refs, err := s.Refs.ListLiveReferences(ctx)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("live reference scan failed, marking evidence unavailable",
				"error", provider.FormatUserError(err), "candidates", len(candidates))
		}
		out := make([]UsageEvidence, 0, len(candidates))
		for _, r := range candidates {
			out = append(out, UsageEvidence{
				ResourceID:   r.ID,
				Source:       SourceLiveReference,
				Completeness: CompletenessUnavailable,
			})
		}
		return out
	}

	var out []UsageEvidence
	for _, r := range candidates {
		if _, ok := refs[r.ID]; ok {
			out = append(out, UsageEvidence{
				ResourceID:   r.ID,
				Source:       SourceLiveReference,
				Live:         true,
				Completeness: CompletenessFull,
			})
		}
	}
	return out
}

package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/cloudreaper/pkg/engine/executor"
	"github.com/DrSkyle/cloudreaper/pkg/engine/policy"
	"github.com/DrSkyle/cloudreaper/pkg/resource"
)

func sampleReport() *Report {
	generated := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &Report{
		Domain:      "kms",
		GeneratedAt: generated,
		Verdicts: []policy.Verdict{
			{
				ResourceID: "key-a",
				Type:       resource.TypeKMSKey,
				Name:       "orphaned",
				Eligible:   true,
				Reason:     policy.ReasonEligible,
			},
			{
				ResourceID: "key-b",
				Type:       resource.TypeKMSKey,
				Reason:     policy.ReasonRecentHistoricalActivity,
				Detail:     "last activity 10d ago, threshold 90d",
			},
		},
		Executions: []executor.Record{
			{
				ResourceID: "key-a",
				Type:       resource.TypeKMSKey,
				Action:     executor.ActionScheduled,
				Timestamp:  generated.Add(5 * time.Second),
			},
		},
	}
}

func TestWriteJSONGolden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().WriteJSON(&buf))

	g := goldie.New(t)
	g.Assert(t, "report", buf.Bytes())
}

func TestHasFailures(t *testing.T) {
	r := sampleReport()
	assert.False(t, r.HasFailures())

	r.Executions = append(r.Executions, executor.Record{
		ResourceID: "key-c",
		Action:     executor.ActionFailed,
	})
	assert.True(t, r.HasFailures())
}

func TestEligibleCount(t *testing.T) {
	assert.Equal(t, 1, sampleReport().EligibleCount())
}

func TestCountByAction(t *testing.T) {
	counts := sampleReport().CountByAction()
	assert.Equal(t, 1, counts[executor.ActionScheduled])
	assert.Equal(t, 0, counts[executor.ActionFailed])
}

func TestRenderExecutionsEmpty(t *testing.T) {
	var buf bytes.Buffer
	(&Report{}).RenderExecutions(&buf)
	assert.Equal(t, "No actions executed.\n", buf.String())
}

func TestRenderVerdictsIncludesEveryCandidate(t *testing.T) {
	var buf bytes.Buffer
	sampleReport().RenderVerdicts(&buf)
	out := buf.String()
	assert.Contains(t, out, "key-a")
	assert.Contains(t, out, "key-b")
	assert.Contains(t, out, "RecentHistoricalActivity")
}

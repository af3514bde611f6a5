// Package report assembles the run artifact: every candidate's verdict and
// every attempted action. Nothing is dropped — an ineligible resource still
// appears with its reason.
package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/DrSkyle/cloudreaper/pkg/engine/executor"
	"github.com/DrSkyle/cloudreaper/pkg/engine/policy"
)

// Report is the durable output of one engine run. The engine itself holds no
// database; persistence is the caller's concern.
type Report struct {
	Domain      string            `json:"domain"`
	GeneratedAt time.Time         `json:"generated_at"`
	DryRun      bool              `json:"dry_run"`
	Partial     bool              `json:"partial"`
	Verdicts    []policy.Verdict  `json:"verdicts"`
	Executions  []executor.Record `json:"executions"`
}

// HasFailures reports whether any execution record failed. Exit-code policy
// at the CLI boundary keys off this.
func (r *Report) HasFailures() bool {
	for _, rec := range r.Executions {
		if rec.Action == executor.ActionFailed {
			return true
		}
	}
	return false
}

// EligibleCount returns the number of retirement-eligible candidates.
func (r *Report) EligibleCount() int {
	n := 0
	for _, v := range r.Verdicts {
		if v.Eligible {
			n++
		}
	}
	return n
}

// CountByAction tallies execution outcomes.
func (r *Report) CountByAction() map[executor.Action]int {
	out := make(map[executor.Action]int)
	for _, rec := range r.Executions {
		out[rec.Action]++
	}
	return out
}

// WriteJSON serializes the report for machine consumers.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

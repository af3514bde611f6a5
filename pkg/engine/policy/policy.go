// Package policy turns aggregated usage evidence into retirement verdicts.
// The evaluation order is load-bearing: incomplete evidence and live use are
// checked before any age math, so "when in doubt, keep" always wins.
package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/DrSkyle/cloudreaper/pkg/engine/evidence"
	"github.com/DrSkyle/cloudreaper/pkg/resource"
)

// Reason explains why a resource is or is not eligible for retirement.
// Exactly one reason is set per verdict; Eligible is true iff the reason is
// ReasonEligible.
type Reason string

const (
	ReasonCannotVerify             Reason = "CannotVerify"
	ReasonInUseLive                Reason = "InUseLive"
	ReasonProtectedByNamingRule    Reason = "ProtectedByNamingRule"
	ReasonTooYoungToJudge          Reason = "TooYoungToJudge"
	ReasonRecentHistoricalActivity Reason = "RecentHistoricalActivity"
	ReasonEligible                 Reason = "Eligible"
)

// Verdict is the eligibility decision for one resource.
type Verdict struct {
	ResourceID string `json:"resource_id"`
	Type       string `json:"type"`
	Name       string `json:"name,omitempty"`
	Eligible   bool   `json:"eligible"`
	Reason     Reason `json:"reason"`
	Detail     string `json:"detail,omitempty"`
}

// Policy holds the retention thresholds for one run.
type Policy struct {
	// MinAgeDays is the grace period: a resource younger than this has not
	// had time to show up in any log, so its silence proves nothing.
	MinAgeDays int
	// UnusedThresholdDays is the staleness bar. Inclusive boundary:
	// activity exactly this many days ago still counts as unused.
	UnusedThresholdDays int
	// ProtectedNamePatterns are case-insensitive substrings matched
	// against both the name and the id.
	ProtectedNamePatterns []string
}

// Evaluator applies a Policy plus optional dynamic rules.
type Evaluator struct {
	Policy Policy
	// Rules is an optional CEL guard; matched protect-rules veto
	// eligibility the same way static name patterns do.
	Rules *RuleGuard
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// Evaluate produces the verdict for one resource. Pure and side-effect-free;
// first matching rule wins.
func (e *Evaluator) Evaluate(r resource.Resource, usage evidence.AggregatedUsage) Verdict {
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}

	v := Verdict{ResourceID: r.ID, Type: r.Type, Name: r.Name}

	// 1. Incomplete evidence can never become "unused".
	if usage.Completeness == evidence.CompletenessUnavailable {
		v.Reason = ReasonCannotVerify
		v.Detail = "evidence source unavailable; keeping resource"
		return v
	}

	// 2. Currently referenced by a live holder.
	if usage.EverReferencedLive {
		v.Reason = ReasonInUseLive
		return v
	}

	// 3. Static name protection.
	if pattern, ok := e.matchProtected(r); ok {
		v.Reason = ReasonProtectedByNamingRule
		v.Detail = fmt.Sprintf("matched protected pattern %q", pattern)
		return v
	}

	// 3b. Dynamic protection rules.
	if e.Rules != nil {
		if ruleID, ok := e.Rules.Protects(r, now); ok {
			v.Reason = ReasonProtectedByNamingRule
			v.Detail = fmt.Sprintf("matched rule %q", ruleID)
			return v
		}
	}

	// 4. Too young for absence of evidence to mean anything. Resources with
	// no creation timestamp (security groups) skip this check: unknown age
	// is not young age.
	if !r.CreatedAt.IsZero() && r.AgeDays(now) < e.Policy.MinAgeDays {
		v.Reason = ReasonTooYoungToJudge
		v.Detail = fmt.Sprintf("age %dd below minimum %dd", r.AgeDays(now), e.Policy.MinAgeDays)
		return v
	}

	// 5. Recent historical activity.
	if usage.LastHistoricalActivity != nil {
		daysSince := int(now.Sub(*usage.LastHistoricalActivity).Hours() / 24)
		if daysSince < e.Policy.UnusedThresholdDays {
			v.Reason = ReasonRecentHistoricalActivity
			v.Detail = fmt.Sprintf("last activity %dd ago, threshold %dd", daysSince, e.Policy.UnusedThresholdDays)
			return v
		}
	}

	// 6. Nothing speaks for keeping it.
	v.Eligible = true
	v.Reason = ReasonEligible
	return v
}

func (e *Evaluator) matchProtected(r resource.Resource) (string, bool) {
	name := strings.ToLower(r.Name)
	id := strings.ToLower(r.ID)
	for _, p := range e.Policy.ProtectedNamePatterns {
		needle := strings.ToLower(p)
		if needle == "" {
			continue
		}
		if strings.Contains(name, needle) || strings.Contains(id, needle) {
			return p, true
		}
	}
	return "", false
}

package policy

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"
	"gopkg.in/yaml.v3"

	"github.com/DrSkyle/cloudreaper/pkg/resource"
)

// DynamicRule is a user-defined protection rule loaded from the rules file.
type DynamicRule struct {
	ID        string `yaml:"id" json:"id"`
	Condition string `yaml:"condition" json:"condition"` // CEL: "tags['env'] == 'prod' || age_days < 30"
	Action    string `yaml:"action" json:"action"`       // "protect" or "warn"
}

type rulesFile struct {
	Rules []DynamicRule `yaml:"rules"`
}

// RuleGuard compiles and evaluates dynamic protection rules against resource
// attributes.
type RuleGuard struct {
	env      *cel.Env
	rules    []DynamicRule
	programs map[string]cel.Program
}

// NewRuleGuard initializes the CEL environment with the supported variable
// declarations.
func NewRuleGuard() (*RuleGuard, error) {
	env, err := cel.NewEnv(
		cel.Declarations(
			decls.NewVar("id", decls.String),
			decls.NewVar("name", decls.String),
			decls.NewVar("kind", decls.String),
			decls.NewVar("state", decls.String),
			decls.NewVar("age_days", decls.Int),
			decls.NewVar("tags", decls.NewMapType(decls.String, decls.String)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	return &RuleGuard{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// LoadRuleFile reads a YAML rules file and compiles its rules.
func LoadRuleFile(path string) (*RuleGuard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read rules file: %w", err)
	}

	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("unable to parse rules file %s: %w", path, err)
	}

	g, err := NewRuleGuard()
	if err != nil {
		return nil, err
	}
	if err := g.Compile(rf.Rules); err != nil {
		return nil, err
	}
	return g, nil
}

// Compile compiles rules into executable programs. A rule that fails to
// compile rejects the whole set; a half-loaded guard is worse than none.
func (g *RuleGuard) Compile(rules []DynamicRule) error {
	for _, r := range rules {
		ast, issues := g.env.Compile(r.Condition)
		if issues != nil && issues.Err() != nil {
			return fmt.Errorf("rule %s compilation error: %w", r.ID, issues.Err())
		}

		prg, err := g.env.Program(ast)
		if err != nil {
			return fmt.Errorf("rule %s program creation error: %w", r.ID, err)
		}

		g.programs[r.ID] = prg
		g.rules = append(g.rules, r)
	}
	return nil
}

// Protects reports whether any protect-rule matches the resource, returning
// the first matching rule id. Evaluation failures are logged and treated as
// non-matches; a broken rule must not block the run.
func (g *RuleGuard) Protects(r resource.Resource, now time.Time) (string, bool) {
	if g == nil || len(g.rules) == 0 {
		return "", false
	}

	tags := r.Tags
	if tags == nil {
		tags = map[string]string{}
	}
	vars := map[string]interface{}{
		"id":       r.ID,
		"name":     r.Name,
		"kind":     r.Type,
		"state":    r.State,
		"age_days": int64(r.AgeDays(now)),
		"tags":     tags,
	}

	for _, rule := range g.rules {
		if rule.Action != "protect" {
			continue
		}
		prg, ok := g.programs[rule.ID]
		if !ok {
			continue
		}
		out, _, err := prg.Eval(vars)
		if err != nil {
			slog.Error("Rule evaluation failed", "rule_id", rule.ID, "error", err)
			continue
		}
		if match, ok := out.Value().(bool); ok && match {
			return rule.ID, true
		}
	}
	return "", false
}

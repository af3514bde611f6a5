package policy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/cloudreaper/pkg/resource"
)

func TestRuleGuardProtects(t *testing.T) {
	g, err := NewRuleGuard()
	require.NoError(t, err)

	err = g.Compile([]DynamicRule{
		{ID: "prod-tag", Condition: `tags["env"] == "prod"`, Action: "protect"},
		{ID: "young", Condition: `age_days < 7`, Action: "protect"},
		{ID: "warn-only", Condition: `true`, Action: "warn"},
	})
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	r := resource.Resource{
		ID:        "key-1",
		Type:      resource.TypeKMSKey,
		CreatedAt: now.AddDate(0, 0, -100),
		Tags:      map[string]string{"env": "prod"},
	}
	id, ok := g.Protects(r, now)
	assert.True(t, ok)
	assert.Equal(t, "prod-tag", id)

	// warn rules never protect.
	r.Tags = map[string]string{"env": "dev"}
	_, ok = g.Protects(r, now)
	assert.False(t, ok)
}

func TestCompileRejectsWholeSetOnBadRule(t *testing.T) {
	g, err := NewRuleGuard()
	require.NoError(t, err)

	err = g.Compile([]DynamicRule{
		{ID: "good", Condition: `name == "x"`, Action: "protect"},
		{ID: "broken", Condition: `name ==`, Action: "protect"},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestLoadRuleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `rules:
  - id: keep-prod
    condition: 'tags["env"] == "prod"'
    action: protect
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	g, err := LoadRuleFile(path)
	require.NoError(t, err)

	r := resource.Resource{ID: "x", Tags: map[string]string{"env": "prod"}}
	_, ok := g.Protects(r, time.Now())
	assert.True(t, ok)
}

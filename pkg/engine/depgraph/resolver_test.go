package depgraph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/cloudreaper/pkg/resource"
)

type stubDeps struct {
	children map[string][]resource.Resource
}

func (s *stubDeps) ListDependents(ctx context.Context, id string) ([]resource.Resource, error) {
	return s.children[id], nil
}

func res(id string) resource.Resource {
	return resource.Resource{ID: id, Type: resource.TypeSageMakerSpace}
}

func TestResolveTree(t *testing.T) {
	deps := &stubDeps{children: map[string][]resource.Resource{
		"space": {res("app-a"), res("app-b")},
	}}
	r := Resolver{Deps: deps}

	node, err := r.Resolve(context.Background(), res("space"))
	require.NoError(t, err)
	assert.Equal(t, 3, node.Count())
	require.Len(t, node.Children, 2)
	assert.Equal(t, "app-a", node.Children[0].Resource.ID)
}

func TestResolveDetectsCycle(t *testing.T) {
	deps := &stubDeps{children: map[string][]resource.Resource{
		"a": {res("b")},
		"b": {res("a")},
	}}
	r := Resolver{Deps: deps}

	_, err := r.Resolve(context.Background(), res("a"))
	assert.True(t, errors.Is(err, ErrCycle))
}

func TestResolveDepthLimit(t *testing.T) {
	// A linear chain longer than the depth cap.
	children := make(map[string][]resource.Resource)
	for i := 0; i < 20; i++ {
		children[chainID(i)] = []resource.Resource{res(chainID(i + 1))}
	}
	r := Resolver{Deps: &stubDeps{children: children}, MaxDepth: 5}

	_, err := r.Resolve(context.Background(), res(chainID(0)))
	assert.True(t, errors.Is(err, ErrTooDeep))
}

func chainID(i int) string {
	return string(rune('a' + i))
}

func TestResolveErrorPropagates(t *testing.T) {
	r := Resolver{Deps: failingDeps{}}
	_, err := r.Resolve(context.Background(), res("root"))
	assert.Error(t, err)
}

type failingDeps struct{}

func (failingDeps) ListDependents(ctx context.Context, id string) ([]resource.Resource, error) {
	return nil, errors.New("listing failed")
}

// Package depgraph expands a resource into its deletion-order dependency
// tree. Children must reach a terminal state before their parent may be
// deleted; the resolver only discovers structure, it never judges whether a
// dependent is itself worth keeping — dependents cannot outlive the parent.
package depgraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/DrSkyle/cloudreaper/pkg/provider"
	"github.com/DrSkyle/cloudreaper/pkg/resource"
)

// ErrCycle marks a cyclic dependency declaration. Structural: fatal for the
// affected subtree only.
var ErrCycle = errors.New("dependency cycle detected")

// ErrTooDeep caps runaway traversals on malformed dependent declarations.
var ErrTooDeep = errors.New("dependency tree exceeds depth limit")

const (
	defaultMaxDepth = 16
	maxTreeNodes    = 10000
)

// Node is one vertex of the deletion plan. Children are ordered as returned
// by the provider and are deleted before the node itself.
type Node struct {
	Resource resource.Resource
	Children []*Node
}

// Count returns the number of nodes in the subtree including the root.
func (n *Node) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// Resolver builds dependency trees through a DependentLister capability.
type Resolver struct {
	Deps     provider.DependentLister
	MaxDepth int
}

type frame struct {
	node  *Node
	depth int
}

// Resolve expands the root resource into its full dependency tree using an
// explicit worklist. A resource id seen twice in one tree is rejected as a
// cycle rather than recursed into.
func (r *Resolver) Resolve(ctx context.Context, root resource.Resource) (*Node, error) {
	maxDepth := r.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}

	rootNode := &Node{Resource: root}
	seen := map[string]struct{}{root.Key(): {}}
	stack := []frame{{node: rootNode, depth: 0}}
	total := 1

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.depth >= maxDepth {
			return nil, fmt.Errorf("%w: %s at depth %d", ErrTooDeep, f.node.Resource.ID, f.depth)
		}

		deps, err := r.Deps.ListDependents(ctx, f.node.Resource.ID)
		if err != nil {
			return nil, fmt.Errorf("listing dependents of %s: %w", f.node.Resource.ID, err)
		}

		for _, dep := range deps {
			if _, dup := seen[dep.Key()]; dup {
				return nil, fmt.Errorf("%w: %s reached again under %s", ErrCycle, dep.ID, f.node.Resource.ID)
			}
			seen[dep.Key()] = struct{}{}

			total++
			if total > maxTreeNodes {
				return nil, fmt.Errorf("%w: more than %d nodes", ErrTooDeep, maxTreeNodes)
			}

			child := &Node{Resource: dep}
			f.node.Children = append(f.node.Children, child)
			stack = append(stack, frame{node: child, depth: f.depth + 1})
		}
	}

	return rootNode, nil
}

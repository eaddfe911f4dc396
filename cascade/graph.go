// Package cascade soft-deletes a record together with everything it owns.
package cascade

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-household-store/model"
)

// Edge links a parent family to a child family through the child's foreign
// key column.
type Edge struct {
	Child      model.Family
	ForeignKey string
}

// Graph maps each family to the families it owns.
type Graph map[model.Family][]Edge

// DefaultGraph derives the ownership graph from the model descriptors.
func DefaultGraph() Graph {
	return FromDescriptors(model.Descriptors())
}

// FromDescriptors builds a graph from every owned descriptor.
func FromDescriptors(descriptors []model.Descriptor) Graph {
	g := make(Graph)
	for _, d := range descriptors {
		if _, ok := g[d.Family]; !ok {
			g[d.Family] = nil
		}
		if d.Owned() {
			g[d.Parent] = append(g[d.Parent], Edge{Child: d.Family, ForeignKey: d.ForeignKey})
		}
	}
	for family := range g {
		edges := g[family]
		sort.SliceStable(edges, func(i, j int) bool { return edges[i].Child < edges[j].Child })
	}
	return g
}

// Children returns the edges leaving family.
func (g Graph) Children(family model.Family) []Edge {
	return g[family]
}

// Has reports whether family is part of the graph.
func (g Graph) Has(family model.Family) bool {
	_, ok := g[family]
	return ok
}

// Descendants returns every family reachable from root, breadth first,
// excluding root.
func (g Graph) Descendants(root model.Family) []model.Family {
	var out []model.Family
	seen := map[model.Family]bool{root: true}
	queue := []model.Family{root}
	for len(queue) > 0 {
		family := queue[0]
		queue = queue[1:]
		for _, e := range g[family] {
			if seen[e.Child] {
				continue
			}
			seen[e.Child] = true
			out = append(out, e.Child)
			queue = append(queue, e.Child)
		}
	}
	return out
}

// Validate checks that every edge points at a known family, that foreign
// keys are set and that no family owns itself through any path.
func (g Graph) Validate() error {
	for parent, edges := range g {
		for _, e := range edges {
			if !g.Has(e.Child) {
				return fmt.Errorf("cascade: %s owns unknown family %s", parent, e.Child)
			}
			if e.ForeignKey == "" {
				return fmt.Errorf("cascade: edge %s -> %s has no foreign key", parent, e.Child)
			}
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[model.Family]int, len(g))
	var visit func(model.Family) error
	visit = func(f model.Family) error {
		switch state[f] {
		case visiting:
			return fmt.Errorf("cascade: ownership cycle through %s", f)
		case done:
			return nil
		}
		state[f] = visiting
		for _, e := range g[f] {
			if err := visit(e.Child); err != nil {
				return err
			}
		}
		state[f] = done
		return nil
	}

	for f := range g {
		if err := visit(f); err != nil {
			return err
		}
	}
	return nil
}

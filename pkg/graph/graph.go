package graph

import (
	"slices"
	"strings"
)

// Unit is one analyzed code unit.
type Unit struct {
	Name   string
	Weight int64
}

// UnitEdge is a directed reference between two distinct units, identified
// by their index in [ClassGraph.Units].
type UnitEdge struct {
	Source       int
	Target       int
	Multiplicity int
}

// Stats summarises what the builder kept and discarded.
type Stats struct {
	Results            int // scan results added
	Excluded           int // results ignored because their unit is excluded
	References         int // reference sites seen
	SelfReferences     int // sites discarded as self-references
	ExternalReferences int // sites discarded because the target is not a unit
}

// ClassGraph is the immutable unit-level dependency graph.
type ClassGraph struct {
	units  []Unit
	index  map[string]int
	edges  []UnitEdge
	weight int64
	stats  Stats
}

// Units returns the units sorted by name. The slice must not be modified.
func (g *ClassGraph) Units() []Unit { return g.units }

// Edges returns the edges sorted by (Source, Target). The slice must not be
// modified.
func (g *ClassGraph) Edges() []UnitEdge { return g.edges }

// NumUnits returns the number of units.
func (g *ClassGraph) NumUnits() int { return len(g.units) }

// NumEdges returns the number of distinct (source, target) pairs.
func (g *ClassGraph) NumEdges() int { return len(g.edges) }

// TotalWeight returns the sum of all unit weights.
func (g *ClassGraph) TotalWeight() int64 { return g.weight }

// Stats returns the build statistics.
func (g *ClassGraph) Stats() Stats { return g.stats }

// Index returns the index of the named unit.
func (g *ClassGraph) Index(name string) (int, bool) {
	i, ok := g.index[name]
	return i, ok
}

// Unit returns the named unit.
func (g *ClassGraph) Unit(name string) (Unit, bool) {
	i, ok := g.index[name]
	if !ok {
		return Unit{}, false
	}
	return g.units[i], true
}

// Multiplicity returns the multiplicity of the edge from one unit to
// another, or 0 if there is none.
func (g *ClassGraph) Multiplicity(from, to string) int {
	s, ok := g.index[from]
	if !ok {
		return 0
	}
	t, ok := g.index[to]
	if !ok {
		return 0
	}
	i, found := slices.BinarySearchFunc(g.edges, [2]int{s, t}, func(e UnitEdge, k [2]int) int {
		if c := e.Source - k[0]; c != 0 {
			return c
		}
		return e.Target - k[1]
	})
	if !found {
		return 0
	}
	return g.edges[i].Multiplicity
}

// Dependencies returns the names of the units the named unit references,
// in name order.
func (g *ClassGraph) Dependencies(name string) []string {
	s, ok := g.index[name]
	if !ok {
		return nil
	}
	start, _ := slices.BinarySearchFunc(g.edges, s, func(e UnitEdge, k int) int { return e.Source - k })
	var out []string
	for _, e := range g.edges[start:] {
		if e.Source != s {
			break
		}
		out = append(out, g.units[e.Target].Name)
	}
	return out
}

// MaxDepth returns the largest number of "."-separated segments of any unit
// name.
func (g *ClassGraph) MaxDepth() int {
	depth := 0
	for _, u := range g.units {
		depth = max(depth, Depth(u.Name))
	}
	return depth
}

// Depth returns the number of "."-separated segments of a unit name.
func Depth(name string) int {
	if name == "" {
		return 0
	}
	return strings.Count(name, ".") + 1
}

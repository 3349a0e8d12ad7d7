package composition

import (
	"cmp"
	"slices"

	"github.com/matzehuels/socomo/pkg/graph"
)

// Aggregate projects the unit edges of g onto a grouping. From and To of
// the returned dependencies are group names from [Grouping.Keys], sorted by
// (From, To). Edges whose endpoints share a group are excluded.
//
// Aggregate runs in time proportional to the number of edges of g.
func Aggregate(g *graph.ClassGraph, gr *Grouping) []Dependency {
	return aggregate(g, gr, gr.keys)
}

// aggregate is Aggregate with labels[i] naming group i.
func aggregate(g *graph.ClassGraph, gr *Grouping, labels []string) []Dependency {
	type key struct{ from, to int }
	acc := make(map[key]int)
	for _, e := range g.Edges() {
		from, to := gr.Of(e.Source), gr.Of(e.Target)
		if from == to {
			continue
		}
		acc[key{from, to}] += e.Multiplicity
	}

	keys := make([]key, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b key) int {
		if c := cmp.Compare(a.from, b.from); c != 0 {
			return c
		}
		return cmp.Compare(a.to, b.to)
	})

	deps := make([]Dependency, len(keys))
	for i, k := range keys {
		deps[i] = Dependency{From: labels[k.from], To: labels[k.to], Strength: acc[k]}
	}
	return deps
}

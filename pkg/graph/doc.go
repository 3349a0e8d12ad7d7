// Package graph assembles per-artifact scan results into one class graph.
//
// # Overview
//
// A [ClassGraph] is a directed multigraph over the units (classes) of a
// codebase. Units are stored in an indexed slice sorted by name and edges are
// (source index, target index, multiplicity) tuples sorted by that pair:
//
//	b := graph.NewBuilder(graph.Options{})
//	for _, res := range results {
//	    if err := b.Add(res); err != nil {
//	        return err
//	    }
//	}
//	g, err := b.Build()
//
// # Merge Semantics
//
// [Builder] is the single reduction point of a scan. Every reference site
// adds one to the multiplicity of its (source, target) pair; accumulation is
// keyed, so the built graph depends only on the set of results and never on
// the order in which they were added. Self-references and references to
// units outside the scanned set are discarded by [Builder.Build], not before.
//
// A unit reported by more than one result (nested classes merged into their
// outer class) is one unit whose weight is the sum of the results' weights.
//
// # Concurrency
//
// A Builder is not safe for concurrent use. A built ClassGraph is immutable
// and safe for concurrent reads.
package graph

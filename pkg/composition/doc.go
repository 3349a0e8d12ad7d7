// Package composition turns a class graph into a layered composition model.
//
// # Overview
//
// A [Module] is an ordered sequence of [Level] values, coarsest first. Each
// level partitions every unit of the graph into named [Component] values and
// carries the [Dependency] edges between distinct components:
//
//	m, err := composition.Compose(ctx, "shop", g, composition.Options{})
//	for _, l := range m.Levels {
//	    fmt.Println(l.Name, len(l.Components), len(l.Dependencies))
//	}
//	def := m.DefaultLevel()
//
// # Grouping
//
// A [GroupingRule] maps a unit name to a group name. [DepthRule] keeps the
// first d "."-separated segments, so at depth 2 "app.web.Controller" belongs
// to "app.web". [Compose] evaluates every depth from 1 to the deepest unit
// name and drops a level whose partition equals the previous one.
//
// Component names are group names with the prefix shared by the whole level
// removed ("app.web" becomes "web"); level names are patterns such as
// "app.*" or "app.*.*".
//
// # Aggregation
//
// [Aggregate] projects unit edges onto a grouping in one pass over the edges.
// Edges inside one component are excluded; the strength of a component
// dependency is the sum of the multiplicities it covers.
//
// # Default Level
//
// A [Selector] picks the level shown first. Its [Scorer] is pluggable;
// [DensityScorer] is the default. A level named explicitly through
// [Selector.Default] always wins.
//
// # Invariants
//
// [NewLevel] and [NewModule] reject structures that are not a complete
// partition of the graph's units or whose sizes do not add up, with an
// [errors.ErrCodeBrokenPartition] error. A Module is never returned partially
// built.
package composition

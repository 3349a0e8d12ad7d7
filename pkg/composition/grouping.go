package composition

import (
	"slices"
	"strings"

	"github.com/matzehuels/socomo/pkg/errors"
	"github.com/matzehuels/socomo/pkg/graph"
)

// GroupingRule maps a unit name to the name of the group it belongs to. A
// rule must be pure: the same unit always maps to the same non-empty group.
type GroupingRule func(unit string) string

// DepthRule returns a rule that truncates unit names to their first depth
// segments. Names with fewer segments map to themselves.
func DepthRule(depth int) GroupingRule {
	return func(unit string) string {
		if depth < 1 {
			return ""
		}
		i := 0
		for range depth {
			j := strings.IndexByte(unit[i:], '.')
			if j < 0 {
				return unit
			}
			i += j + 1
		}
		return unit[:i-1]
	}
}

// CandidateDepths returns every depth worth grouping by: 1 up to the
// deepest unit name of g.
func CandidateDepths(g *graph.ClassGraph) []int {
	n := g.MaxDepth()
	depths := make([]int, n)
	for i := range depths {
		depths[i] = i + 1
	}
	return depths
}

// Grouping assigns every unit of a graph to one group.
type Grouping struct {
	keys []string
	of   []int
}

// Keys returns the group names in sorted order.
func (gr *Grouping) Keys() []string { return gr.keys }

// Len returns the number of groups.
func (gr *Grouping) Len() int { return len(gr.keys) }

// Of returns the group index of the unit at index unit.
func (gr *Grouping) Of(unit int) int { return gr.of[unit] }

// Group applies rule to every unit of g. Each unit is evaluated twice; a
// rule that returns an empty name or disagrees with itself fails the whole
// grouping with [errors.ErrCodeInvalidGroupingRule].
func Group(g *graph.ClassGraph, rule GroupingRule) (*Grouping, error) {
	if rule == nil {
		return nil, errors.New(errors.ErrCodeInvalidGroupingRule, "grouping rule is nil")
	}
	units := g.Units()
	names := make([]string, len(units))
	for i, u := range units {
		name := rule(u.Name)
		if err := errors.ValidateGroupName(u.Name, name); err != nil {
			return nil, err
		}
		if again := rule(u.Name); again != name {
			return nil, errors.New(errors.ErrCodeInvalidGroupingRule,
				"grouping rule is not deterministic for %q: %q then %q", u.Name, name, again)
		}
		names[i] = name
	}

	keys := slices.Clone(names)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	index := make(map[string]int, len(keys))
	for i, k := range keys {
		index[k] = i
	}
	of := make([]int, len(names))
	for i, n := range names {
		of[i] = index[n]
	}
	return &Grouping{keys: keys, of: of}, nil
}

// samePartition reports whether two groupings of the same graph place the
// units into the same sets.
func samePartition(a, b *Grouping) bool {
	if a.Len() != b.Len() {
		return false
	}
	m := make([]int, a.Len())
	for i := range m {
		m[i] = -1
	}
	for u, ga := range a.of {
		gb := b.of[u]
		if m[ga] == -1 {
			m[ga] = gb
		} else if m[ga] != gb {
			return false
		}
	}
	return true
}

// =============================================================================
// Naming
// =============================================================================

// commonPrefix returns the longest segment prefix shared by all keys that is
// strictly shorter than each of them.
func commonPrefix(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	first := strings.Split(keys[0], ".")
	n := len(first) - 1
	for _, k := range keys[1:] {
		segs := strings.Split(k, ".")
		m := 0
		for m < n && m < len(segs)-1 && segs[m] == first[m] {
			m++
		}
		n = m
	}
	return first[:n]
}

// names derives the level name and the component name of every key.
func names(keys []string) (level string, components []string) {
	prefix := commonPrefix(keys)
	strip := strings.Join(prefix, ".")
	if strip != "" {
		strip += "."
	}

	depth := 0
	components = make([]string, len(keys))
	for i, k := range keys {
		components[i] = strings.TrimPrefix(k, strip)
		depth = max(depth, graph.Depth(k))
	}

	pattern := make([]string, 0, depth)
	pattern = append(pattern, prefix...)
	for len(pattern) < depth {
		pattern = append(pattern, "*")
	}
	return strings.Join(pattern, "."), components
}

package composition

import (
	"cmp"
	"slices"

	"github.com/matzehuels/socomo/pkg/errors"
	"github.com/matzehuels/socomo/pkg/graph"
)

// Component is a named group of units within one level.
type Component struct {
	Name  string   `json:"name"`
	Size  int64    `json:"size"`
	Units []string `json:"units"`
}

// Dependency is a directed edge between two distinct components of a level.
type Dependency struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Strength int    `json:"strength"`
}

// Level is one granularity: a complete partition of the units into
// components plus the dependencies between them.
//
// Components are sorted by name and dependencies by (From, To). A Level is
// read-only once built; its slices must not be modified.
type Level struct {
	Name         string       `json:"name"`
	Components   []Component  `json:"components"`
	Dependencies []Dependency `json:"dependencies"`

	index map[string]int // component name -> position
	owner map[string]int // unit name -> component position
}

// NewLevel validates and assembles a level over the units of g.
//
// Every unit of g must belong to exactly one component, each component's
// size must equal the summed weight of its units, and every dependency
// must join two distinct components of the level with a positive strength.
// Violations are reported as [errors.ErrCodeBrokenPartition].
func NewLevel(g *graph.ClassGraph, name string, components []Component, deps []Dependency) (*Level, error) {
	if name == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "level name cannot be empty")
	}

	l := &Level{
		Name:         name,
		Components:   make([]Component, len(components)),
		Dependencies: slices.Clone(deps),
		index:        make(map[string]int, len(components)),
		owner:        make(map[string]int, g.NumUnits()),
	}
	for i, c := range components {
		c.Units = slices.Clone(c.Units)
		slices.Sort(c.Units)
		l.Components[i] = c
	}
	slices.SortFunc(l.Components, func(a, b Component) int { return cmp.Compare(a.Name, b.Name) })

	var total int64
	for i, c := range l.Components {
		if c.Name == "" {
			return nil, brokenf(name, "component with empty name")
		}
		if _, dup := l.index[c.Name]; dup {
			return nil, brokenf(name, "duplicate component %q", c.Name)
		}
		l.index[c.Name] = i
		if len(c.Units) == 0 {
			return nil, brokenf(name, "component %q has no units", c.Name)
		}

		var size int64
		for _, u := range c.Units {
			unit, ok := g.Unit(u)
			if !ok {
				return nil, brokenf(name, "component %q holds unknown unit %q", c.Name, u)
			}
			if prev, dup := l.owner[u]; dup {
				return nil, brokenf(name, "unit %q is in both %q and %q", u, l.Components[prev].Name, c.Name)
			}
			l.owner[u] = i
			size += unit.Weight
		}
		if size != c.Size {
			return nil, brokenf(name, "component %q has size %d, its units weigh %d", c.Name, c.Size, size)
		}
		total += size
	}
	if len(l.owner) != g.NumUnits() {
		return nil, brokenf(name, "%d of %d units assigned", len(l.owner), g.NumUnits())
	}
	if total != g.TotalWeight() {
		return nil, brokenf(name, "component sizes add up to %d, units weigh %d", total, g.TotalWeight())
	}

	slices.SortFunc(l.Dependencies, func(a, b Dependency) int {
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		return cmp.Compare(a.To, b.To)
	})
	for i, d := range l.Dependencies {
		if d.From == d.To {
			return nil, brokenf(name, "self dependency on %q", d.From)
		}
		if _, ok := l.index[d.From]; !ok {
			return nil, brokenf(name, "dependency from unknown component %q", d.From)
		}
		if _, ok := l.index[d.To]; !ok {
			return nil, brokenf(name, "dependency to unknown component %q", d.To)
		}
		if d.Strength <= 0 {
			return nil, brokenf(name, "dependency %s -> %s has strength %d", d.From, d.To, d.Strength)
		}
		if i > 0 && l.Dependencies[i-1].From == d.From && l.Dependencies[i-1].To == d.To {
			return nil, brokenf(name, "duplicate dependency %s -> %s", d.From, d.To)
		}
	}
	return l, nil
}

func brokenf(level, format string, args ...any) error {
	return errors.New(errors.ErrCodeBrokenPartition, "level %s: "+format, append([]any{level}, args...)...)
}

// BuildLevel groups the units of g with rule, aggregates the edges and
// names the result.
func BuildLevel(g *graph.ClassGraph, rule GroupingRule) (*Level, error) {
	gr, err := Group(g, rule)
	if err != nil {
		return nil, err
	}
	return buildLevel(g, gr)
}

func buildLevel(g *graph.ClassGraph, gr *Grouping) (*Level, error) {
	levelName, display := names(gr.keys)

	components := make([]Component, gr.Len())
	for i := range components {
		components[i].Name = display[i]
	}
	for i, u := range g.Units() {
		c := &components[gr.of[i]]
		c.Size += u.Weight
		c.Units = append(c.Units, u.Name)
	}

	return NewLevel(g, levelName, components, aggregate(g, gr, display))
}

// NumComponents returns the number of components.
func (l *Level) NumComponents() int { return len(l.Components) }

// NumDependencies returns the number of component dependencies.
func (l *Level) NumDependencies() int { return len(l.Dependencies) }

// Size returns the summed size of all components.
func (l *Level) Size() int64 {
	var s int64
	for _, c := range l.Components {
		s += c.Size
	}
	return s
}

// Component returns the named component.
func (l *Level) Component(name string) (Component, bool) {
	i, ok := l.index[name]
	if !ok {
		return Component{}, false
	}
	return l.Components[i], true
}

// Owner returns the name of the component holding unit.
func (l *Level) Owner(unit string) (string, bool) {
	i, ok := l.owner[unit]
	if !ok {
		return "", false
	}
	return l.Components[i].Name, true
}

// Strength returns the strength of the dependency from one component to
// another, or 0 if there is none.
func (l *Level) Strength(from, to string) int {
	i, found := slices.BinarySearchFunc(l.Dependencies, Dependency{From: from, To: to}, func(a, b Dependency) int {
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		return cmp.Compare(a.To, b.To)
	})
	if !found {
		return 0
	}
	return l.Dependencies[i].Strength
}

// MaxSize returns the size of the largest component.
func (l *Level) MaxSize() int64 {
	var m int64
	for _, c := range l.Components {
		m = max(m, c.Size)
	}
	return m
}

// MaxStrength returns the strength of the strongest dependency.
func (l *Level) MaxStrength() int {
	m := 0
	for _, d := range l.Dependencies {
		m = max(m, d.Strength)
	}
	return m
}

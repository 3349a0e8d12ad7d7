package graph

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/socomo/pkg/bytecode"
	"github.com/matzehuels/socomo/pkg/errors"
)

// WeightPolicy selects how a unit's weight is measured.
type WeightPolicy string

const (
	// WeightBytes weighs a unit by the byte size of its artifacts.
	WeightBytes WeightPolicy = "bytes"
	// WeightUnits gives every unit a weight of 1.
	WeightUnits WeightPolicy = "units"
)

// Valid reports whether p names a known policy. The empty policy is valid
// and means [WeightBytes].
func (p WeightPolicy) Valid() bool {
	return p == "" || p == WeightBytes || p == WeightUnits
}

// Options configures a [Builder].
type Options struct {
	Weight WeightPolicy

	// Exclude lists unit name prefixes that are not part of the codebase.
	// An entry matches a unit equal to it or nested under it, so "app.gen"
	// excludes "app.gen" and "app.gen.Foo" but not "app.generic.Foo".
	Exclude []string
}

type pair struct{ source, target string }

// Builder merges scan results into a [ClassGraph].
type Builder struct {
	opts    Options
	weights map[string]int64
	refs    map[pair]int
	stats   Stats
}

// NewBuilder creates an empty builder.
func NewBuilder(opts Options) *Builder {
	if opts.Weight == "" {
		opts.Weight = WeightBytes
	}
	return &Builder{
		opts:    opts,
		weights: make(map[string]int64),
		refs:    make(map[pair]int),
	}
}

// Add merges one scan result. Results for excluded units are counted and
// ignored.
func (b *Builder) Add(res *bytecode.ScanResult) error {
	if res == nil {
		return nil
	}
	if err := errors.ValidateUnitName(res.Unit); err != nil {
		return fmt.Errorf("add %s: %w", res.Artifact, err)
	}
	b.stats.Results++
	if b.excluded(res.Unit) {
		b.stats.Excluded++
		return nil
	}
	b.weights[res.Unit] += res.Size
	for _, ref := range res.References {
		b.refs[pair{res.Unit, ref.Target}]++
	}
	return nil
}

func (b *Builder) excluded(name string) bool {
	for _, p := range b.opts.Exclude {
		p = strings.TrimSuffix(p, ".")
		if name == p || strings.HasPrefix(name, p+".") {
			return true
		}
	}
	return false
}

// Build returns the merged graph. It fails with
// [errors.ErrCodeEmptyCodebase] when no unit was added.
func (b *Builder) Build() (*ClassGraph, error) {
	if !b.opts.Weight.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown weight policy %q", b.opts.Weight)
	}
	if len(b.weights) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyCodebase, "no code unit was scanned")
	}

	g := &ClassGraph{
		units: make([]Unit, 0, len(b.weights)),
		index: make(map[string]int, len(b.weights)),
		stats: b.stats,
	}
	for name, w := range b.weights {
		if b.opts.Weight == WeightUnits {
			w = 1
		}
		g.units = append(g.units, Unit{Name: name, Weight: w})
	}
	slices.SortFunc(g.units, func(x, y Unit) int { return cmp.Compare(x.Name, y.Name) })
	for i, u := range g.units {
		g.index[u.Name] = i
		g.weight += u.Weight
	}

	for p, n := range b.refs {
		g.stats.References += n
		if p.source == p.target {
			g.stats.SelfReferences += n
			continue
		}
		t, ok := g.index[p.target]
		if !ok {
			g.stats.ExternalReferences += n
			continue
		}
		g.edges = append(g.edges, UnitEdge{Source: g.index[p.source], Target: t, Multiplicity: n})
	}
	slices.SortFunc(g.edges, func(x, y UnitEdge) int {
		if c := cmp.Compare(x.Source, y.Source); c != 0 {
			return c
		}
		return cmp.Compare(x.Target, y.Target)
	})
	return g, nil
}

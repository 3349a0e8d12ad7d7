package composition

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/socomo/pkg/errors"
	"github.com/matzehuels/socomo/pkg/graph"
)

// Options configures [Compose].
type Options struct {
	// Workers bounds the number of levels computed at once. Zero means
	// GOMAXPROCS.
	Workers int

	// Selector picks the default level.
	Selector Selector
}

// Compose builds the module of g: one level per candidate depth, coarsest
// first, with repeated partitions dropped, and the default level selected.
//
// Levels are computed concurrently; g is only read. On the first error, or
// when ctx is canceled, the remaining work is abandoned and no module is
// returned.
func Compose(ctx context.Context, name string, g *graph.ClassGraph, opts Options) (*Module, error) {
	if g == nil || g.NumUnits() == 0 {
		return nil, errors.New(errors.ErrCodeEmptyCodebase, "no code unit to compose")
	}
	depths := CandidateDepths(g)
	if len(depths) == 0 {
		return nil, errors.New(errors.ErrCodeNoLevelsProduced, "no grouping depth available")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	type built struct {
		level    *Level
		grouping *Grouping
	}
	out := make([]built, len(depths))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, d := range depths {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			gr, err := Group(g, DepthRule(d))
			if err != nil {
				return err
			}
			l, err := buildLevel(g, gr)
			if err != nil {
				return err
			}
			out[i] = built{level: l, grouping: gr}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	levels := []*Level{out[0].level}
	prev := out[0].grouping
	for _, b := range out[1:] {
		if samePartition(prev, b.grouping) {
			continue
		}
		levels = append(levels, b.level)
		prev = b.grouping
	}

	def, err := opts.Selector.Select(levels, g.NumUnits())
	if err != nil {
		return nil, err
	}
	return NewModule(name, levels, def)
}

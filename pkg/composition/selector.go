package composition

import (
	"math"

	"github.com/matzehuels/socomo/pkg/errors"
)

// Scorer rates how useful a level is to show first. Higher is better; units
// is the number of units in the codebase.
type Scorer interface {
	Score(l *Level, units int) float64
}

// ScorerFunc adapts a function to [Scorer].
type ScorerFunc func(l *Level, units int) float64

// Score calls f.
func (f ScorerFunc) Score(l *Level, units int) float64 { return f(l, units) }

// DefaultMaxDensity is the dependency-per-component ratio above which
// [DensityScorer] starts penalising a level.
const DefaultMaxDensity = 3.0

// DensityScorer prefers a moderate number of components with a readable
// number of dependencies between them.
//
// The score is the product of two factors in [0, 1]:
//
//   - components: min(c, t) / max(c, t), where c is the component count
//     and t is TargetComponents or, when zero, sqrt(units) clamped to
//     [2, 30];
//   - density: 1 while dependencies per component stay at or below
//     MaxDensity, decaying as MaxDensity / density above it, and 0.1 for a
//     level without any dependency.
//
// A level with a single component scores 0.
type DensityScorer struct {
	TargetComponents int
	MaxDensity       float64
}

// Score implements [Scorer].
func (s DensityScorer) Score(l *Level, units int) float64 {
	c := float64(l.NumComponents())
	if c < 2 {
		return 0
	}

	t := float64(s.TargetComponents)
	if t <= 0 {
		t = min(max(math.Sqrt(float64(units)), 2), 30)
	}
	comp := min(c, t) / max(c, t)

	maxDensity := s.MaxDensity
	if maxDensity <= 0 {
		maxDensity = DefaultMaxDensity
	}
	var dens float64
	switch d := float64(l.NumDependencies()) / c; {
	case d == 0:
		dens = 0.1
	case d <= maxDensity:
		dens = 1
	default:
		dens = maxDensity / d
	}
	return comp * dens
}

// Selector chooses the default level of a module.
type Selector struct {
	// Scorer rates the levels. Nil means DensityScorer{}.
	Scorer Scorer

	// Default names a level that wins over any score.
	Default string
}

// Select returns the index of the default level. Ties, and a scorer that
// rates every level 0, resolve to the coarser level. With no levels Select
// fails with [errors.ErrCodeNoLevelsProduced]; an unknown Default name is
// [errors.ErrCodeInvalidInput].
func (s Selector) Select(levels []*Level, units int) (int, error) {
	if len(levels) == 0 {
		return -1, errors.New(errors.ErrCodeNoLevelsProduced, "no levels to select from")
	}
	if s.Default != "" {
		for i, l := range levels {
			if l.Name == s.Default {
				return i, nil
			}
		}
		return -1, errors.New(errors.ErrCodeInvalidInput, "default level %q does not exist", s.Default)
	}

	scorer := s.Scorer
	if scorer == nil {
		scorer = DensityScorer{}
	}
	best, bestScore := 0, math.Inf(-1)
	for i, l := range levels {
		score := scorer.Score(l, units)
		if math.IsNaN(score) {
			continue
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, nil
}

// Select picks the default level with the default [Selector].
func Select(levels []*Level, units int) (int, error) {
	return Selector{}.Select(levels, units)
}

package pipeline

import (
	"cmp"
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/matzehuels/socomo/pkg/bytecode"
	"github.com/matzehuels/socomo/pkg/composition"
	"github.com/matzehuels/socomo/pkg/errors"
	"github.com/matzehuels/socomo/pkg/graph"
	"github.com/matzehuels/socomo/pkg/observability"
	"github.com/matzehuels/socomo/pkg/source"
)

// Runner executes the pipeline.
//
// The Runner is stateless except for the logger - it doesn't store
// pipeline results. Multiple goroutines can safely use the same Runner
// with different options.
type Runner struct {
	Logger *log.Logger
}

// NewRunner creates a runner. If logger is nil, log.Default() is used.
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Logger: logger}
}

// Execute runs the complete scan → build → compose → render pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result, err := r.Analyze(ctx, opts)
	if err != nil {
		return result, err
	}

	renderStart := time.Now()
	artifacts, err := r.Render(ctx, result.Module, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	return result, nil
}

// Analyze scans the artifacts, builds the class graph and composes the
// module.
//
// On success the result carries the module and the diagnostics of skipped
// artifacts. When no artifact could be read the error has code
// EMPTY_CODEBASE and the returned result still carries the diagnostics, so
// the caller can report why; its Module is nil. Any other failure returns a
// nil result.
func (r *Runner) Analyze(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForAnalyze(); err != nil {
		return nil, err
	}

	result := &Result{RunID: uuid.NewString()}
	logger := opts.Logger.With("run", result.RunID[:8])
	hooks := observability.Pipeline()

	artifacts := opts.Artifacts
	if artifacts == nil {
		var err error
		if artifacts, err = source.Discover(opts.Paths...); err != nil {
			return nil, err
		}
	}
	result.Stats.Artifacts = len(artifacts)
	logger.Debug("discovered artifacts", "artifacts", len(artifacts))

	// Stage 1: Scan
	scanStart := time.Now()
	hooks.OnScanStart(ctx, len(artifacts))
	scanned, diags, err := scan(ctx, artifacts, opts)
	if err != nil {
		hooks.OnScanComplete(ctx, 0, len(diags), time.Since(scanStart), err)
		return nil, err
	}
	result.Diagnostics = diags
	for _, d := range diags {
		logger.Debug("skipped artifact", "artifact", d.Artifact, "reason", d.Reason)
	}

	// Stage 2: Build
	b := graph.NewBuilder(opts.GraphOptions())
	for _, res := range scanned {
		if err := b.Add(res); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "merge %s", res.Artifact)
		}
	}
	g, err := b.Build()
	hooks.OnScanComplete(ctx, unitCount(g), len(diags), time.Since(scanStart), err)
	if err != nil {
		if errors.Is(err, errors.ErrCodeEmptyCodebase) {
			return result, err
		}
		return nil, err
	}
	result.Graph = g
	result.Stats.ScanTime = time.Since(scanStart)
	result.Stats.Units = g.NumUnits()
	result.Stats.Edges = g.NumEdges()

	logger.Info("scanned bytecode",
		"units", g.NumUnits(),
		"edges", g.NumEdges(),
		"skipped", len(diags),
		"duration", result.Stats.ScanTime)

	// Stage 3: Compose
	composeStart := time.Now()
	hooks.OnComposeStart(ctx, g.NumUnits(), g.NumEdges())
	m, err := composition.Compose(ctx, opts.Name, g, opts.ComposeOptions())
	result.Stats.ComposeTime = time.Since(composeStart)
	if err != nil {
		hooks.OnComposeComplete(ctx, 0, result.Stats.ComposeTime, err)
		return nil, err
	}
	hooks.OnComposeComplete(ctx, len(m.Levels), result.Stats.ComposeTime, nil)
	result.Module = m
	result.Stats.Levels = len(m.Levels)

	logger.Info("composed levels",
		"levels", len(m.Levels),
		"default", m.DefaultLevel().Name,
		"duration", result.Stats.ComposeTime)

	return result, nil
}

// scanOutcome is the result of one scan task: either a scan result or the
// diagnostic of a skipped artifact.
type scanOutcome struct {
	res  *bytecode.ScanResult
	diag *Diagnostic
}

// scan runs the scanner over all artifacts on a bounded worker pool.
// Unreadable artifacts become diagnostics; any other error, including
// cancellation, stops the scan.
func scan(ctx context.Context, artifacts []source.Artifact, opts Options) ([]*bytecode.ScanResult, []Diagnostic, error) {
	scanner := bytecode.NewScanner(bytecode.Options{MergeNested: !opts.KeepNested})
	hooks := observability.Pipeline()

	p := pool.NewWithResults[scanOutcome]().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(opts.ScanWorkers(runtime.NumCPU()))

	for _, a := range artifacts {
		p.Go(func(ctx context.Context) (scanOutcome, error) {
			res, err := scanner.Scan(ctx, a)
			if err == nil {
				return scanOutcome{res: res}, nil
			}
			if errors.IsFatal(err) {
				return scanOutcome{}, err
			}
			hooks.OnArtifactSkipped(ctx, a.Name(), err)
			return scanOutcome{diag: &Diagnostic{Artifact: a.Name(), Reason: reason(err)}}, nil
		})
	}

	outcomes, err := p.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, nil, ctxErr
	}
	if err != nil {
		return nil, nil, err
	}

	var results []*bytecode.ScanResult
	var diags []Diagnostic
	for _, o := range outcomes {
		if o.diag != nil {
			diags = append(diags, *o.diag)
			continue
		}
		results = append(results, o.res)
	}
	slices.SortFunc(diags, func(a, b Diagnostic) int { return cmp.Compare(a.Artifact, b.Artifact) })
	return results, diags, nil
}

// reason is the error text without its code prefix.
func reason(err error) string {
	return strings.TrimPrefix(err.Error(), string(errors.GetCode(err))+": ")
}

func unitCount(g *graph.ClassGraph) int {
	if g == nil {
		return 0
	}
	return g.NumUnits()
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

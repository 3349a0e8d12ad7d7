// Package pipeline provides the analysis pipeline of socomo.
//
// This package implements the complete scan → build → compose → render
// pipeline used by every command of the CLI. Keeping it in one place gives
// `analyze`, `levels`, `browse` and `serve` the same defaults, the same
// validation and the same model for the same bytecode.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Scan: Enumerate artifacts and extract the references of each class
//     file, in parallel
//  2. Build: Merge all scan results into one [graph.ClassGraph]
//  3. Compose: Group units at every depth, aggregate dependencies and
//     select the default level
//  4. Render: Serialize the model (html, json, dot, svg)
//
// Artifacts that cannot be read are skipped and reported as [Diagnostic]
// records next to the model; everything else that goes wrong fails the
// whole run and no model is returned.
//
// # Usage
//
//	runner := pipeline.NewRunner(logger)
//	opts := pipeline.Options{
//	    Name:    "shop",
//	    Paths:   []string{"target/classes"},
//	    Formats: []string{"html", "json"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	page := result.Artifacts["html"]
//
// Run the stages separately:
//
//	result, err := runner.Analyze(ctx, opts)
//	artifacts, err := runner.Render(ctx, result.Module, opts)
package pipeline

import (
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/socomo/pkg/composition"
	"github.com/matzehuels/socomo/pkg/errors"
	"github.com/matzehuels/socomo/pkg/graph"
	"github.com/matzehuels/socomo/pkg/render"
	"github.com/matzehuels/socomo/pkg/source"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Config
// =============================================================================

const (
	// DefaultName is the module name used when none is configured.
	DefaultName = "module"

	// DefaultWeight is the default unit weight policy.
	DefaultWeight = graph.WeightBytes

	// DefaultMaxWorkers caps the default number of scan workers. Scanning
	// is mostly I/O on small files, so more workers than this rarely help.
	DefaultMaxWorkers = 16
)

// Format constants for output formats.
const (
	FormatHTML = "html"
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatHTML: true,
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// FileName returns the name of the file an artifact of the given format is
// written to. The launcher page keeps the name of the original build
// integration.
func FileName(format string) string {
	if format == FormatHTML {
		return "socomo.html"
	}
	return "socomo." + format
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the analysis pipeline.
type Options struct {
	// Scan options
	Name       string   `json:"name"`
	Paths      []string `json:"bytecode,omitempty"`
	KeepNested bool     `json:"keep_nested,omitempty"` // report Outer$Inner as its own unit
	Workers    int      `json:"workers,omitempty"`

	// Build options
	Weight  graph.WeightPolicy `json:"weight,omitempty"`
	Exclude []string           `json:"exclude,omitempty"`

	// Compose options
	DefaultLevel     string  `json:"default_level,omitempty"`
	TargetComponents int     `json:"target_components,omitempty"`
	MaxDensity       float64 `json:"max_density,omitempty"`

	// Render options
	Formats  []string       `json:"formats,omitempty"`
	Level    string         `json:"level,omitempty"` // level drawn by dot and svg; empty means the default level
	Detailed bool           `json:"detailed,omitempty"`
	Assets   []render.Asset `json:"assets,omitempty"`

	// Runtime options (not serialized)
	Logger    *log.Logger        `json:"-"`
	Artifacts []source.Artifact  `json:"-"` // used instead of Paths when set
	Scorer    composition.Scorer `json:"-"` // overrides the density scorer

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies the run in logs.
	RunID string

	// Module is the composition model.
	Module *composition.Module

	// Graph is the unit-level graph the model was composed from.
	Graph *graph.ClassGraph

	// Diagnostics lists the skipped artifacts, sorted by artifact name.
	Diagnostics []Diagnostic

	// Artifacts contains rendered outputs keyed by format. Only Execute
	// fills it.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats
}

// Diagnostic records an artifact that was skipped.
type Diagnostic struct {
	Artifact string `json:"artifact"`
	Reason   string `json:"reason"`
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Artifacts   int
	Units       int
	Edges       int
	Levels      int
	ScanTime    time.Duration
	ComposeTime time.Duration
	RenderTime  time.Duration
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: html, json, dot, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateWeight checks that a weight policy is valid.
func ValidateWeight(w graph.WeightPolicy) error {
	if !w.Valid() {
		return errors.New(errors.ErrCodeInvalidInput, "invalid weight: %q (must be one of: bytes, units)", w)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForAnalyze(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForAnalyze checks the fields used by scanning and composition
// and applies their defaults.
func (o *Options) ValidateForAnalyze() error {
	if len(o.Paths) == 0 && len(o.Artifacts) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "at least one bytecode path is required")
	}
	for _, p := range o.Paths {
		if err := errors.ValidatePath(p); err != nil {
			return err
		}
	}
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must not be negative")
	}
	if o.TargetComponents < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "target_components must not be negative")
	}
	if o.MaxDensity < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "max_density must not be negative")
	}
	for _, e := range o.Exclude {
		if strings.TrimSpace(e) == "" {
			return errors.New(errors.ErrCodeInvalidInput, "exclude entries cannot be empty")
		}
	}

	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Weight == "" {
		o.Weight = DefaultWeight
	}
	if err := ValidateWeight(o.Weight); err != nil {
		return err
	}
	if o.MaxDensity == 0 {
		o.MaxDensity = composition.DefaultMaxDensity
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// ValidateForRender checks the render fields and applies their defaults.
func (o *Options) ValidateForRender() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatHTML}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.Formats = dedupe(o.Formats)
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// ScanWorkers returns the number of scan workers to use.
func (o *Options) ScanWorkers(numCPU int) int {
	if o.Workers > 0 {
		return o.Workers
	}
	return min(numCPU, DefaultMaxWorkers)
}

// GraphOptions returns the options of the graph builder.
func (o *Options) GraphOptions() graph.Options {
	return graph.Options{Weight: o.Weight, Exclude: o.Exclude}
}

// ComposeOptions returns the options of the composition engine.
func (o *Options) ComposeOptions() composition.Options {
	scorer := o.Scorer
	if scorer == nil {
		scorer = composition.DensityScorer{
			TargetComponents: o.TargetComponents,
			MaxDensity:       o.MaxDensity,
		}
	}
	return composition.Options{
		Workers:  o.Workers,
		Selector: composition.Selector{Scorer: scorer, Default: o.DefaultLevel},
	}
}

func dedupe(formats []string) []string {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

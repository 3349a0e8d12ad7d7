package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/socomo/pkg/composition"
	"github.com/matzehuels/socomo/pkg/errors"
	"github.com/matzehuels/socomo/pkg/observability"
	"github.com/matzehuels/socomo/pkg/render"
)

// Render generates output artifacts of m in the requested formats.
func (r *Runner) Render(ctx context.Context, m *composition.Module, opts Options) (map[string][]byte, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnRenderStart(ctx, opts.Formats)
	artifacts, err := Render(ctx, m, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	opts.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", time.Since(start))
	return artifacts, nil
}

// Render generates output artifacts of m in the requested formats. The dot
// and svg formats draw opts.Level, or the default level when it is empty.
func Render(ctx context.Context, m *composition.Module, opts Options) (map[string][]byte, error) {
	if m == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no module to render")
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatHTML:
			data, err = render.HTML(m, render.HTMLOptions{Assets: opts.Assets})
		case FormatJSON:
			data, err = render.JSON(m)
		case FormatDOT:
			var l *composition.Level
			if l, err = LevelByName(m, opts.Level); err == nil {
				data = []byte(render.DOT(l, render.DOTOptions{Detailed: opts.Detailed}))
			}
		case FormatSVG:
			var l *composition.Level
			if l, err = LevelByName(m, opts.Level); err == nil {
				data, err = render.SVG(ctx, render.DOT(l, render.DOTOptions{Detailed: opts.Detailed}))
			}
		default:
			return nil, ValidateFormat(format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// LevelByName returns the level of m called name, or the default level
// when name is empty.
func LevelByName(m *composition.Module, name string) (*composition.Level, error) {
	if name == "" {
		return m.DefaultLevel(), nil
	}
	l, _, ok := m.Level(name)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "level %q does not exist", name)
	}
	return l, nil
}

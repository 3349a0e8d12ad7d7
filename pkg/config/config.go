// Package config reads socomo.toml, the optional project configuration.
//
// A minimal file only names the module:
//
//	name = "shop"
//
// Every key is optional:
//
//	name              = "shop"
//	skip              = false
//	bytecode          = ["target/classes"]
//	output            = "."
//	formats           = ["html", "json"]
//	workers           = 8
//	weight            = "bytes"          # or "units"
//	merge_nested      = true
//	exclude           = ["app.generated"]
//	default_level     = "app.*"
//	target_components = 12
//	max_density       = 3.0
//
//	[assets]
//	styles  = ["https://example.org/socomo.css"]
//	scripts = ["https://example.org/socomo.js"]
//
// Relative paths are resolved against the directory holding the file.
// Command-line flags override file values.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	serrors "github.com/matzehuels/socomo/pkg/errors"
	"github.com/matzehuels/socomo/pkg/graph"
	"github.com/matzehuels/socomo/pkg/pipeline"
	"github.com/matzehuels/socomo/pkg/render"
)

const (
	// FileName is the name of the configuration file looked up in the
	// project directory.
	FileName = "socomo.toml"

	// DefaultBytecodeDir is scanned when neither flags nor the file name a
	// bytecode path.
	DefaultBytecodeDir = "target/classes"
)

// Config is the content of socomo.toml.
type Config struct {
	Name             string   `toml:"name"`
	Skip             bool     `toml:"skip"`
	Bytecode         []string `toml:"bytecode"`
	Output           string   `toml:"output"`
	Formats          []string `toml:"formats"`
	Workers          int      `toml:"workers"`
	Weight           string   `toml:"weight"`
	MergeNested      *bool    `toml:"merge_nested"`
	Exclude          []string `toml:"exclude"`
	DefaultLevel     string   `toml:"default_level"`
	TargetComponents int      `toml:"target_components"`
	MaxDensity       float64  `toml:"max_density"`
	Assets           Assets   `toml:"assets"`

	// Path is the file the configuration was read from; empty when no
	// file exists.
	Path string `toml:"-"`
}

// Assets lists viewer stylesheets and scripts by URL. When any is given
// they replace the built-in viewer.
type Assets struct {
	Styles  []string `toml:"styles"`
	Scripts []string `toml:"scripts"`
}

// Load reads the configuration at path. A missing file yields an empty
// configuration, not an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrCodeInvalidPath, err, "read %s", path)
	}
	return Parse(path, data)
}

// Find loads socomo.toml from dir.
func Find(dir string) (*Config, error) {
	return Load(filepath.Join(dir, FileName))
}

// Parse decodes data read from path. Unknown keys are rejected so that a
// typo does not silently fall back to a default.
func Parse(path string, data []byte) (*Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrCodeInvalidInput, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, serrors.New(serrors.ErrCodeInvalidInput, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	c.Path = path
	dir := filepath.Dir(path)
	for i, p := range c.Bytecode {
		c.Bytecode[i] = resolve(dir, p)
	}
	if c.Output != "" {
		c.Output = resolve(dir, c.Output)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the values that do not depend on the pipeline.
func (c *Config) Validate() error {
	if c.Weight != "" && !graph.WeightPolicy(c.Weight).Valid() {
		return serrors.New(serrors.ErrCodeInvalidInput, "weight must be bytes or units, got %q", c.Weight)
	}
	if err := pipeline.ValidateFormats(c.Formats); err != nil {
		return err
	}
	for _, p := range c.Bytecode {
		if err := serrors.ValidatePath(p); err != nil {
			return err
		}
	}
	return nil
}

// Apply copies every value set in c into opts.
func (c *Config) Apply(opts *pipeline.Options) {
	if c.Name != "" {
		opts.Name = c.Name
	}
	if len(c.Bytecode) > 0 {
		opts.Paths = c.Bytecode
	}
	if len(c.Formats) > 0 {
		opts.Formats = c.Formats
	}
	if c.Workers > 0 {
		opts.Workers = c.Workers
	}
	if c.Weight != "" {
		opts.Weight = graph.WeightPolicy(c.Weight)
	}
	if c.MergeNested != nil {
		opts.KeepNested = !*c.MergeNested
	}
	if len(c.Exclude) > 0 {
		opts.Exclude = c.Exclude
	}
	if c.DefaultLevel != "" {
		opts.DefaultLevel = c.DefaultLevel
	}
	if c.TargetComponents > 0 {
		opts.TargetComponents = c.TargetComponents
	}
	if c.MaxDensity > 0 {
		opts.MaxDensity = c.MaxDensity
	}
	if assets := c.Assets.list(); len(assets) > 0 {
		opts.Assets = assets
	}
}

func (a Assets) list() []render.Asset {
	var out []render.Asset
	for _, u := range a.Styles {
		out = append(out, render.Asset{Kind: render.AssetStyle, URL: u})
	}
	for _, u := range a.Scripts {
		out = append(out, render.Asset{Kind: render.AssetScript, URL: u})
	}
	return out
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

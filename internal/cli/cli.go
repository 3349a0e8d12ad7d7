package cli

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/socomo/pkg/buildinfo"
	"github.com/matzehuels/socomo/pkg/config"
	"github.com/matzehuels/socomo/pkg/graph"
	"github.com/matzehuels/socomo/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "socomo"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	out io.Writer // status output, shared with the logger
}

// New creates a new CLI instance with a default logger writing to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), out: w}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Socomo shows the composition of a compiled codebase",
		Long: `Socomo reads compiled classes and shows how the codebase is composed:
which packages depend on which, and how strongly, at every depth of the
package hierarchy. The result is a self-contained HTML page meant to be
committed next to the code, so that changes in structure show up in review.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.levelsCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner() *pipeline.Runner {
	return pipeline.NewRunner(c.Logger)
}

// =============================================================================
// Analysis Flags - shared by every command that analyzes bytecode
// =============================================================================

type analysisFlags struct {
	dir          string
	configPath   string
	name         string
	bytecode     []string
	exclude      []string
	weight       string
	keepNested   bool
	workers      int
	defaultLevel string
	target       int
	maxDensity   float64
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.dir, "dir", "C", ".", "project directory holding "+config.FileName)
	fs.StringVar(&f.configPath, "config", "", "configuration file (default <dir>/"+config.FileName+")")
	fs.StringVarP(&f.name, "name", "n", "", "module name (default: project directory name)")
	fs.StringSliceVarP(&f.bytecode, "bytecode", "b", nil, "class directories, jars or class files (default <dir>/"+config.DefaultBytecodeDir+")")
	fs.StringSliceVar(&f.exclude, "exclude", nil, "unit name prefixes to leave out")
	fs.StringVar(&f.weight, "weight", "", "unit weight: bytes (default), units")
	fs.BoolVar(&f.keepNested, "keep-nested", false, "report nested classes as units of their own")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (default: number of CPUs)")
	fs.StringVar(&f.defaultLevel, "default-level", "", "level shown first, by name (default: chosen by density)")
	fs.IntVar(&f.target, "target-components", 0, "preferred number of components in the default level")
	fs.Float64Var(&f.maxDensity, "max-density", 0, "dependencies per component above which a level reads as dense")
}

// options merges socomo.toml and the flags given on the command line.
func (f *analysisFlags) options(cmd *cobra.Command) (pipeline.Options, *config.Config, error) {
	path := f.configPath
	if path == "" {
		path = filepath.Join(f.dir, config.FileName)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return pipeline.Options{}, nil, err
	}

	var opts pipeline.Options
	cfg.Apply(&opts)

	changed := cmd.Flags().Changed
	if changed("name") {
		opts.Name = f.name
	}
	if changed("bytecode") {
		opts.Paths = f.bytecode
	}
	if changed("exclude") {
		opts.Exclude = f.exclude
	}
	if changed("weight") {
		opts.Weight = graph.WeightPolicy(f.weight)
	}
	if changed("keep-nested") {
		opts.KeepNested = f.keepNested
	}
	if changed("workers") {
		opts.Workers = f.workers
	}
	if changed("default-level") {
		opts.DefaultLevel = f.defaultLevel
	}
	if changed("target-components") {
		opts.TargetComponents = f.target
	}
	if changed("max-density") {
		opts.MaxDensity = f.maxDensity
	}

	if len(opts.Paths) == 0 {
		opts.Paths = []string{filepath.Join(f.dir, config.DefaultBytecodeDir)}
	}
	if opts.Name == "" {
		opts.Name = projectName(f.dir)
	}
	return opts, cfg, nil
}

// projectName derives a module name from the project directory.
func projectName(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return pipeline.DefaultName
	}
	name := filepath.Base(abs)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return pipeline.DefaultName
	}
	return name
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/socomo/pkg/pipeline"
)

// analyzeCommand creates the analyze command, which writes the launcher page
// and any other requested output.
func (c *CLI) analyzeCommand() *cobra.Command {
	var (
		flags      analysisFlags
		formatsStr string
		output     string
		level      string
		detailed   bool
		skip       bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze compiled classes and write socomo.html",
		Long: `Analyze compiled classes and write the composition model.

The analyze command scans class directories, jars and class files, builds
the dependency graph between classes, groups it at every depth of the
package hierarchy and writes the result. By default it writes socomo.html,
a self-contained page meant to be committed to the repository.

Settings are read from socomo.toml in the project directory; flags override
them. When the bytecode directory does not exist (nothing compiled yet) the
command warns and does nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, cfg, err := flags.options(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("skip") {
				cfg.Skip = skip
			}
			if cfg.Skip {
				c.Logger.Info("analysis skipped", "config", cfg.Path)
				return nil
			}

			if formats := parseFormats(formatsStr); len(formats) > 0 {
				opts.Formats = formats
			}
			opts.Level = level
			opts.Detailed = detailed

			if !cmd.Flags().Changed("output") {
				output = flags.dir
				if cfg.Output != "" {
					output = cfg.Output
				}
			}
			return c.runAnalyze(cmd.Context(), opts, output)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (default: project directory)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): html (default), json, dot, svg (comma-separated)")
	cmd.Flags().StringVar(&level, "level", "", "level drawn by dot and svg (default: the default level)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "show unit count and size in dot and svg nodes")
	cmd.Flags().BoolVar(&skip, "skip", false, "do nothing (overrides skip in "+appName+".toml)")

	return cmd
}

// runAnalyze executes the pipeline and writes one file per format.
func (c *CLI) runAnalyze(ctx context.Context, opts pipeline.Options, output string) error {
	paths, missing := existingPaths(opts.Paths)
	for _, p := range missing {
		c.Logger.Warn("bytecode path does not exist", "path", p)
	}
	if len(paths) == 0 {
		printWarning("No bytecode to analyze, nothing written")
		return nil
	}
	opts.Paths = paths
	if opts.Logger == nil {
		opts.Logger = c.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	prog := newProgress(c.Logger)
	spinner := newSpinner(ctx, c.out, fmt.Sprintf("Analyzing %s...", opts.Name))
	spinner.Start()

	result, err := c.newRunner().Execute(ctx, opts)
	if err != nil {
		if ctx.Err() != nil {
			spinner.Stop()
			return ctx.Err()
		}
		spinner.StopWithError("Analysis failed")
		if result != nil {
			c.logDiagnostics(result.Diagnostics)
		}
		return fmt.Errorf("analyze: %w", err)
	}
	spinner.Stop()
	c.logDiagnostics(result.Diagnostics)

	if err := os.MkdirAll(output, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	var written []string
	for _, format := range opts.Formats {
		data, ok := result.Artifacts[format]
		if !ok {
			continue
		}
		path := filepath.Join(output, pipeline.FileName(format))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	prog.done(fmt.Sprintf("Analyzed %d artifacts", result.Stats.Artifacts))

	m := result.Module
	printSuccess("Composed %s", StyleHighlight.Render(m.Name))
	printStats(result.Stats)
	printKeyValue("default", m.DefaultLevel().Name)
	for _, path := range written {
		printFile(path)
	}
	printNewline()
	printNextStep("Browse the levels", appName+" browse")
	return nil
}

// existingPaths splits paths into those that exist and those that do not.
func existingPaths(paths []string) (found, missing []string) {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, p)
			continue
		}
		found = append(found, p)
	}
	return found, missing
}

func (c *CLI) logDiagnostics(diags []pipeline.Diagnostic) {
	for _, d := range diags {
		c.Logger.Warn("skipped artifact", "artifact", d.Artifact, "reason", d.Reason)
	}
}

package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/socomo/pkg/composition"
	"github.com/matzehuels/socomo/pkg/pipeline"
)

// levelsCommand creates the levels command, which prints one row per level.
func (c *CLI) levelsCommand() *cobra.Command {
	var flags analysisFlags

	cmd := &cobra.Command{
		Use:   "levels",
		Short: "Print the levels of the composition model",
		Long: `Print the levels of the composition model.

Every level groups the classes at one depth of the package hierarchy. The
table lists, coarsest first, the number of components and dependencies of
each level and how many dependency cycles it contains. The default level,
the one the launcher page opens with, is marked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _, err := flags.options(cmd)
			if err != nil {
				return err
			}
			m, err := c.analyze(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), levelsTable(m))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// analyze runs the pipeline up to the composition model, behind a spinner.
func (c *CLI) analyze(ctx context.Context, opts pipeline.Options) (*composition.Module, error) {
	spinner := newSpinner(ctx, c.out, fmt.Sprintf("Analyzing %s...", opts.Name))
	spinner.Start()

	result, err := c.newRunner().Analyze(ctx, opts)
	if err != nil {
		spinner.Stop()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if result != nil {
			c.logDiagnostics(result.Diagnostics)
		}
		return nil, fmt.Errorf("analyze: %w", err)
	}
	spinner.Stop()
	c.logDiagnostics(result.Diagnostics)
	return result.Module, nil
}

// levelsTable renders the summary table of m.
func levelsTable(m *composition.Module) string {
	rows := make([][]string, len(m.Levels))
	cycles := make([]int, len(m.Levels))
	for i, l := range m.Levels {
		mark := ""
		if i == m.Default {
			mark = iconCursor
		}
		cycles[i] = len(composition.Cycles(l))
		rows[i] = []string{
			mark,
			strconv.Itoa(i),
			l.Name,
			strconv.Itoa(l.NumComponents()),
			strconv.Itoa(l.NumDependencies()),
			strconv.Itoa(cycles[i]),
		}
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("", "#", "Level", "Components", "Dependencies", "Cycles").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return styleHeader.Padding(0, 1)
			case col == 5 && cycles[row] > 0:
				return StyleCycle.Padding(0, 1)
			case row == m.Default:
				return StyleHighlight.Bold(true).Padding(0, 1)
			}
			return cell
		})
	return t.Render()
}

package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/socomo/pkg/composition"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// browseCommand creates the browse command, an interactive level browser.
func (c *CLI) browseCommand() *cobra.Command {
	var flags analysisFlags

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Explore the composition model interactively",
		Long: `Explore the composition model interactively.

Switch between levels with ←/→, select a component with ↑/↓ and see what it
depends on and what depends on it. Components that take part in a
dependency cycle are shown in red.`,
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
			_, err = tea.NewProgram(newBrowser(m), tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	flags.register(cmd)
	return cmd
}

// =============================================================================
// browser - Interactive level browser
// =============================================================================

// browser is the bubbletea model of the browse command.
type browser struct {
	module  *composition.Module
	level   int
	cursor  int
	offset  int
	height  int
	inCycle map[string]bool
}

func newBrowser(m *composition.Module) browser {
	b := browser{module: m, height: 15}
	b.setLevel(m.Default)
	return b
}

func (b *browser) setLevel(i int) {
	b.level = i
	b.cursor = 0
	b.offset = 0
	b.inCycle = make(map[string]bool)
	for _, c := range composition.Cycles(b.current()) {
		for _, name := range c {
			b.inCycle[name] = true
		}
	}
}

func (b browser) current() *composition.Level {
	return b.module.Levels[b.level]
}

func (b browser) Init() tea.Cmd {
	return nil
}

func (b browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return b, tea.Quit
		case "left", "h":
			if b.level > 0 {
				b.setLevel(b.level - 1)
			}
		case "right", "l":
			if b.level < len(b.module.Levels)-1 {
				b.setLevel(b.level + 1)
			}
		case "up", "k":
			if b.cursor > 0 {
				b.cursor--
				if b.cursor < b.offset {
					b.offset = b.cursor
				}
			}
		case "down", "j":
			if b.cursor < b.current().NumComponents()-1 {
				b.cursor++
				if b.cursor >= b.offset+b.height {
					b.offset = b.cursor - b.height + 1
				}
			}
		}
	case tea.WindowSizeMsg:
		b.height = max(msg.Height-14, 5)
		b.offset = max(b.offset, b.cursor-b.height+1)
	}
	return b, nil
}

func (b browser) View() string {
	l := b.current()
	var sb strings.Builder

	sb.WriteString(StyleTitle.Render(b.module.Name) + listDimStyle.Render(" › ") + StyleHighlight.Render(l.Name))
	sb.WriteString(listDimStyle.Render(fmt.Sprintf("  [level %d/%d]", b.level+1, len(b.module.Levels))))
	sb.WriteString("\n")
	sb.WriteString(listDimStyle.Render("←/→ level  ↑/↓ component  q quit"))
	sb.WriteString("\n\n")

	end := min(b.offset+b.height, l.NumComponents())
	var rows [][]string
	for i := b.offset; i < end; i++ {
		c := l.Components[i]
		cursor := "  "
		if i == b.cursor {
			cursor = iconCursor + " "
		}
		rows = append(rows, []string{cursor, c.Name, strconv.FormatInt(c.Size, 10), strconv.Itoa(len(c.Units))})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("", "Component", "Size", "Units").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			idx := b.offset + row
			style := listNormalStyle
			if b.inCycle[l.Components[idx].Name] {
				style = StyleCycle
			}
			if idx == b.cursor {
				style = style.Bold(true)
			}
			return style
		})
	sb.WriteString(t.Render())
	sb.WriteString("\n\n")

	if l.NumComponents() > 0 {
		sb.WriteString(b.details(l, l.Components[b.cursor].Name))
	}
	return sb.String()
}

// details lists the dependencies of the selected component in both
// directions.
func (b browser) details(l *composition.Level, name string) string {
	var out, in []string
	for _, d := range l.Dependencies {
		switch name {
		case d.From:
			out = append(out, fmt.Sprintf("%s %s (%d)", iconArrow, d.To, d.Strength))
		case d.To:
			in = append(in, fmt.Sprintf("%s %s (%d)", d.From, iconArrow, d.Strength))
		}
	}

	var sb strings.Builder
	sb.WriteString(listSelectedStyle.Render(name))
	sb.WriteString("\n")
	section := func(title string, lines []string) {
		sb.WriteString(listDimStyle.Render(title))
		sb.WriteString("\n")
		if len(lines) == 0 {
			sb.WriteString(listDimStyle.Render("  none"))
			sb.WriteString("\n")
		}
		for _, line := range lines {
			sb.WriteString("  " + listNormalStyle.Render(line) + "\n")
		}
	}
	section("depends on", out)
	section("used by", in)
	return sb.String()
}

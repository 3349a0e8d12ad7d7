package render

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/matzehuels/socomo/pkg/composition"
)

// DOTOptions configures [DOT].
type DOTOptions struct {
	// Detailed adds the unit count and size to component labels.
	Detailed bool
}

// DOT converts one level to a Graphviz digraph. Components are boxes,
// dependencies are arrows labelled with their strength and drawn thicker
// the stronger they are. Components taking part in a dependency cycle are
// filled in a warning colour.
func DOT(l *composition.Level, opts DOTOptions) string {
	inCycle := make(map[string]bool)
	for _, c := range composition.Cycles(l) {
		for _, name := range c {
			inCycle[name] = true
		}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %s {\n", dotQuote(l.Name))
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("\n")

	for _, c := range l.Components {
		label := c.Name
		if opts.Detailed {
			label = fmt.Sprintf("%s\nunits: %d\nsize: %d", c.Name, len(c.Units), c.Size)
		}
		attrs := "label=" + dotQuote(label)
		if inCycle[c.Name] {
			attrs += ", fillcolor=\"#f9d5d3\""
		}
		fmt.Fprintf(&buf, "  %s [%s];\n", dotQuote(c.Name), attrs)
	}

	buf.WriteString("\n")
	maxStrength := float64(l.MaxStrength())
	for _, d := range l.Dependencies {
		width := 1 + 3*ratio(float64(d.Strength), maxStrength)
		fmt.Fprintf(&buf, "  %s -> %s [label=\"%d\", penwidth=%.1f];\n", dotQuote(d.From), dotQuote(d.To), d.Strength, math.Round(width*10)/10)
	}

	buf.WriteString("}\n")
	return buf.String()
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r\n", `\n`, "\n", `\n`)

// dotQuote returns s as a double-quoted DOT string. Only quotes and
// backslashes are escaped and line breaks become \n; everything else is
// kept verbatim, which Graphviz reads as UTF-8.
func dotQuote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}

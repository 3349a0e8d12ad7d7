package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html"
	"strings"

	"github.com/matzehuels/socomo/pkg/composition"
)

// AssetKind selects how an asset is included in the launcher page.
type AssetKind string

// Asset kinds.
const (
	AssetStyle         AssetKind = "style"          // <link> to URL
	AssetScript        AssetKind = "script"         // <script src> to URL
	AssetStyleContent  AssetKind = "style_content"  // inline <style>
	AssetScriptContent AssetKind = "script_content" // inline <script>
)

// Asset is a stylesheet or script of the viewer.
type Asset struct {
	Kind    AssetKind `json:"kind" toml:"kind"`
	URL     string    `json:"url,omitempty" toml:"url"`
	Content string    `json:"content,omitempty" toml:"content"`
}

//go:embed viewer/viewer.css
var viewerCSS string

//go:embed viewer/viewer.js
var viewerJS string

// DefaultAssets returns the built-in viewer as inline content.
func DefaultAssets() []Asset {
	return []Asset{
		{Kind: AssetStyleContent, Content: viewerCSS},
		{Kind: AssetScriptContent, Content: viewerJS},
	}
}

// HTMLOptions configures [HTML].
type HTMLOptions struct {
	// Assets are included in order. Empty means DefaultAssets.
	Assets []Asset
}

// HTML renders the launcher page of m.
//
// The page is meant to be committed next to the code it describes, so the
// output is stable: same model, same bytes.
func HTML(m *composition.Module, opts HTMLOptions) ([]byte, error) {
	assets := opts.Assets
	if len(assets) == 0 {
		assets = DefaultAssets()
	}

	p := &printer{}
	p.out("<!-- File generated by socomo: do not edit by hand, but do commit to the repository -->")
	p.out("<!doctype html>")
	p.out("<!--suppress ALL-->")
	p.out("<html lang='en'>")

	p.out("<head>")
	p.indent(+4)
	p.out("<title>socomo: %s</title>", html.EscapeString(m.Name))
	for _, a := range assets {
		switch a.Kind {
		case AssetStyle:
			p.out("<link href='%s' rel='stylesheet'>", html.EscapeString(a.URL))
		case AssetScript:
			p.out("<script src='%s'></script>", html.EscapeString(a.URL))
		case AssetStyleContent:
			p.block("style", a.Content)
		case AssetScriptContent:
			p.block("script", a.Content)
		default:
			return nil, fmt.Errorf("unsupported asset kind %q", a.Kind)
		}
	}
	p.indent(-4)
	p.out("</head>")

	p.out("<body>")
	p.out("<script>")
	p.out("socomo(%s, { // module", ecmaString(m.Name))
	for _, l := range ordered(m) {
		p.out("")
		p.level(l)
	}
	p.out("")
	p.out("});")
	p.out("</script>")
	p.out("</body>")
	p.out("</html>")
	return p.buf.Bytes(), nil
}

// ordered returns the levels of m with the default level first.
func ordered(m *composition.Module) []*composition.Level {
	out := make([]*composition.Level, 0, len(m.Levels))
	out = append(out, m.DefaultLevel())
	for i, l := range m.Levels {
		if i != m.Default {
			out = append(out, l)
		}
	}
	return out
}

type printer struct {
	buf    bytes.Buffer
	prefix string
}

func (p *printer) indent(change int) {
	p.prefix = strings.Repeat(" ", len(p.prefix)+change)
}

func (p *printer) out(format string, args ...any) {
	p.buf.WriteString(p.prefix)
	if len(args) == 0 {
		p.buf.WriteString(format)
	} else {
		fmt.Fprintf(&p.buf, format, args...)
	}
	p.buf.WriteByte('\n')
}

func (p *printer) block(tag, content string) {
	p.out("<%s>", tag)
	for _, line := range strings.Split(content, "\n") {
		if line != "" {
			p.out("%s", line)
		}
	}
	p.out("</%s>", tag)
}

func (p *printer) level(l *composition.Level) {
	p.out("[%s]: // level", ecmaString(l.Name))
	p.out("{")
	p.indent(+2)

	maxSize := float64(l.MaxSize())
	p.out("components: {")
	p.indent(+2)
	for _, c := range l.Components {
		p.out("%-36s :{ size: %.1f },", ecmaString(c.Name), ratio(float64(c.Size), maxSize))
	}
	p.indent(-2)
	p.out("},")

	maxStrength := float64(l.MaxStrength())
	p.out("dependencies: {")
	p.indent(+2)
	for _, d := range l.Dependencies {
		p.out("%-36s :{ strength: %.1f },", ecmaString(d.From+" -> "+d.To), ratio(float64(d.Strength), maxStrength))
	}
	p.indent(-2)
	p.out("},")

	p.indent(-2)
	p.out("},")
}

func ratio(v, top float64) float64 {
	if top == 0 {
		return 0
	}
	return v / top
}

// ecmaString quotes s as a single-quoted script string literal. Quotes,
// backslashes, slashes and every character outside printable ASCII are
// escaped, so the literal is safe inside a <script> element.
func ecmaString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'', '"', '\\', '/':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\b':
			b.WriteString(`\b`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\f':
			b.WriteString(`\f`)
		case '\r':
			b.WriteString(`\r`)
		default:
			switch {
			case r >= 0x20 && r < 0x7F:
				b.WriteRune(r)
			case r > 0xFFFF:
				r -= 0x10000
				fmt.Fprintf(&b, `\u%04X\u%04X`, 0xD800+(r>>10), 0xDC00+(r&0x3FF))
			default:
				fmt.Fprintf(&b, `\u%04X`, r)
			}
		}
	}
	b.WriteByte('\'')
	return b.String()
}

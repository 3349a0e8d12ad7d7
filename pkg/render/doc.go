// Package render serialises a composition model for people and tools.
//
// # Overview
//
// The model produced by the composition engine is the only input; nothing
// here recomputes components or dependencies.
//
//   - [HTML]: the launcher page. It calls socomo(name, composition) with the
//     levels as a script literal, sizes and strengths normalised to the
//     largest value of their level. The default level comes first.
//   - [JSON]: the complete model, including units and dependency cycles.
//   - [DOT]: one level as a Graphviz digraph.
//   - [SVG]: DOT rendered in-process by Graphviz.
//
// # Assets
//
// The launcher page loads the viewer through [Asset] entries: stylesheets
// and scripts by URL, or inline content. Without assets the built-in
// viewer is inlined, so the page works offline:
//
//	page := render.HTML(m, render.HTMLOptions{})
//	page := render.HTML(m, render.HTMLOptions{Assets: []render.Asset{
//	    {Kind: render.AssetStyle, URL: "https://example.org/viewer.css"},
//	    {Kind: render.AssetScript, URL: "https://example.org/viewer.js"},
//	}})
//
// # Dependencies
//
// [SVG] uses [github.com/goccy/go-graphviz], which embeds Graphviz as
// WebAssembly; no system installation is needed.
package render

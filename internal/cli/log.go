// Package cli implements the socomo command-line interface.
//
// This package provides the commands that analyze compiled classes, show
// the resulting composition model in the terminal or over HTTP, and write
// the launcher page. The CLI is built using cobra and logs with the
// charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - analyze: Scan bytecode and write socomo.html (and json, dot, svg)
//   - levels: Print a summary table of every level
//   - browse: Explore levels, components and dependencies interactively
//   - serve: Serve the model, the launcher page and level graphs over HTTP
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Skipped
// artifacts are reported as warnings.
//
// # Example
//
//	import "github.com/matzehuels/socomo/internal/cli"
//
//	func main() {
//	    if err := cli.Execute(ctx, os.Args[1:], os.Stderr); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created,
// e.g. "Analyzed 412 artifacts (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

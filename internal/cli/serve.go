package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/socomo/internal/server"
	"github.com/matzehuels/socomo/pkg/composition"
)

const shutdownTimeout = 5 * time.Second

// serveCommand creates the serve command, which analyzes once and serves
// the result over HTTP until interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		flags    analysisFlags
		addr     string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the composition model over HTTP",
		Long: `Serve the composition model over HTTP.

The serve command analyzes the bytecode once and serves the launcher page
at /, the model at /model.json, a level summary at /levels and the graph of
every level at /levels/{n}/graph.svg and /levels/{n}/graph.dot. Stop it
with Ctrl+C.`,
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
			return c.runServe(cmd.Context(), m, server.Options{Assets: opts.Assets, Detailed: detailed, Logger: c.Logger}, addr)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "show unit count and size in graph nodes")
	return cmd
}

// runServe serves m until ctx is canceled, then shuts down gracefully.
func (c *CLI) runServe(ctx context.Context, m *composition.Module, opts server.Options, addr string) error {
	s, err := server.New(m, opts)
	if err != nil {
		return fmt.Errorf("prepare server: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	printInfo("Serving %s on %s", StyleHighlight.Render(m.Name), StyleValue.Render("http://"+ln.Addr().String()))
	c.Logger.Info("listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	c.Logger.Info("server stopped")
	return nil
}

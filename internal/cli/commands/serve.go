package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/asksql/internal/server"
	"github.com/spf13/cobra"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the question pipeline over HTTP",
		Long: `Start an HTTP server exposing validation, review and query endpoints.

Endpoints:
  GET  /healthz              liveness probe
  GET  /api/schema           schema description and parsed tables
  GET  /api/examples         example questions
  POST /api/validate         validate (or revalidate) a question
  POST /api/query            run a question through the pipeline
  GET  /api/query/stream     run a question, streaming retries as SSE
  POST /api/review           start a review session for a question
  POST /api/review/suggest   revise the question under review
  POST /api/review/confirm   run the improved or original question`,
		Example: `  # Serve on the configured address (default :8080)
  asksql serve

  # Serve on a custom address
  asksql serve --addr 127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Address to listen on (default: server.addr)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	addr := cmdCtx.Cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	srv, err := server.New(server.Config{
		Service:         cmdCtx.Engine,
		Addr:            addr,
		ShutdownTimeout: cmdCtx.Cfg.Server.ShutdownTimeout,
		SessionSecret:   []byte(cmdCtx.Cfg.Server.SessionSecret),
		Logger:          cmdCtx.Logger.With(slog.String("component", "server")),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	cmdCtx.Renderer.Printf("Serving on %s (%s)\n", addr, cmdCtx.Engine.Dialect().Title)
	cmdCtx.Renderer.Muted("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Serve(ctx)
}

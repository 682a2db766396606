package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	berrors "github.com/Aman-CERP/buscador/internal/errors"
	"github.com/Aman-CERP/buscador/internal/index"
	"github.com/Aman-CERP/buscador/internal/server"
	"github.com/Aman-CERP/buscador/internal/telemetry"
	"github.com/Aman-CERP/buscador/internal/watcher"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP search API",
		Long: `Serve the HTTP API:

  GET  /                          service info
  GET  /search?q=<query>          full-text search
  POST /index                     rebuild the index
  GET  /find?path=&q=&width=      locate text inside one document
  GET  /status                    committed index manifest
  GET  /metrics                   query metrics since start

With --watch, changes under the document root trigger a rebuild once the
tree has been quiet for server.watch_debounce.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationLogStderr: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runServe(ctx, addr, watch)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from server.addr)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Rebuild the index when documents change")

	return cmd
}

func (a *app) runServe(ctx context.Context, addr string, watch bool) error {
	engine := a.newEngine()
	builder := index.NewBuilderFromConfig(a.cfg)
	builder.OnCommit(func(*index.Manifest) { engine.Invalidate() })
	registry := a.newExtractor()

	srv := server.New(engine, builder, registry, a.cfg.Paths.DocumentsDir,
		server.WithMetrics(telemetry.NewQueryMetrics(telemetry.DefaultConfig())))

	var w *watcher.Watcher
	if watch {
		var err error
		w, err = watcher.New(watcher.Options{
			Root:     a.cfg.Paths.DocumentsDir,
			Debounce: a.cfg.Server.WatchDebounce,
			Filter:   registry.Supports,
		})
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx, addr)
	})
	if w != nil {
		g.Go(func() error {
			return w.Run(ctx, func(ctx context.Context, batch []watcher.FileEvent) {
				slog.Info("watch_rebuild_triggered", slog.Int("changes", len(batch)))
				if _, err := builder.Build(ctx); err != nil {
					slog.Warn("watch_rebuild_failed", berrors.LogAttrs(err)...)
				}
			})
		})
	}

	return g.Wait()
}

package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	berrors "github.com/Aman-CERP/buscador/internal/errors"
	"github.com/Aman-CERP/buscador/internal/index"
	"github.com/Aman-CERP/buscador/internal/mcp"
)

func newMCPCmd(a *app) *cobra.Command {
	var build bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server over stdio",
		Long: `Run a Model Context Protocol server over stdio exposing the search,
find_in_file and index_status tools.

Stdout carries JSON-RPC only; logs go to the log file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			engine := a.newEngine()
			if build {
				if _, err := engine.Status(); err != nil {
					slog.Info("mcp_building_missing_index", slog.String("index_dir", a.cfg.Paths.IndexDir))
					if _, err := index.NewBuilderFromConfig(a.cfg).Build(ctx); err != nil {
						slog.Warn("mcp_initial_build_failed", berrors.LogAttrs(err)...)
					}
				}
			}

			srv, err := mcp.NewServer(engine, a.newExtractor(), a.cfg.Paths.DocumentsDir)
			if err != nil {
				return err
			}
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().BoolVar(&build, "build", false, "Build the index first when none exists")

	return cmd
}

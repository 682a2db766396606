package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/buscador/internal/output"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit  int
	format string // "text", "json"
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Long: `Search documents and database values.

The query supports field:value terms (content, filename, table, column),
quoted phrases, and + / - for required and excluded terms.

Examples:
  buscador search "acta de grado"
  buscador search 'table:clientes +bogota'
  buscador search informe --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if opts.format != "text" && opts.format != "json" {
				return fmt.Errorf("invalid format %q: must be text or json", opts.format)
			}

			slog.Info("search_started", slog.String("query", query), slog.Int("limit", opts.limit))
			resp := a.newEngine().Search(cmd.Context(), query)
			if opts.limit > 0 && len(resp.Results) > opts.limit {
				resp.Results = resp.Results[:opts.limit]
			}

			if opts.format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(resp); err != nil {
					return err
				}
			} else {
				output.New(cmd.OutOrStdout()).Results(resp)
			}
			return resp.Err()
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results to print (0 means all)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/buscador/internal/index"
	"github.com/Aman-CERP/buscador/internal/output"
)

func newIndexCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the search index",
		Long: `Rebuild the index from the document root and, when enabled, the
configured database. The previous index stays in place until the new one
is committed, so searches never see a partial index.

Examples:
  buscador index
  buscador index --json
  DB_ENABLED=false buscador index`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			builder := index.NewBuilderFromConfig(a.cfg)
			res, err := builder.Build(cmd.Context())

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(res); encErr != nil {
					return encErr
				}
				return err
			}

			output.New(cmd.OutOrStdout()).BuildSummary(res)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the build result as JSON")

	return cmd
}

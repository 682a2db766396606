package cmd

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/buscador/internal/output"
)

func newStatusCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the committed index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.newEngine().Status()
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			}

			out := output.New(cmd.OutOrStdout())
			out.Successf("Index ready: %d record(s)", m.IndexedCount)
			out.Statusf("", "built: %s (%s)", m.CreatedAt.Local().Format(time.RFC1123), m.BuildID)
			out.Statusf("", "documents: %d, database values: %d, skipped: %d",
				m.DocumentCount, m.DatabaseCount, m.Skipped)
			out.Statusf("", "index: %s", a.cfg.Paths.IndexDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the manifest as JSON")

	return cmd
}

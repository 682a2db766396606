package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/buscador/internal/matcher"
	"github.com/Aman-CERP/buscador/internal/output"
)

func newFindCmd(a *app) *cobra.Command {
	var width int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "find <file> <query>",
		Short: "Locate a literal text inside one document",
		Long: `Extract one document and print every case-insensitive occurrence of
query, with surrounding context and the sheet or slide it appears in.

The file path is resolved against the document root and must stay inside it.

Examples:
  buscador find informes/ventas.xlsx "total general"
  buscador find deck.pptx presupuesto --width 80`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := matcher.ResolvePath(a.cfg.Paths.DocumentsDir, args[0])
			if err != nil {
				return err
			}

			res, err := matcher.FindInFile(cmd.Context(), a.newExtractor(), path, args[1], width)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res.Matches)
			}
			output.New(cmd.OutOrStdout()).Matches(args[0], args[1], res.Matches)
			return nil
		},
	}

	cmd.Flags().IntVarP(&width, "width", "w", matcher.DefaultWidth, "Context characters on each side of a match")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print matches as JSON")

	return cmd
}

package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Aman-CERP/buscador/internal/document"
)

// Spreadsheet reads OOXML workbooks.
// Each sheet becomes one block labeled "Sheet: <name>", in workbook order.
// A row's non-empty cells are joined with " | "; empty rows are dropped.
type Spreadsheet struct{}

// Kind implements Extractor.
func (*Spreadsheet) Kind() Kind { return KindSpreadsheet }

// Extract implements Extractor.
func (*Spreadsheet) Extract(ctx context.Context, path string) ([]document.ContentBlock, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	blocks := make([]document.ContentBlock, 0, len(sheets))
	for _, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			if line := joinNonEmpty(row, CellSeparator); line != "" {
				lines = append(lines, line)
			}
		}

		blocks = append(blocks, document.ContentBlock{
			Label: document.SheetLabel(sheet),
			Text:  strings.Join(lines, "\n"),
		})
	}
	return blocks, nil
}

package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Aman-CERP/buscador/internal/document"
)

// Text reads plain UTF-8 files. Invalid byte sequences are dropped.
type Text struct{}

// Kind implements Extractor.
func (*Text) Kind() Kind { return KindText }

// Extract implements Extractor.
func (*Text) Extract(_ context.Context, path string) ([]document.ContentBlock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text file: %w", err)
	}
	text := strings.ToValidUTF8(string(data), "")
	return []document.ContentBlock{{Text: text}}, nil
}

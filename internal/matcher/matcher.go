// Package matcher finds literal query occurrences in normalized text without
// an index. Each occurrence carries a fixed-width context excerpt and the
// nearest preceding sheet or slide label.
//
// Offsets and widths count characters (runes), not bytes.
package matcher

import (
	"context"
	"strings"
	"unicode"

	"github.com/Aman-CERP/buscador/internal/document"
)

// DefaultWidth is the context width on each side of a match.
const DefaultWidth = 50

// UnknownLocation is reported when no label line precedes a match.
const UnknownLocation = "Ubicación desconocida"

// locationPrefixes are the label line prefixes recognized by LocationAt.
var locationPrefixes = []string{document.SheetLabelPrefix, document.SlideLabelPrefix}

// Result is the full text with every match found in it.
type Result struct {
	Content string                `json:"content"`
	Matches []document.QueryMatch `json:"matches"`
}

// Find scans text with DefaultWidth.
func Find(text, query string) Result {
	return FindWithWidth(text, query, DefaultWidth)
}

// FindWithWidth returns every case-insensitive, non-overlapping occurrence of
// query in text, left to right. After a match at p the scan resumes at
// p+len(query). A negative width means DefaultWidth.
//
// A blank query yields the full text and no matches.
func FindWithWidth(text, query string, width int) Result {
	res := Result{Content: text, Matches: []document.QueryMatch{}}
	if strings.TrimSpace(query) == "" {
		return res
	}
	if width < 0 {
		width = DefaultWidth
	}

	runes := []rune(text)
	hay := lowerRunes(runes)
	needle := lowerRunes([]rune(query))
	n, l := len(hay), len(needle)

	for p := 0; p+l <= n; {
		if !equalAt(hay, needle, p) {
			p++
			continue
		}
		start := max(0, p-width)
		end := min(n, p+l+width)
		res.Matches = append(res.Matches, document.QueryMatch{
			Position: p,
			Excerpt:  string(runes[start:end]),
			Location: locate(runes[:p]),
		})
		p += l
	}
	return res
}

// LocationAt returns the nearest label line at or before rune offset pos.
func LocationAt(text string, pos int) string {
	runes := []rune(text)
	pos = max(0, min(pos, len(runes)))
	return locate(runes[:pos])
}

// locate scans the lines of prefix from last to first for a label line.
func locate(prefix []rune) string {
	lines := strings.Split(string(prefix), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		for _, marker := range locationPrefixes {
			if strings.HasPrefix(lines[i], marker) {
				return lines[i]
			}
		}
	}
	return UnknownLocation
}

// lowerRunes lowercases rune by rune so offsets stay aligned with the input.
func lowerRunes(in []rune) []rune {
	out := make([]rune, len(in))
	for i, r := range in {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func equalAt(hay, needle []rune, p int) bool {
	for i, r := range needle {
		if hay[p+i] != r {
			return false
		}
	}
	return true
}

// Extractor is the subset of extract.Registry used by FindInFile.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]document.ContentBlock, error)
}

// FindInFile extracts path and scans its normalized text.
func FindInFile(ctx context.Context, ex Extractor, path, query string, width int) (Result, error) {
	blocks, err := ex.Extract(ctx, path)
	if err != nil {
		return Result{}, err
	}
	return FindWithWidth(document.JoinBlocks(blocks), query, width), nil
}

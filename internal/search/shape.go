package search

import (
	"strings"

	bsearch "github.com/blevesearch/bleve/v2/search"

	"github.com/Aman-CERP/buscador/internal/document"
)

// shapeHit converts a hit and its display text into a SearchResult.
func shapeHit(query string, hit *bsearch.DocumentMatch, text string) document.SearchResult {
	if storedString(hit, document.FieldType) == string(document.RecordDatabase) {
		return document.SearchResult{
			Source:  storedString(hit, document.FieldTable),
			Field:   storedString(hit, document.FieldColumn),
			Snippet: text,
		}
	}

	filename := storedString(hit, document.FieldFilename)
	field := FieldContentMatch
	if filenameMatches(filename, query) {
		field = FieldFilenameMatch
	}
	return document.SearchResult{
		Source:  SourceDocument,
		Field:   field,
		Snippet: "Archivo: " + filename + " - " + text,
	}
}

// filenameMatches reports whether the raw query is a case-insensitive
// substring of the filename.
func filenameMatches(filename, query string) bool {
	if filename == "" || query == "" {
		return false
	}
	return strings.Contains(strings.ToLower(filename), strings.ToLower(query))
}

// fallbackSnippet returns the first n characters of content, marked as
// truncated when longer.
func fallbackSnippet(content string, n int) string {
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n]) + FragmentSeparator
}

func storedString(hit *bsearch.DocumentMatch, field string) string {
	if v, ok := hit.Fields[field].(string); ok {
		return v
	}
	return ""
}

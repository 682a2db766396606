package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/buscador/internal/document"
	"github.com/Aman-CERP/buscador/internal/matcher"
	"github.com/Aman-CERP/buscador/internal/search"
)

func TestFormatSearchResults(t *testing.T) {
	empty := FormatSearchResults(search.Response{Query: "nada"})
	assert.Contains(t, empty, "No results for **nada**")

	md := FormatSearchResults(search.Response{
		Query: "acta",
		Total: 1,
		Results: []document.SearchResult{
			{Source: "documento", Field: "nombre_archivo", Snippet: "Archivo: acta.pdf - <mark>acta</mark>"},
		},
	})
	assert.Contains(t, md, `## 1 result(s) for "acta"`)
	assert.Contains(t, md, "### 1. documento / nombre_archivo")
	assert.Contains(t, md, "Archivo: acta.pdf")
}

func TestFormatMatches(t *testing.T) {
	res := matcher.FindWithWidth("Slide 1:\nhola\nmundo", "mundo", 5)

	md := FormatMatches("deck.pptx", "mundo", res)

	assert.Contains(t, md, "1 occurrence(s)")
	assert.Contains(t, md, "**Slide 1:**")
	assert.NotContains(t, FormatMatches("a.txt", "zzz", matcher.Find("abc", "zzz")), "occurrence(s)")
}

package index

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/Aman-CERP/buscador/internal/document"
)

// NewMapping returns the index mapping shared by every build.
// Unqualified query terms search the content field.
func NewMapping() *mapping.IndexMappingImpl {
	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	content.Store = true
	content.IncludeTermVectors = true

	rec := bleve.NewDocumentMapping()
	rec.AddFieldMappingsAt(document.FieldContent, content)
	for _, name := range []string{
		document.FieldID,
		document.FieldType,
		document.FieldFilename,
		document.FieldPath,
		document.FieldExtension,
		document.FieldTable,
		document.FieldColumn,
	} {
		rec.AddFieldMappingsAt(name, bleve.NewKeywordFieldMapping())
	}

	m := bleve.NewIndexMapping()
	m.DefaultMapping = rec
	m.DefaultAnalyzer = standard.Name
	m.DefaultField = document.FieldContent
	return m
}

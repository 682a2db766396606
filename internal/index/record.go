package index

import (
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/buscador/internal/document"
	berrors "github.com/Aman-CERP/buscador/internal/errors"
)

// Record ID prefixes.
const (
	DocumentIDPrefix = "doc_"
	DatabaseIDPrefix = "db_"
)

// fileRecord converts a file document into an index record with ID doc_<n>.
func fileRecord(doc *document.LogicalDocument, n string) (document.IndexRecord, error) {
	rec := document.IndexRecord{
		ID:   DocumentIDPrefix + n,
		Type: document.RecordDocument,
		Stored: map[string]string{
			document.FieldFilename:  doc.DisplayName,
			document.FieldPath:      doc.Path,
			document.FieldExtension: doc.Extension,
		},
		FullText: doc.FullText(),
	}
	if strings.TrimSpace(rec.FullText) == "" {
		return rec, invalid(&rec, "empty content")
	}
	return rec, validate(&rec, document.FieldFilename, document.FieldPath)
}

// databaseRecord converts a database value into an index record with ID db_<id>.
// Any non-empty value is kept, including whitespace-only values.
func databaseRecord(doc *document.LogicalDocument) (document.IndexRecord, error) {
	rec := document.IndexRecord{
		ID:   DatabaseIDPrefix + doc.ID,
		Type: document.RecordDatabase,
		Stored: map[string]string{
			document.FieldTable:  doc.Table,
			document.FieldColumn: doc.Column,
		},
		FullText: doc.FullText(),
	}
	return rec, validate(&rec, document.FieldTable, document.FieldColumn)
}

// validate rejects records the index would store incorrectly:
// empty content, empty required fields and invalid UTF-8.
func validate(rec *document.IndexRecord, required ...string) error {
	if rec.FullText == "" {
		return invalid(rec, "empty content")
	}
	if !utf8.ValidString(rec.FullText) {
		return invalid(rec, "content is not valid UTF-8")
	}
	for _, f := range required {
		if rec.Stored[f] == "" {
			return invalid(rec, "missing "+f)
		}
	}
	for k, v := range rec.Stored {
		if !utf8.ValidString(v) {
			return invalid(rec, k+" is not valid UTF-8")
		}
	}
	return nil
}

func invalid(rec *document.IndexRecord, reason string) error {
	return berrors.New(berrors.ErrCodeRecordInvalid, "invalid index record: "+reason, nil).
		WithDetail("id", rec.ID)
}

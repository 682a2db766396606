// Package document defines the normalized content model shared by the
// extractors, the aggregators, the index builder and the matcher.
//
// Every source shape (cell grids, slide shape trees, relational values, flat
// text) is reduced to an ordered list of labeled ContentBlocks. The full text
// of a LogicalDocument is derived from those blocks in order, and offsets into
// that text are what the matcher attributes back to block labels.
package document

import (
	"strconv"
	"strings"
)

// BlockSeparator joins rendered blocks into a document's full text.
const BlockSeparator = "\n\n"

// Location label prefixes emitted by structured extractors.
const (
	SheetLabelPrefix = "Sheet:"
	SlideLabelPrefix = "Slide "
)

// ContentBlock is a contiguous chunk of extracted text with its structural origin.
type ContentBlock struct {
	// Label identifies where the text came from, e.g. "Sheet: Data" or "Slide 3:".
	// Empty for sources without internal structure.
	Label string `json:"label,omitempty"`

	// Text is the block's extracted text.
	Text string `json:"text"`
}

// Render returns the block as it appears in the full text: the label on its own
// line followed by the text, or just the text for unlabeled blocks.
func (b ContentBlock) Render() string {
	if b.Label == "" {
		return b.Text
	}
	if b.Text == "" {
		return b.Label
	}
	return b.Label + "\n" + b.Text
}

// SheetLabel returns the block label for a spreadsheet sheet.
func SheetLabel(name string) string {
	return SheetLabelPrefix + " " + name
}

// SlideLabel returns the block label for a 1-indexed presentation slide.
func SlideLabel(n int) string {
	return SlideLabelPrefix + strconv.Itoa(n) + ":"
}

// JoinBlocks renders blocks in order and joins them with BlockSeparator.
func JoinBlocks(blocks []ContentBlock) string {
	switch len(blocks) {
	case 0:
		return ""
	case 1:
		return blocks[0].Render()
	}
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.Render()
	}
	return strings.Join(parts, BlockSeparator)
}

// SourceKind tells where a LogicalDocument was read from.
type SourceKind string

const (
	// SourceFile is a document read from the filesystem.
	SourceFile SourceKind = "file"
	// SourceDatabaseValue is a single value read from a database column.
	SourceDatabaseValue SourceKind = "database_value"
)

// LogicalDocument is one indexable unit of content, regardless of source.
type LogicalDocument struct {
	ID          string
	Kind        SourceKind
	DisplayName string

	// File-sourced documents.
	Path      string
	Extension string

	// Database-sourced documents.
	Table  string
	Column string

	Blocks []ContentBlock
}

// FullText returns the document's normalized text. Block order is preserved.
func (d *LogicalDocument) FullText() string {
	return JoinBlocks(d.Blocks)
}

// IsEmpty reports whether the document carries no text after trimming.
func (d *LogicalDocument) IsEmpty() bool {
	return strings.TrimSpace(d.FullText()) == ""
}

// RecordType is the type tag persisted with every index record.
type RecordType string

const (
	// RecordDocument tags records built from files.
	RecordDocument RecordType = "document"
	// RecordDatabase tags records built from database values.
	RecordDatabase RecordType = "database"
)

// Stored field names shared by the index builder and the query engine.
const (
	FieldID        = "id"
	FieldType      = "type"
	FieldFilename  = "filename"
	FieldPath      = "path"
	FieldExtension = "extension"
	FieldTable     = "table"
	FieldColumn    = "column"
	FieldContent   = "content"
)

// IndexRecord is the unit persisted in the search index.
type IndexRecord struct {
	ID       string
	Type     RecordType
	Stored   map[string]string
	FullText string
}

// Fields returns the record as the flat field map written to the index.
func (r *IndexRecord) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, len(r.Stored)+3)
	for k, v := range r.Stored {
		fields[k] = v
	}
	fields[FieldID] = r.ID
	fields[FieldType] = string(r.Type)
	fields[FieldContent] = r.FullText
	return fields
}

// QueryMatch is one literal occurrence located by the context matcher.
type QueryMatch struct {
	Position int    `json:"position"`
	Excerpt  string `json:"excerpt"`
	Location string `json:"location"`
}

// SearchResult is the externally visible unit returned per search hit.
// JSON names follow the search frontend's contract.
type SearchResult struct {
	Source  string `json:"tabla"`
	Field   string `json:"columna"`
	Snippet string `json:"resultado"`
}

// Package scanner aggregates a document root into LogicalDocuments.
// It walks the tree, dispatches each file to its extractor, and records an
// explicit outcome for every supported file: indexed or skipped with a reason.
package scanner

import (
	"context"

	"github.com/Aman-CERP/buscador/internal/document"
)

// Extractor is the subset of extract.Registry the scanner needs.
type Extractor interface {
	Supports(path string) bool
	Extract(ctx context.Context, path string) ([]document.ContentBlock, error)
}

// Options configures a scan.
type Options struct {
	// Root is the document root. A missing root yields an empty corpus.
	Root string

	// Workers bounds concurrent extractions (0 = NumCPU).
	Workers int

	// FollowSymlinks includes symlinked files (default: false).
	FollowSymlinks bool
}

// SkipReason classifies why a supported file produced no document.
type SkipReason string

const (
	// SkipExtractionFailed means the extractor returned an error or panicked.
	SkipExtractionFailed SkipReason = "extraction_failed"
	// SkipEmpty means the extracted text was blank after trimming.
	SkipEmpty SkipReason = "empty_content"
)

// Skip records one file that was not turned into a document.
type Skip struct {
	Path   string     `json:"path"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// Corpus is the outcome of one scan.
type Corpus struct {
	Root      string                     `json:"root"`
	Documents []document.LogicalDocument `json:"-"`
	Skipped   []Skip                     `json:"skipped"`
	// Ignored counts files with unsupported extensions.
	Ignored int `json:"ignored"`
}

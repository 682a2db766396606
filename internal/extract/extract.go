// Package extract turns files into ordered, labeled content blocks.
//
// The variant set is closed: Text, PDF, WordDoc, Spreadsheet and Presentation.
// A Registry dispatches by lower-cased extension. Binary formats are parsed by
// libraries; this package only normalizes their output into blocks.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/Aman-CERP/buscador/internal/document"
	berrors "github.com/Aman-CERP/buscador/internal/errors"
)

// Kind names an extractor variant.
type Kind string

const (
	KindText         Kind = "text"
	KindPDF          Kind = "pdf"
	KindWordDoc      Kind = "worddoc"
	KindSpreadsheet  Kind = "spreadsheet"
	KindPresentation Kind = "presentation"
)

// Cell and table-row separator used by structured extractors.
const CellSeparator = " | "

// Extractor reads one file format.
type Extractor interface {
	// Extract returns the file's content blocks in document order.
	// Malformed input yields an error, never a panic.
	Extract(ctx context.Context, path string) ([]document.ContentBlock, error)

	// Kind identifies the variant.
	Kind() Kind
}

// Registry maps file extensions to extractors.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry returns a registry with the built-in variants:
// .txt, .pdf, .doc/.docx, .xls/.xlsx, .ppt/.pptx.
//
// Legacy binary .doc/.xls/.ppt route to the OOXML readers and fail as
// malformed input.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.Register(&Text{}, ".txt")
	r.Register(&PDF{}, ".pdf")
	r.Register(&WordDoc{}, ".docx", ".doc")
	r.Register(&Spreadsheet{}, ".xlsx", ".xls")
	r.Register(&Presentation{}, ".pptx", ".ppt")
	return r
}

// Register binds ext (with leading dot, any case) to e, replacing any binding.
func (r *Registry) Register(e Extractor, exts ...string) {
	for _, ext := range exts {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// For returns the extractor for path's extension.
func (r *Registry) For(path string) (Extractor, bool) {
	e, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return e, ok
}

// Supports reports whether path has a registered extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.For(path)
	return ok
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract runs the matching extractor on path.
// Errors and panics from the extractor are returned as ERR_206_EXTRACTION_FAILED.
func (r *Registry) Extract(ctx context.Context, path string) (blocks []document.ContentBlock, err error) {
	e, ok := r.For(path)
	if !ok {
		return nil, berrors.New(berrors.ErrCodeInvalidInput, "unsupported file type", nil).
			WithDetail("path", path).
			WithDetail("extension", strings.ToLower(filepath.Ext(path)))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			blocks = nil
			err = berrors.New(berrors.ErrCodeExtractionFailed,
				fmt.Sprintf("extractor panic: %v", p), nil).
				WithDetail("path", path).
				WithDetail("extractor", string(e.Kind())).
				WithDetail("stack", firstFrames(debug.Stack()))
		}
	}()

	blocks, err = e.Extract(ctx, path)
	if err != nil {
		if _, ok := berrors.As(err); ok {
			return nil, err
		}
		return nil, berrors.New(berrors.ErrCodeExtractionFailed, err.Error(), err).
			WithDetail("path", path).
			WithDetail("extractor", string(e.Kind()))
	}
	return blocks, nil
}

// firstFrames trims a stack trace for logging.
func firstFrames(stack []byte) string {
	lines := strings.SplitN(string(stack), "\n", 12)
	if len(lines) > 11 {
		lines = lines[:11]
	}
	return strings.Join(lines, "\n")
}

// joinNonEmpty joins the trimmed non-empty parts with sep.
func joinNonEmpty(parts []string, sep string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

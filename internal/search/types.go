// Package search answers queries against the committed index and reshapes
// hits into the SearchResult contract used by every surface.
package search

import "github.com/Aman-CERP/buscador/internal/document"

// Source and field tags for document hits.
const (
	SourceDocument     = "documento"
	FieldFilenameMatch = "nombre_archivo"
	FieldContentMatch  = "contenido"
)

// MsgIndexNotFound is returned when no index has been committed.
const MsgIndexNotFound = "Index not found. Please run indexing first."

// Response is always well formed: on failure Error is set, Total is 0 and
// Results is empty.
type Response struct {
	Query   string                  `json:"query"`
	Total   int                     `json:"total"`
	Results []document.SearchResult `json:"results"`
	Error   string                  `json:"error,omitempty"`

	err error
}

// Err returns the structured error behind a failed response, or nil.
func (r *Response) Err() error {
	return r.err
}

func failed(query string, err error, msg string) Response {
	return Response{
		Query:   query,
		Results: []document.SearchResult{},
		Error:   msg,
		err:     err,
	}
}

// Options configures an Engine.
type Options struct {
	// IndexDir is the committed index location.
	IndexDir string

	// MaxResults caps the hits per query.
	MaxResults int

	// MaxFragments caps highlighted fragments per hit.
	MaxFragments int

	// FragmentSize is the highlighter fragment width in characters.
	FragmentSize int

	// FallbackChars is the snippet length used when nothing highlights.
	FallbackChars int
}

// Defaults for zero-valued Options fields.
const (
	DefaultMaxResults    = 100
	DefaultMaxFragments  = 3
	DefaultFragmentSize  = 200
	DefaultFallbackChars = 200

	// FragmentSeparator joins highlighted fragments.
	FragmentSeparator = "..."
)

func (o Options) withDefaults() Options {
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	if o.MaxFragments <= 0 {
		o.MaxFragments = DefaultMaxFragments
	}
	if o.FragmentSize <= 0 {
		o.FragmentSize = DefaultFragmentSize
	}
	if o.FallbackChars <= 0 {
		o.FallbackChars = DefaultFallbackChars
	}
	return o
}

package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	bsearch "github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/highlight"
	"github.com/blevesearch/bleve/v2/search/highlight/format/html"
	simplefrag "github.com/blevesearch/bleve/v2/search/highlight/fragmenter/simple"
	simplehl "github.com/blevesearch/bleve/v2/search/highlight/highlighter/simple"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/buscador/internal/document"
	berrors "github.com/Aman-CERP/buscador/internal/errors"
	"github.com/Aman-CERP/buscador/internal/index"
)

// Highlight markers around matched terms.
const (
	MarkStart = "<mark>"
	MarkEnd   = "</mark>"
)

// Engine answers queries against the committed index. The index is opened
// read-only per query, so an Engine never blocks a rebuild and always sees
// the last committed build. Safe for concurrent use.
type Engine struct {
	opts        Options
	highlighter highlight.Highlighter
	cache       *lru.Cache[string, Response]
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithCache enables an LRU result cache holding up to size responses.
// Entries are keyed by build ID, so a rebuild never serves stale results.
func WithCache(size int) EngineOption {
	return func(e *Engine) {
		if size <= 0 {
			return
		}
		c, err := lru.New[string, Response](size)
		if err != nil {
			slog.Warn("search_cache_disabled", slog.String("error", err.Error()))
			return
		}
		e.cache = c
	}
}

// NewEngine returns an Engine over the index at opts.IndexDir.
func NewEngine(opts Options, options ...EngineOption) *Engine {
	opts = opts.withDefaults()
	e := &Engine{
		opts: opts,
		highlighter: simplehl.NewHighlighter(
			simplefrag.NewFragmenter(opts.FragmentSize),
			html.NewFragmentFormatter(MarkStart, MarkEnd),
			FragmentSeparator,
		),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// IndexDir returns the index location this engine reads.
func (e *Engine) IndexDir() string {
	return e.opts.IndexDir
}

// Invalidate drops every cached response.
func (e *Engine) Invalidate() {
	if e.cache != nil {
		e.cache.Purge()
	}
}

// Search runs query and returns the reshaped hits.
func (e *Engine) Search(ctx context.Context, query string) Response {
	start := time.Now()

	if strings.TrimSpace(query) == "" {
		err := berrors.New(berrors.ErrCodeQueryEmpty, "query is empty", nil)
		return failed(query, err, "Query is empty")
	}

	if _, err := os.Stat(e.opts.IndexDir); errors.Is(err, os.ErrNotExist) {
		err := berrors.New(berrors.ErrCodeIndexNotFound, MsgIndexNotFound, nil).
			WithDetail("path", e.opts.IndexDir).
			WithSuggestion("Run 'buscador index' to build the index")
		return failed(query, err, MsgIndexNotFound)
	}

	key := ""
	if m, err := index.ReadManifest(e.opts.IndexDir); err == nil && e.cache != nil {
		key = m.BuildID + "\x00" + query
		if cached, ok := e.cache.Get(key); ok {
			slog.Debug("search_cache_hit", slog.String("query", query))
			cached.Results = append([]document.SearchResult(nil), cached.Results...)
			return cached
		}
	}

	resp := e.search(ctx, query)
	if resp.err != nil {
		slog.Warn("search_failed",
			append([]any{slog.String("query", query)}, berrors.LogAttrs(resp.err)...)...)
		return resp
	}

	if key != "" {
		e.cache.Add(key, resp)
		resp.Results = append([]document.SearchResult(nil), resp.Results...)
	}
	slog.Debug("search_complete",
		slog.String("query", query),
		slog.Int("total", resp.Total),
		slog.Duration("duration", time.Since(start)))
	return resp
}

func (e *Engine) search(ctx context.Context, query string) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			err := berrors.New(berrors.ErrCodeSearchFailed, fmt.Sprintf("search panicked: %v", r), nil).
				WithDetail("stack", string(debug.Stack()))
			resp = failed(query, err, "Search failed: internal error")
		}
	}()

	idx, err := e.open()
	if errors.Is(err, os.ErrNotExist) {
		return failed(query, berrors.New(berrors.ErrCodeIndexNotFound, MsgIndexNotFound, err), MsgIndexNotFound)
	}
	if err != nil {
		return failed(query,
			berrors.New(berrors.ErrCodeSearchFailed, "failed to open index", err),
			"Search failed: "+err.Error())
	}
	defer func() {
		if cerr := idx.Close(); cerr != nil {
			slog.Warn("search_index_close_failed", slog.String("error", cerr.Error()))
		}
	}()

	q := bleve.NewQueryStringQuery(query)
	if _, err := q.Parse(); err != nil {
		return failed(query,
			berrors.New(berrors.ErrCodeInvalidQuery, "invalid query syntax", err),
			"Invalid query: "+err.Error())
	}

	req := bleve.NewSearchRequestOptions(q, e.opts.MaxResults, 0, false)
	req.Fields = []string{"*"}
	req.IncludeLocations = true

	result, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return failed(query,
			berrors.New(berrors.ErrCodeSearchFailed, "search execution failed", err),
			"Search failed: "+err.Error())
	}

	results := make([]document.SearchResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		results = append(results, shapeHit(query, hit, e.snippet(idx, hit)))
	}
	return Response{Query: query, Total: len(results), Results: results}
}

// open opens the committed index read-only. A rebuild may swap the
// directory out from under the open, so a failure is retried once.
func (e *Engine) open() (bleve.Index, error) {
	opts := map[string]interface{}{"read_only": true}
	idx, err := bleve.OpenUsing(e.opts.IndexDir, opts)
	if err == nil {
		return idx, nil
	}
	if _, serr := os.Stat(e.opts.IndexDir); serr != nil {
		return nil, serr
	}
	return bleve.OpenUsing(e.opts.IndexDir, opts)
}

// snippet highlights the hit's content, falling back to its leading text.
func (e *Engine) snippet(idx bleve.Index, hit *bsearch.DocumentMatch) string {
	content := storedString(hit, document.FieldContent)

	doc, err := idx.Document(hit.ID)
	if err == nil && doc != nil {
		frags := e.highlighter.BestFragmentsInField(hit, doc, document.FieldContent, e.opts.MaxFragments)
		if joined := strings.Join(frags, FragmentSeparator); strings.Contains(joined, MarkStart) {
			return joined
		}
	}
	return fallbackSnippet(content, e.opts.FallbackChars)
}

// Status returns the manifest of the committed index.
func (e *Engine) Status() (*index.Manifest, error) {
	m, err := index.ReadManifest(e.opts.IndexDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, berrors.New(berrors.ErrCodeIndexNotFound, MsgIndexNotFound, err).
			WithDetail("path", e.opts.IndexDir)
	}
	if err != nil {
		return nil, berrors.InternalError("failed to read build manifest", err)
	}
	return m, nil
}

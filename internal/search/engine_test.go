package search

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/buscador/internal/config"
	"github.com/Aman-CERP/buscador/internal/database"
	"github.com/Aman-CERP/buscador/internal/document"
	berrors "github.com/Aman-CERP/buscador/internal/errors"
	"github.com/Aman-CERP/buscador/internal/index"
	"github.com/Aman-CERP/buscador/internal/scanner"
)

type staticCorpus []document.LogicalDocument

func (c staticCorpus) Scan(context.Context, scanner.Options) (*scanner.Corpus, error) {
	return &scanner.Corpus{Documents: c}, nil
}

func file(name, text string) document.LogicalDocument {
	return document.LogicalDocument{
		Kind:        document.SourceFile,
		DisplayName: name,
		Path:        "/docs/" + name,
		Extension:   filepath.Ext(name),
		Blocks:      []document.ContentBlock{{Text: text}},
	}
}

func buildIndex(t *testing.T, dir string, files staticCorpus, openDB index.DatabaseOpener) *index.Result {
	t.Helper()
	b := index.NewBuilder(index.Options{IndexDir: dir, LockTimeout: 5 * time.Second}, files, openDB)
	res, err := b.Build(context.Background())
	require.NoError(t, err)
	return res
}

func sqliteValues(t *testing.T, values ...string) index.DatabaseOpener {
	t.Helper()
	path := filepath.Join(t.TempDir(), "values.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE clientes (notes TEXT, foto BLOB)`)
	require.NoError(t, err)
	for _, v := range values {
		_, err = db.Exec(`INSERT INTO clientes (notes) VALUES (?)`, v)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	cfg := config.DatabaseConfig{Enabled: true, Driver: config.DriverSQLite, Name: path}
	return func(ctx context.Context) (database.Introspector, error) {
		return database.Open(ctx, cfg)
	}
}

func TestEngine_Search_IndexNotFound(t *testing.T) {
	e := NewEngine(Options{IndexDir: filepath.Join(t.TempDir(), "missing")})

	resp := e.Search(context.Background(), "anything")

	assert.Equal(t, MsgIndexNotFound, resp.Error)
	assert.Equal(t, "anything", resp.Query)
	assert.Zero(t, resp.Total)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
	assert.Equal(t, berrors.ErrCodeIndexNotFound, berrors.GetCode(resp.Err()))
	assert.ErrorIs(t, resp.Err(), berrors.ErrIndexNotFound)
}

func TestEngine_Search_UnreadableIndex(t *testing.T) {
	// Given: an index directory that holds no bleve index
	e := NewEngine(Options{IndexDir: t.TempDir()})

	// When: searching
	resp := e.Search(context.Background(), "anything")

	// Then: the open failure is reported as a search failure, not a panic
	assert.Equal(t, berrors.ErrCodeSearchFailed, berrors.GetCode(resp.Err()))
	assert.True(t, strings.HasPrefix(resp.Error, "Search failed: "))
	assert.Empty(t, resp.Results)
}

func TestEngine_Search_EmptyQuery(t *testing.T) {
	e := NewEngine(Options{IndexDir: t.TempDir()})

	resp := e.Search(context.Background(), "   ")

	assert.NotEmpty(t, resp.Error)
	assert.Empty(t, resp.Results)
	assert.Equal(t, berrors.ErrCodeQueryEmpty, berrors.GetCode(resp.Err()))
}

func TestEngine_Search_DatabaseHit(t *testing.T) {
	// Given: an index holding one database value
	dir := filepath.Join(t.TempDir(), "index")
	buildIndex(t, dir, nil, sqliteValues(t, "hello world"))
	e := NewEngine(Options{IndexDir: dir})

	// When
	resp := e.Search(context.Background(), "hello")

	// Then: the hit is attributed to its table and column
	require.Empty(t, resp.Error)
	require.Equal(t, 1, resp.Total)
	r := resp.Results[0]
	assert.Equal(t, "clientes", r.Source)
	assert.Equal(t, "notes", r.Field)
	assert.Contains(t, r.Snippet, MarkStart+"hello"+MarkEnd)
}

func TestEngine_Search_RecoversPanics(t *testing.T) {
	// Given: an engine whose highlighter is broken
	dir := filepath.Join(t.TempDir(), "index")
	buildIndex(t, dir, nil, sqliteValues(t, "hello world"))
	e := NewEngine(Options{IndexDir: dir}, WithCache(4))
	e.highlighter = nil

	// When: a query reaches highlighting
	resp := e.Search(context.Background(), "hello")

	// Then: the panic comes back as a well-formed failure and is not cached
	assert.Equal(t, berrors.ErrCodeSearchFailed, berrors.GetCode(resp.Err()))
	assert.Equal(t, "Search failed: internal error", resp.Error)
	assert.Zero(t, resp.Total)
	assert.NotNil(t, resp.Results)
	assert.Zero(t, e.cache.Len())
}

func TestEngine_Search_TermCombination(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	buildIndex(t, dir, nil, sqliteValues(t, "hello world"))
	e := NewEngine(Options{IndexDir: dir})

	tests := []struct {
		query string
		total int
	}{
		{"hello nothingxyz", 1},
		{"+hello +nothingxyz", 0},
		{"+hello +world", 1},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			resp := e.Search(context.Background(), tc.query)
			require.Empty(t, resp.Error)
			assert.Equal(t, tc.total, resp.Total)
		})
	}
}

func TestEngine_Search_DocumentFieldTag(t *testing.T) {
	// Given: a document whose name and content both contain a term
	dir := filepath.Join(t.TempDir(), "index")
	buildIndex(t, dir, staticCorpus{file("Informe.txt", "informe anual de ventas")}, nil)
	e := NewEngine(Options{IndexDir: dir})

	tests := []struct {
		query string
		field string
	}{
		{"informe", FieldFilenameMatch},
		{"INFORME", FieldFilenameMatch},
		{"ventas", FieldContentMatch},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			// When
			resp := e.Search(context.Background(), tc.query)

			// Then
			require.Empty(t, resp.Error)
			require.Equal(t, 1, resp.Total)
			r := resp.Results[0]
			assert.Equal(t, SourceDocument, r.Source)
			assert.Equal(t, tc.field, r.Field)
			assert.True(t, strings.HasPrefix(r.Snippet, "Archivo: Informe.txt - "), r.Snippet)
			assert.Contains(t, r.Snippet, MarkStart)
		})
	}
}

func TestEngine_Search_MultipleFragments(t *testing.T) {
	long := "ventas " + strings.Repeat("relleno ", 60) + "ventas " + strings.Repeat("otro ", 60) + "ventas"
	dir := filepath.Join(t.TempDir(), "index")
	buildIndex(t, dir, staticCorpus{file("largo.txt", long)}, nil)
	e := NewEngine(Options{IndexDir: dir, FragmentSize: 50})

	resp := e.Search(context.Background(), "ventas")

	require.Equal(t, 1, resp.Total)
	snippet := resp.Results[0].Snippet
	assert.LessOrEqual(t, strings.Count(snippet, MarkStart), DefaultMaxFragments)
	assert.Contains(t, snippet, FragmentSeparator)
}

func TestEngine_Search_FallbackSnippet(t *testing.T) {
	// Given: a hit matched on a keyword field, so content has nothing to highlight
	content := strings.Repeat("á", 250)
	dir := filepath.Join(t.TempDir(), "index")
	buildIndex(t, dir, staticCorpus{file("plano.txt", content)}, nil)
	e := NewEngine(Options{IndexDir: dir})

	// When
	resp := e.Search(context.Background(), "filename:plano.txt")

	// Then: the snippet is the leading 200 characters marked as truncated
	require.Empty(t, resp.Error)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "Archivo: plano.txt - "+strings.Repeat("á", 200)+"...", resp.Results[0].Snippet)
}

func TestEngine_Search_InvalidQuery(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	buildIndex(t, dir, staticCorpus{file("a.txt", "alpha")}, nil)
	e := NewEngine(Options{IndexDir: dir})

	resp := e.Search(context.Background(), "content::alpha")

	assert.NotEmpty(t, resp.Error)
	assert.Zero(t, resp.Total)
	assert.Empty(t, resp.Results)
	assert.Equal(t, berrors.ErrCodeInvalidQuery, berrors.GetCode(resp.Err()))
}

func TestEngine_Search_MaxResults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	buildIndex(t, dir, staticCorpus{
		file("a.txt", "común uno"),
		file("b.txt", "común dos"),
		file("c.txt", "común tres"),
	}, nil)
	e := NewEngine(Options{IndexDir: dir, MaxResults: 2})

	resp := e.Search(context.Background(), "común")

	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Results, 2)
}

func TestEngine_Search_CacheInvalidatedByRebuild(t *testing.T) {
	// Given: a cached response for the first build
	dir := filepath.Join(t.TempDir(), "index")
	buildIndex(t, dir, staticCorpus{file("a.txt", "alpha")}, nil)
	e := NewEngine(Options{IndexDir: dir}, WithCache(8))

	first := e.Search(context.Background(), "alpha")
	require.Equal(t, 1, first.Total)
	again := e.Search(context.Background(), "alpha")
	assert.Equal(t, first, again)

	// When: the index is rebuilt with more matches
	buildIndex(t, dir, staticCorpus{file("a.txt", "alpha"), file("b.txt", "alpha beta")}, nil)

	// Then: the new build is served, not the cached response
	after := e.Search(context.Background(), "alpha")
	assert.Equal(t, 2, after.Total)
}

func TestEngine_Status(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	e := NewEngine(Options{IndexDir: dir})

	_, err := e.Status()
	assert.Equal(t, berrors.ErrCodeIndexNotFound, berrors.GetCode(err))

	res := buildIndex(t, dir, staticCorpus{file("a.txt", "alpha")}, nil)

	m, err := e.Status()
	require.NoError(t, err)
	assert.Equal(t, res.BuildID, m.BuildID)
	assert.Equal(t, 1, m.DocumentCount)
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/buscador/internal/document"
	berrors "github.com/Aman-CERP/buscador/internal/errors"
	"github.com/Aman-CERP/buscador/internal/index"
	"github.com/Aman-CERP/buscador/internal/search"
	"github.com/Aman-CERP/buscador/internal/telemetry"
)

type stubEngine struct {
	resp     search.Response
	manifest *index.Manifest
}

func (e *stubEngine) Search(_ context.Context, q string) search.Response {
	r := e.resp
	r.Query = q
	return r
}

func (e *stubEngine) Status() (*index.Manifest, error) {
	if e.manifest == nil {
		return nil, berrors.New(berrors.ErrCodeIndexNotFound, search.MsgIndexNotFound, nil)
	}
	return e.manifest, nil
}

type stubBuilder struct {
	res   *index.Result
	err   error
	calls int
}

func (b *stubBuilder) Build(context.Context) (*index.Result, error) {
	b.calls++
	return b.res, b.err
}

type stubExtractor struct {
	blocks []document.ContentBlock
}

func (x stubExtractor) Extract(context.Context, string) ([]document.ContentBlock, error) {
	return x.blocks, nil
}

func do(t *testing.T, s *Server, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestInfo(t *testing.T) {
	s := New(&stubEngine{}, nil, stubExtractor{}, t.TempDir())

	rec, body := do(t, s, http.MethodGet, "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "buscador", body["name"])
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestSearch_MissingQueryIs400(t *testing.T) {
	s := New(&stubEngine{}, nil, stubExtractor{}, t.TempDir())

	rec, body := do(t, s, http.MethodGet, "/search")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Query parameter 'q' is required", body["error"])
}

func TestSearch_ReturnsContract(t *testing.T) {
	// Given: an engine with one database hit
	eng := &stubEngine{resp: search.Response{
		Total:   1,
		Results: []document.SearchResult{{Source: "clientes", Field: "notes", Snippet: "<mark>hola</mark>"}},
	}}
	s := New(eng, nil, stubExtractor{}, t.TempDir())

	// When
	rec, body := do(t, s, http.MethodGet, "/search?q=hola")

	// Then: the body uses the tabla/columna/resultado names
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hola", body["query"])
	assert.EqualValues(t, 1, body["total"])
	results := body["results"].([]any)
	require.Len(t, results, 1)
	hit := results[0].(map[string]any)
	assert.Equal(t, "clientes", hit["tabla"])
	assert.Equal(t, "notes", hit["columna"])
	assert.Equal(t, "<mark>hola</mark>", hit["resultado"])
}

func TestSearch_IndexNotFoundIs404(t *testing.T) {
	// Given: a real engine over a directory that was never built
	engine := search.NewEngine(search.Options{IndexDir: filepath.Join(t.TempDir(), "index")})
	s := New(engine, nil, stubExtractor{}, t.TempDir())

	// When
	rec, body := do(t, s, http.MethodGet, "/search?q=x")

	// Then: the response is still well formed
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, search.MsgIndexNotFound, body["error"])
	assert.EqualValues(t, 0, body["total"])
	assert.Equal(t, []any{}, body["results"])
}

func TestIndex(t *testing.T) {
	b := &stubBuilder{res: &index.Result{Success: true, IndexedCount: 4, BuildID: "b1"}}
	s := New(&stubEngine{}, b, stubExtractor{}, t.TempDir())

	rec, body := do(t, s, http.MethodPost, "/index")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 4, body["indexed_count"])
}

func TestIndex_Errors(t *testing.T) {
	locked := &stubBuilder{
		res: &index.Result{BuildID: "b2", Error: "locked"},
		err: berrors.New(berrors.ErrCodeIndexLocked, "locked", nil),
	}
	rec, body := do(t, New(&stubEngine{}, locked, stubExtractor{}, t.TempDir()), http.MethodPost, "/index")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, _ = do(t, New(&stubEngine{}, nil, stubExtractor{}, t.TempDir()), http.MethodPost, "/index")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIndex_GetNotAllowed(t *testing.T) {
	s := New(&stubEngine{}, &stubBuilder{}, stubExtractor{}, t.TempDir())
	req := httptest.NewRequest(http.MethodGet, "/index", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestFind(t *testing.T) {
	// Given: a document root with one file
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "deck.pptx"), []byte("stub"), 0o644))
	ex := stubExtractor{blocks: []document.ContentBlock{
		{Label: "Slide 1:", Text: "Bienvenida"},
		{Label: "Slide 2:", Text: "Presupuesto anual"},
	}}
	s := New(&stubEngine{}, nil, ex, root)

	// When
	rec, body := do(t, s, http.MethodGet, "/find?path=deck.pptx&q=presupuesto&width=5")

	// Then: the match is attributed to the second slide
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["total"])
	m := body["matches"].([]any)[0].(map[string]any)
	assert.Equal(t, "Slide 2:", m["location"])
}

func TestFind_BadRequests(t *testing.T) {
	root := t.TempDir()
	s := New(&stubEngine{}, nil, stubExtractor{}, root)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"missing q", "/find?path=a.txt", http.StatusBadRequest},
		{"bad width", "/find?path=a.txt&q=x&width=abc", http.StatusBadRequest},
		{"missing path", "/find?q=x", http.StatusBadRequest},
		{"missing file", "/find?path=none.txt&q=x", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := do(t, s, http.MethodGet, tc.target)
			assert.Equal(t, tc.status, rec.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestStatus(t *testing.T) {
	eng := &stubEngine{}
	s := New(eng, nil, stubExtractor{}, t.TempDir())

	_, body := do(t, s, http.MethodGet, "/status")
	assert.Equal(t, false, body["ready"])

	eng.manifest = &index.Manifest{BuildID: "b9", IndexedCount: 2}
	_, body = do(t, s, http.MethodGet, "/status")
	assert.Equal(t, true, body["ready"])
	manifest := body["manifest"].(map[string]any)
	assert.Equal(t, "b9", manifest["build_id"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, statusFor(nil))
	assert.Equal(t, http.StatusBadRequest, statusFor(berrors.New(berrors.ErrCodeInvalidQuery, "x", nil)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(berrors.New(berrors.ErrCodeBuildFailed, "x", nil)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))

	notFound := fmt.Errorf("status: %w", berrors.New(berrors.ErrCodeIndexNotFound, "x", nil))
	assert.Equal(t, http.StatusNotFound, statusFor(notFound))
	assert.Equal(t, http.StatusNotFound, statusFor(berrors.New(berrors.ErrCodeFileNotFound, "x", nil)))
	assert.Equal(t, http.StatusConflict, statusFor(berrors.New(berrors.ErrCodeIndexLocked, "x", nil)))
}

func TestMetrics(t *testing.T) {
	// Given: a server with metrics enabled
	eng := &stubEngine{resp: search.Response{Total: 0, Results: []document.SearchResult{}}}
	s := New(eng, nil, stubExtractor{}, t.TempDir(), WithMetrics(telemetry.NewQueryMetrics(telemetry.Config{})))

	// When: two searches run
	do(t, s, http.MethodGet, "/search?q=inexistente")
	do(t, s, http.MethodGet, "/search?q=table:clientes")

	// Then: both are reflected in the snapshot
	rec, body := do(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["total_queries"])
	assert.EqualValues(t, 2, body["zero_result_count"])
}

func TestMetrics_DisabledIs404(t *testing.T) {
	s := New(&stubEngine{}, nil, stubExtractor{}, t.TempDir())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	_ "modernc.org/sqlite"

	"github.com/Aman-CERP/buscador/internal/config"
	berrors "github.com/Aman-CERP/buscador/internal/errors"
	"github.com/Aman-CERP/buscador/internal/extract"
	"github.com/Aman-CERP/buscador/internal/index"
	"github.com/Aman-CERP/buscador/internal/search"
	"github.com/Aman-CERP/buscador/internal/server"
	"github.com/Aman-CERP/buscador/internal/watcher"
)

// project is a document root plus a SQLite database wired through config.
type project struct {
	cfg  *config.Config
	docs string
}

func newProject(t *testing.T) *project {
	t.Helper()
	dir := t.TempDir()

	cfg := config.NewConfig()
	cfg.Paths.DocumentsDir = filepath.Join(dir, "documents")
	cfg.Paths.IndexDir = filepath.Join(dir, "index")
	cfg.Index.LockTimeout = 5 * time.Second
	cfg.Database = config.DatabaseConfig{
		Enabled: true,
		Driver:  config.DriverSQLite,
		Name:    filepath.Join(dir, "app.db"),
	}
	require.NoError(t, os.MkdirAll(cfg.Paths.DocumentsDir, 0o755))

	db, err := sql.Open("sqlite", cfg.Database.Name)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`
		CREATE TABLE estudiantes (id INTEGER PRIMARY KEY, nombre VARCHAR(60), tesis TEXT);
		INSERT INTO estudiantes (nombre, tesis) VALUES
			('Ana Pérez', 'Presupuesto participativo en municipios'),
			('Luis Gómez', NULL);`)
	require.NoError(t, err)

	return &project{cfg: cfg, docs: cfg.Paths.DocumentsDir}
}

func (p *project) writeText(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(p.docs, name), []byte(content), 0o644))
}

func (p *project) writeWorkbook(t *testing.T, name string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Ventas"))
	require.NoError(t, f.SetSheetRow("Ventas", "A1", &[]any{"Concepto", "Valor"}))
	require.NoError(t, f.SetSheetRow("Ventas", "A2", &[]any{"Presupuesto anual", 1200}))
	require.NoError(t, f.SaveAs(filepath.Join(p.docs, name)))
}

func (p *project) engine() *search.Engine {
	return search.NewEngine(search.Options{IndexDir: p.cfg.Paths.IndexDir}, search.WithCache(16))
}

func getJSON(t *testing.T, rawURL string, v any) int {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestIntegration_FilesAndDatabase_SearchOverHTTP(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: a workbook, a text file and a database row mentioning the term
	p := newProject(t)
	p.writeWorkbook(t, "informe.xlsx")
	p.writeText(t, "presupuesto.txt", "Borrador del presupuesto sin cifras")
	engine := p.engine()
	builder := index.NewBuilderFromConfig(p.cfg)
	builder.OnCommit(func(*index.Manifest) { engine.Invalidate() })
	ts := httptest.NewServer(server.New(engine, builder, extract.NewRegistry(), p.docs).Handler())
	defer ts.Close()

	// When: the index is rebuilt over HTTP
	resp, err := http.Post(ts.URL+"/index", "application/json", nil)
	require.NoError(t, err)
	var res index.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	resp.Body.Close()

	// Then: two files and the non-empty database values are indexed
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.DocumentCount)
	assert.Equal(t, 5, res.DatabaseCount, "two ids, two names and one thesis; NULL is skipped")

	// When: searching for the shared term
	var out search.Response
	status := getJSON(t, ts.URL+"/search?q="+url.QueryEscape("presupuesto"), &out)

	// Then: every source shape is represented
	require.Equal(t, http.StatusOK, status)
	sources := map[string]string{}
	for _, r := range out.Results {
		sources[r.Source+"/"+r.Field] = r.Snippet
	}
	assert.Contains(t, sources, "documento/contenido")
	assert.Contains(t, sources, "documento/nombre_archivo")
	assert.Contains(t, sources, "estudiantes/tesis")
	assert.Contains(t, sources["estudiantes/tesis"], "<mark>Presupuesto</mark>")

	// And: the workbook hit can be located inside its sheet
	var found struct {
		Total   int `json:"total"`
		Matches []struct {
			Location string `json:"location"`
		} `json:"matches"`
	}
	status = getJSON(t, ts.URL+"/find?path=informe.xlsx&q=presupuesto", &found)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, found.Total)
	assert.Equal(t, "Sheet: Ventas", found.Matches[0].Location)
}

func TestIntegration_FieldQueries(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	p := newProject(t)
	p.writeText(t, "acta.txt", "Ana Pérez sustentó su tesis")
	_, err := index.NewBuilderFromConfig(p.cfg).Build(context.Background())
	require.NoError(t, err)
	engine := p.engine()

	tests := []struct {
		query   string
		sources []string
	}{
		{"ana", []string{"documento", "estudiantes"}},
		{"+ana +table:estudiantes", []string{"estudiantes"}},
		{"ana -table:estudiantes", []string{"documento"}},
		{`"tesis" +filename:acta.txt`, []string{"documento"}},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			resp := engine.Search(context.Background(), tc.query)
			require.Empty(t, resp.Error)

			var got []string
			seen := map[string]bool{}
			for _, r := range resp.Results {
				if !seen[r.Source] {
					seen[r.Source] = true
					got = append(got, r.Source)
				}
			}
			assert.ElementsMatch(t, tc.sources, got)
		})
	}
}

func TestIntegration_ConcurrentSearchesDuringRebuild(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: a committed index
	p := newProject(t)
	p.writeText(t, "a.txt", "documento estable")
	builder := index.NewBuilderFromConfig(p.cfg)
	_, err := builder.Build(context.Background())
	require.NoError(t, err)
	engine := p.engine()

	// When: searches run while the index is rebuilt
	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				resp := engine.Search(context.Background(), "estable")
				if resp.Error != "" {
					errs <- resp.Err()
				}
			}
		}()
	}
	_, err = builder.Build(context.Background())
	require.NoError(t, err)
	wg.Wait()
	close(errs)

	// Then: readers only ever see a committed index or none at all
	for err := range errs {
		assert.True(t, berrors.GetCode(err) == berrors.ErrCodeIndexNotFound, "unexpected error: %v", err)
	}
	assert.Equal(t, 1, engine.Search(context.Background(), "estable").Total)
}

func TestIntegration_WatcherRebuild(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: a served index and a watcher rebuilding on change
	p := newProject(t)
	p.cfg.Database.Enabled = false
	p.writeText(t, "viejo.txt", "contenido inicial")
	engine := p.engine()
	builder := index.NewBuilderFromConfig(p.cfg)
	builder.OnCommit(func(*index.Manifest) { engine.Invalidate() })
	_, err := builder.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, engine.Search(context.Background(), "novedad").Total)

	registry := extract.NewRegistry()
	w, err := watcher.New(watcher.Options{Root: p.docs, Debounce: 100 * time.Millisecond, Filter: registry.Supports})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(ctx context.Context, _ []watcher.FileEvent) {
			_, _ = builder.Build(ctx)
		})
	}()
	time.Sleep(200 * time.Millisecond)

	// When: a new document appears
	p.writeText(t, "nuevo.txt", "una novedad importante")

	// Then: it becomes searchable without a manual rebuild
	require.Eventually(t, func() bool {
		return engine.Search(context.Background(), "novedad").Total == 1
	}, 8*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

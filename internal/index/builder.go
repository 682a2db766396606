// Package index builds the unified search index from the document root and
// the configured database.
//
// A build writes a fresh bleve index into a staging directory next to the
// target. On success the stage replaces the previous index with a rename
// swap, so readers see either the last committed index or none at all. On a
// fatal failure the stage is removed and the previous index is untouched.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"

	"github.com/Aman-CERP/buscador/internal/database"
	"github.com/Aman-CERP/buscador/internal/document"
	berrors "github.com/Aman-CERP/buscador/internal/errors"
	"github.com/Aman-CERP/buscador/internal/scanner"
)

// DefaultBatchSize is used when Options.BatchSize is not positive.
const DefaultBatchSize = 200

// Options configures a Builder.
type Options struct {
	// IndexDir is the committed index location.
	IndexDir string

	// DocumentsDir is the root of the filesystem corpus.
	DocumentsDir string

	// BatchSize is the number of records per index batch.
	BatchSize int

	// Workers bounds concurrent file extraction.
	Workers int

	// LockTimeout bounds the wait for the build lock.
	LockTimeout time.Duration
}

// FileSource produces the filesystem corpus.
type FileSource interface {
	Scan(ctx context.Context, opts scanner.Options) (*scanner.Corpus, error)
}

// DatabaseOpener connects to the database source.
// A nil opener disables database indexing.
type DatabaseOpener func(ctx context.Context) (database.Introspector, error)

// Result is the externally visible outcome of a build.
type Result struct {
	Success       bool    `json:"success"`
	IndexedCount  int     `json:"indexed_count"`
	DocumentCount int     `json:"document_count"`
	DatabaseCount int     `json:"database_count"`
	Skipped       int     `json:"skipped"`
	TimeTaken     float64 `json:"time_taken"`
	Timestamp     string  `json:"timestamp"`
	BuildID       string  `json:"build_id"`
	Error         string  `json:"error,omitempty"`
}

// Builder runs index builds. It is safe for concurrent use; builds are
// serialized by the build lock.
type Builder struct {
	opts    Options
	files   FileSource
	openDB  DatabaseOpener
	mapping mapping.IndexMapping

	// onCommit is called with the manifest after every successful commit.
	onCommit func(*Manifest)
}

// NewBuilder returns a Builder over the given sources.
func NewBuilder(opts Options, files FileSource, openDB DatabaseOpener) *Builder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Builder{
		opts:    opts,
		files:   files,
		openDB:  openDB,
		mapping: NewMapping(),
	}
}

// OnCommit registers fn to run after each committed build.
func (b *Builder) OnCommit(fn func(*Manifest)) {
	b.onCommit = fn
}

// IndexDir returns the committed index location.
func (b *Builder) IndexDir() string {
	return b.opts.IndexDir
}

// build is the state of one run.
type build struct {
	id       string
	stage    string
	idx      bleve.Index
	batch    *bleve.Batch
	size     int
	docs     int
	dbValues int
	skipped  int
	dbName   string
}

// Build rebuilds the index. The returned Result is never nil. A non-nil
// error means nothing was committed: the lock was not acquired or the build
// was rolled back.
func (b *Builder) Build(ctx context.Context) (res *Result, err error) {
	start := time.Now()
	st := &build{id: uuid.NewString()}
	res = &Result{BuildID: st.id}

	defer func() {
		res.TimeTaken = time.Since(start).Seconds()
		res.Timestamp = time.Now().Format(time.RFC3339)
		if err != nil {
			res.Error = err.Error()
		}
	}()

	lock := NewBuildLock(b.opts.IndexDir)
	if err := lock.Acquire(ctx, b.opts.LockTimeout); err != nil {
		slog.Warn("index_build_lock_failed", berrors.LogAttrs(err)...)
		return res, err
	}
	defer func() {
		if relErr := lock.Release(); relErr != nil {
			slog.Warn("index_build_unlock_failed", slog.String("error", relErr.Error()))
		}
	}()

	slog.Info("index_build_started",
		slog.String("build_id", st.id),
		slog.String("index_dir", b.opts.IndexDir),
		slog.String("documents_dir", b.opts.DocumentsDir))

	if err := b.run(ctx, st); err != nil {
		b.rollback(st)
		err = asBuildFailure(err)
		slog.Error("index_build_rolled_back",
			append([]any{slog.String("build_id", st.id)}, berrors.LogAttrs(err)...)...)
		return res, err
	}

	manifest := &Manifest{
		BuildID:       st.id,
		CreatedAt:     time.Now().UTC(),
		IndexedCount:  st.docs + st.dbValues,
		DocumentCount: st.docs,
		DatabaseCount: st.dbValues,
		Skipped:       st.skipped,
		DocumentsDir:  b.opts.DocumentsDir,
		Database:      st.dbName,
	}
	if err := b.commit(st, manifest); err != nil {
		b.rollback(st)
		err = asBuildFailure(err)
		slog.Error("index_build_commit_failed",
			append([]any{slog.String("build_id", st.id)}, berrors.LogAttrs(err)...)...)
		return res, err
	}

	res.IndexedCount = manifest.IndexedCount
	res.DocumentCount = manifest.DocumentCount
	res.DatabaseCount = manifest.DatabaseCount
	res.Skipped = manifest.Skipped
	res.Success = res.IndexedCount > 0

	slog.Info("index_build_committed",
		slog.String("build_id", st.id),
		slog.Int("indexed", res.IndexedCount),
		slog.Int("documents", res.DocumentCount),
		slog.Int("database", res.DatabaseCount),
		slog.Int("skipped", res.Skipped),
		slog.Duration("duration", time.Since(start)))

	if b.onCommit != nil {
		b.onCommit(manifest)
	}
	return res, nil
}

// run fills the staging index. Any returned error is fatal.
func (b *Builder) run(ctx context.Context, st *build) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = berrors.New(berrors.ErrCodeBuildFailed, fmt.Sprintf("build panicked: %v", r), nil).
				WithDetail("stack", string(debug.Stack()))
		}
	}()

	parent := filepath.Dir(filepath.Clean(b.opts.IndexDir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return berrors.IOError("failed to create index parent directory", err).
			WithDetail("path", parent)
	}
	st.stage = filepath.Join(parent, "."+filepath.Base(b.opts.IndexDir)+".staging-"+st.id)

	st.idx, err = bleve.New(st.stage, b.mapping)
	if err != nil {
		return fmt.Errorf("failed to create staging index: %w", err)
	}
	st.batch = st.idx.NewBatch()

	if err := b.indexFiles(ctx, st); err != nil {
		return err
	}
	if err := b.indexDatabase(ctx, st); err != nil {
		return err
	}
	return b.flush(st)
}

func (b *Builder) indexFiles(ctx context.Context, st *build) error {
	if b.files == nil {
		return nil
	}
	corpus, err := b.files.Scan(ctx, scanner.Options{
		Root:    b.opts.DocumentsDir,
		Workers: b.opts.Workers,
	})
	if err != nil {
		return err
	}
	st.skipped += len(corpus.Skipped)

	for i := range corpus.Documents {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc := &corpus.Documents[i]
		rec, err := fileRecord(doc, strconv.Itoa(st.docs))
		if err != nil {
			b.skipRecord(st, doc, err)
			continue
		}
		if err := b.add(st, &rec); err != nil {
			return err
		}
		st.docs++
	}
	return nil
}

// indexDatabase streams database values into the stage. Connection and
// introspection failures are logged and leave zero database records.
func (b *Builder) indexDatabase(ctx context.Context, st *build) error {
	if b.openDB == nil {
		return nil
	}

	src, err := b.openDB(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("database_unavailable", berrors.LogAttrs(err)...)
		return nil
	}
	defer src.Close()
	st.dbName = src.Name()

	var emitErr error
	report, err := database.NewAggregator(src).Run(ctx, func(doc document.LogicalDocument) error {
		rec, recErr := databaseRecord(&doc)
		if recErr != nil {
			b.skipRecord(st, &doc, recErr)
			return nil
		}
		if emitErr = b.add(st, &rec); emitErr != nil {
			return emitErr
		}
		st.dbValues++
		return nil
	})
	if report != nil {
		st.skipped += len(report.Failures)
	}
	switch {
	case err == nil:
		return nil
	case emitErr != nil:
		return emitErr
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		slog.Warn("database_scan_failed", berrors.LogAttrs(err)...)
		return nil
	}
}

func (b *Builder) add(st *build, rec *document.IndexRecord) error {
	if err := st.batch.Index(rec.ID, rec.Fields()); err != nil {
		return fmt.Errorf("failed to add record %s: %w", rec.ID, err)
	}
	st.size++
	if st.size >= b.opts.BatchSize {
		return b.flush(st)
	}
	return nil
}

func (b *Builder) flush(st *build) error {
	if st.size == 0 {
		return nil
	}
	if err := st.idx.Batch(st.batch); err != nil {
		return fmt.Errorf("failed to write batch: %w", err)
	}
	st.batch.Reset()
	st.size = 0
	return nil
}

func (b *Builder) skipRecord(st *build, doc *document.LogicalDocument, err error) {
	st.skipped++
	attrs := []any{slog.String("source", doc.DisplayName)}
	slog.Warn("index_record_skipped", append(attrs, berrors.LogAttrs(err)...)...)
}

// commit closes the stage, writes its manifest and swaps it into place.
func (b *Builder) commit(st *build, m *Manifest) error {
	idx := st.idx
	st.idx = nil
	if err := idx.Close(); err != nil {
		return fmt.Errorf("failed to close staging index: %w", err)
	}
	if err := writeManifest(st.stage, m); err != nil {
		return fmt.Errorf("failed to write build manifest: %w", err)
	}

	target := filepath.Clean(b.opts.IndexDir)
	previous := st.stage + ".previous"
	hadPrevious := false
	if _, err := os.Stat(target); err == nil {
		if err := os.Rename(target, previous); err != nil {
			return fmt.Errorf("failed to move previous index aside: %w", err)
		}
		hadPrevious = true
	}

	if err := os.Rename(st.stage, target); err != nil {
		if hadPrevious {
			_ = os.Rename(previous, target)
		}
		return fmt.Errorf("failed to swap in new index: %w", err)
	}

	if hadPrevious {
		if err := os.RemoveAll(previous); err != nil {
			slog.Warn("index_previous_cleanup_failed",
				slog.String("path", previous),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// rollback discards the stage. The committed index is left as it was.
func (b *Builder) rollback(st *build) {
	if st.idx != nil {
		_ = st.idx.Close()
		st.idx = nil
	}
	if st.stage == "" {
		return
	}
	if err := os.RemoveAll(st.stage); err != nil {
		slog.Warn("index_stage_cleanup_failed",
			slog.String("path", st.stage),
			slog.String("error", err.Error()))
	}
}

func asBuildFailure(err error) error {
	var be *berrors.Error
	if errors.As(err, &be) && be.Code == berrors.ErrCodeBuildFailed {
		return err
	}
	return berrors.New(berrors.ErrCodeBuildFailed, "index build failed", err)
}

package scanner

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/buscador/internal/document"
	berrors "github.com/Aman-CERP/buscador/internal/errors"
)

// Scanner turns a document root into a Corpus.
type Scanner struct {
	extractor Extractor
}

// New creates a Scanner that extracts files with ex.
func New(ex Extractor) *Scanner {
	return &Scanner{extractor: ex}
}

// outcome is the per-file result slot filled by a worker.
type outcome struct {
	doc  *document.LogicalDocument
	skip *Skip
}

// Scan walks opts.Root and extracts every supported file.
//
// Files are extracted concurrently, but the corpus lists documents and skips
// in walk (lexical path) order. Per-file failures never fail the scan; only
// context cancellation or an unreadable root does.
func (s *Scanner) Scan(ctx context.Context, opts Options) (*Corpus, error) {
	corpus := &Corpus{Root: opts.Root}

	info, err := os.Stat(opts.Root)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("document_root_missing", slog.String("root", opts.Root))
		return corpus, nil
	}
	if err != nil {
		return nil, berrors.New(berrors.ErrCodeFilePermission, "cannot read document root", err).
			WithDetail("root", opts.Root)
	}
	if !info.IsDir() {
		return nil, berrors.New(berrors.ErrCodeInvalidPath, "document root is not a directory", nil).
			WithDetail("root", opts.Root)
	}

	paths, ignored, err := s.walk(ctx, opts)
	if err != nil {
		return nil, err
	}
	corpus.Ignored = ignored

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	outcomes := make([]outcome, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = s.extractOne(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, o := range outcomes {
		switch {
		case o.doc != nil:
			corpus.Documents = append(corpus.Documents, *o.doc)
		case o.skip != nil:
			corpus.Skipped = append(corpus.Skipped, *o.skip)
		}
	}

	slog.Info("document_scan_complete",
		slog.String("root", opts.Root),
		slog.Int("documents", len(corpus.Documents)),
		slog.Int("skipped", len(corpus.Skipped)),
		slog.Int("ignored", corpus.Ignored))
	return corpus, nil
}

// walk lists supported regular files under the root in lexical order.
func (s *Scanner) walk(ctx context.Context, opts Options) ([]string, int, error) {
	var (
		paths   []string
		ignored int
	)

	err := filepath.WalkDir(opts.Root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			slog.Warn("document_walk_error", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !opts.FollowSymlinks {
				return nil
			}
			target, statErr := os.Stat(path)
			if statErr != nil || !target.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		if !s.extractor.Supports(path) {
			ignored++
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return paths, ignored, nil
}

// extractOne turns one file into a document or a skip. It never panics.
func (s *Scanner) extractOne(ctx context.Context, path string) (out outcome) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("document_extractor_panic", slog.String("path", path), slog.Any("panic", p))
			out = outcome{skip: &Skip{Path: path, Reason: SkipExtractionFailed, Detail: "extractor panic"}}
		}
	}()

	blocks, err := s.extractor.Extract(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return outcome{}
		}
		slog.Warn("document_skipped", append([]any{slog.String("path", path)}, berrors.LogAttrs(err)...)...)
		return outcome{skip: &Skip{Path: path, Reason: SkipExtractionFailed, Detail: skipDetail(err)}}
	}

	doc := &document.LogicalDocument{
		Kind:        document.SourceFile,
		DisplayName: filepath.Base(path),
		Path:        path,
		Extension:   strings.ToLower(filepath.Ext(path)),
		Blocks:      blocks,
	}
	if doc.IsEmpty() {
		slog.Info("document_empty", slog.String("path", path))
		return outcome{skip: &Skip{Path: path, Reason: SkipEmpty}}
	}

	slog.Debug("document_extracted",
		slog.String("path", path),
		slog.Int("blocks", len(blocks)))
	return outcome{doc: doc}
}

func skipDetail(err error) string {
	if e, ok := berrors.As(err); ok {
		return e.Message
	}
	return err.Error()
}

package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Operation is a file system operation type.
type Operation int

const (
	// OpCreate is a new file.
	OpCreate Operation = iota
	// OpModify is a write to an existing file.
	OpModify
	// OpDelete is a removed file.
	OpDelete
	// OpRename is a file moved away.
	OpRename
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one change under the watched root.
type FileEvent struct {
	// Path is relative to the root.
	Path      string
	Operation Operation
	Timestamp time.Time
}

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 2 * time.Second

// Options configures a Watcher.
type Options struct {
	// Root is the directory watched recursively.
	Root string

	// Debounce is the quiet period before a batch is delivered.
	Debounce time.Duration

	// Filter reports whether a file path is relevant. Nil accepts all files.
	Filter func(path string) bool
}

// Watcher delivers debounced change batches for a directory tree.
type Watcher struct {
	opts      Options
	fs        *fsnotify.Watcher
	debouncer *Debouncer
}

// New creates a Watcher. Nothing is watched until Run.
func New(opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}
	opts.Root = root

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{opts: opts, fs: fw, debouncer: NewDebouncer(opts.Debounce)}, nil
}

// Run watches until ctx is done, calling onChange with each batch.
// Calls to onChange are serialized; batches that arrive while one is
// running are coalesced into the next call.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context, []FileEvent)) error {
	defer w.close()

	if err := w.addRecursive(w.opts.Root); err != nil {
		return fmt.Errorf("watch %s: %w", w.opts.Root, err)
	}
	slog.Info("watcher_started",
		slog.String("root", w.opts.Root),
		slog.Duration("debounce", w.opts.Debounce))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for batch := range w.debouncer.Output() {
			batch = drain(w.debouncer.Output(), batch)
			slog.Info("watcher_batch", slog.Int("events", len(batch)))
			onChange(ctx, batch)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.debouncer.Stop()
			<-done
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				w.debouncer.Stop()
				<-done
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				continue
			}
			slog.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}

// drain appends any batches already queued.
func drain(ch <-chan []FileEvent, batch []FileEvent) []FileEvent {
	for {
		select {
		case more, ok := <-ch:
			if !ok {
				return batch
			}
			batch = append(batch, more...)
		default:
			return batch
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	isDir := false
	if info, err := os.Stat(ev.Name); err == nil {
		isDir = info.IsDir()
	}

	if isDir {
		if ev.Op.Has(fsnotify.Create) && !hidden(filepath.Base(ev.Name)) {
			if err := w.addRecursive(ev.Name); err != nil {
				slog.Warn("watcher_add_failed", slog.String("path", ev.Name), slog.String("error", err.Error()))
			}
		}
		return
	}
	if hidden(filepath.Base(ev.Name)) {
		return
	}
	if w.opts.Filter != nil && !w.opts.Filter(ev.Name) {
		return
	}

	var op Operation
	switch {
	case ev.Op.Has(fsnotify.Create):
		op = OpCreate
	case ev.Op.Has(fsnotify.Write):
		op = OpModify
	case ev.Op.Has(fsnotify.Remove):
		op = OpDelete
	case ev.Op.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	rel, err := filepath.Rel(w.opts.Root, ev.Name)
	if err != nil {
		rel = ev.Name
	}
	w.debouncer.Add(FileEvent{Path: rel, Operation: op, Timestamp: time.Now()})
}

// addRecursive watches dir and every non-hidden directory below it.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && hidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

func (w *Watcher) close() {
	w.debouncer.Stop()
	if err := w.fs.Close(); err != nil {
		slog.Debug("watcher_close_failed", slog.String("error", err.Error()))
	}
}

// hidden matches dot files and office lock files such as "~$informe.docx".
func hidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$")
}

// Package watcher triggers index rebuilds when the document root changes.
//
// Events from fsnotify are filtered to supported document types, coalesced
// per path by a Debouncer, and delivered as batches once the tree has been
// quiet for the debounce window:
//
//	w, err := watcher.New(watcher.Options{Root: dir, Filter: registry.Supports})
//	if err != nil {
//	    return err
//	}
//	err = w.Run(ctx, func(ctx context.Context, batch []watcher.FileEvent) {
//	    _, _ = builder.Build(ctx)
//	})
package watcher

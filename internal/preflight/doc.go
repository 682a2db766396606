// Package preflight checks that the environment can build and serve an index
// before any work starts.
//
// The checks cover:
//   - the document root exists and holds supported files
//   - the index location is writable with enough free disk space
//   - the file descriptor limit
//   - database reachability, when the database source is enabled
//   - whether an index has been committed
//
// Use the Checker type to run all checks:
//
//	checker := preflight.New(cfg)
//	results := checker.RunAll(ctx)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight

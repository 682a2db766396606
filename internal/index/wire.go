package index

import (
	"context"

	"github.com/Aman-CERP/buscador/internal/config"
	"github.com/Aman-CERP/buscador/internal/database"
	"github.com/Aman-CERP/buscador/internal/extract"
	"github.com/Aman-CERP/buscador/internal/scanner"
)

// NewBuilderFromConfig wires a Builder with the default extractors and,
// when enabled, the configured database.
func NewBuilderFromConfig(cfg *config.Config) *Builder {
	var openDB DatabaseOpener
	if cfg.Database.Enabled {
		dbCfg := cfg.Database
		openDB = func(ctx context.Context) (database.Introspector, error) {
			src, err := database.Open(ctx, dbCfg)
			if err != nil {
				return nil, err
			}
			return src, nil
		}
	}

	return NewBuilder(Options{
		IndexDir:     cfg.Paths.IndexDir,
		DocumentsDir: cfg.Paths.DocumentsDir,
		BatchSize:    cfg.Index.BatchSize,
		Workers:      cfg.Index.EffectiveWorkers(),
		LockTimeout:  cfg.Index.LockTimeout,
	}, scanner.New(extract.NewRegistry()), openDB)
}

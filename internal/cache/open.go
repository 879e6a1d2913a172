package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"royale-audit/internal/config"
	"royale-audit/internal/logger"
	"royale-audit/internal/metrics"
)

// Datasets lists every dataset the pipeline stores.
var Datasets = []string{DatasetClan, DatasetCurrentWar, DatasetWarLog}

// Open builds the Store for the backend named in cfg.Cache.
func Open(cfg *config.Config, m *metrics.Metrics) (*Store, error) {
	b, err := OpenBackend(cfg)
	if err != nil {
		return nil, err
	}
	return NewStore(b, m), nil
}

func OpenBackend(cfg *config.Config) (Backend, error) {
	switch cfg.Cache.Backend {
	case config.BackendFile, "":
		return NewFileBackend(cfg.Cache.Dir)
	case config.BackendSQLite, config.BackendMySQL:
		db, err := cfg.OpenGormDB()
		if err != nil {
			return nil, fmt.Errorf("open %s cache: %w", cfg.Cache.Backend, err)
		}
		return NewSQLBackend(db)
	case config.BackendBadger:
		return NewBadgerBackend(filepath.Join(cfg.Cache.Dir, "badger"))
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// Copy moves the given datasets from one backend to another, keeping their
// write times. Datasets missing from src are skipped.
func Copy(ctx context.Context, src, dst Backend, datasets []string) (int, error) {
	copied := 0
	for _, name := range datasets {
		e, err := src.Load(ctx, name)
		if errors.Is(err, ErrNotStored) {
			logger.Info("cache.copy_skip", "dataset", name)
			continue
		}
		if err != nil {
			return copied, fmt.Errorf("load %s: %w", name, err)
		}
		if err := dst.Save(ctx, e); err != nil {
			return copied, fmt.Errorf("save %s: %w", name, err)
		}
		logger.Info("cache.copied", "dataset", name, "written_at", e.WrittenAt)
		copied++
	}
	return copied, nil
}

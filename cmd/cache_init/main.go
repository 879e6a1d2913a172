package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"royale-audit/internal/cache"
	"royale-audit/internal/config"
	"royale-audit/internal/logger"
)

func main() {
	configFile := flag.String("config", "", "config file")
	importDir := flag.String("import-dir", "", "file cache directory to import (default: cache.dir)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	logger.Init(cfg.Log)
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	if err := run(context.Background(), cfg, *importDir); err != nil {
		log.Fatal(err)
	}
}

// run closes the destination backend on every path.
func run(ctx context.Context, cfg *config.Config, importDir string) error {
	// Step 1: open (and for SQL backends migrate) the configured cache
	dst, err := cache.OpenBackend(cfg)
	if err != nil {
		return fmt.Errorf("open cache backend: %w", err)
	}
	defer func() {
		if err := dst.Close(); err != nil {
			logger.Warn("cache.close_failed", "err", err)
		}
	}()
	logger.Info("cache backend ready", "backend", cfg.Cache.Backend)

	if cfg.Cache.Backend == config.BackendFile && importDir == "" {
		logger.Info("=== nothing to import ===")
		return nil
	}

	// Step 2: import existing JSON datasets
	dir := importDir
	if dir == "" {
		dir = cfg.Cache.Dir
	}
	src, err := cache.NewFileBackend(dir)
	if err != nil {
		return err
	}
	n, err := cache.Copy(ctx, src, dst, cache.Datasets)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	logger.Info("=== all done ===", "imported", n)
	return nil
}

package report

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"royale-audit/internal/logger"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 300 * time.Millisecond

// ReloadingRenderer re-parses the templates of dir whenever one of them
// changes. A parse failure keeps the previous templates in service.
type ReloadingRenderer struct {
	dir string

	mu      sync.RWMutex
	current *TemplateRenderer
}

func NewReloadingRenderer(dir string) (*ReloadingRenderer, error) {
	r, err := NewTemplateRenderer(dir)
	if err != nil {
		return nil, err
	}
	return &ReloadingRenderer{dir: dir, current: r}, nil
}

func (r *ReloadingRenderer) Render(page string, ctx Context) ([]byte, error) {
	r.mu.RLock()
	cur := r.current
	r.mu.RUnlock()
	return cur.Render(page, ctx)
}

// Reload parses the directory again and swaps the templates in on success.
func (r *ReloadingRenderer) Reload() error {
	next, err := NewTemplateRenderer(r.dir)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.current = next
	r.mu.Unlock()
	return nil
}

// Watch reloads on *.html changes until ctx is done.
func (r *ReloadingRenderer) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(r.dir); err != nil {
		return fmt.Errorf("watch %s: %w", r.dir, err)
	}
	logger.Info("templates.watching", "dir", r.dir)

	// rapid saves arrive as bursts of events; reload once per burst
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(ev.Name) != ".html" || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(reloadDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("templates.watch_error", "err", err)
		case <-timer.C:
			if err := r.Reload(); err != nil {
				logger.Error("templates.reload_failed", "dir", r.dir, "err", err)
				continue
			}
			logger.Info("templates.reloaded", "dir", r.dir)
		}
	}
}

package service

import (
	"context"
	"encoding/json"
	"time"

	"royale-audit/internal/logger"
)

const (
	DefaultMaxPages  = 20
	DefaultPageDelay = 500 * time.Millisecond
)

// PageSource requests one page of limit items starting after cursor ("" for the first page).
type PageSource func(ctx context.Context, cursor string, limit int) (*Page, error)

// Paginator walks a cursor-paginated endpoint.
type Paginator struct {
	PageSize int
	MaxPages int
	Delay    time.Duration

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration)
}

func NewPaginator(pageSize, maxPages int, delay time.Duration) *Paginator {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Paginator{PageSize: pageSize, MaxPages: maxPages, Delay: delay, sleep: sleepCtx}
}

// FetchAll accumulates items page by page until the source runs dry, a
// request fails, or MaxPages cursors have been followed. Whatever was
// collected is returned: a partial history is still a valid result, and
// reaching MaxPages is not reported to the caller.
func (p *Paginator) FetchAll(ctx context.Context, src PageSource) []json.RawMessage {
	var all []json.RawMessage
	cursor := ""
	pages := 0

	for pages < p.MaxPages {
		page, err := src(ctx, cursor, p.PageSize)
		if err != nil {
			logger.Warn("fetch.page_failed", "page", pages+1, "collected", len(all), "err", err)
			break
		}
		if page == nil || len(page.Items) == 0 {
			break
		}

		all = append(all, page.Items...)
		logger.Info("fetch.page", "page", pages+1, "items", len(page.Items), "total", len(all))

		next := page.Next()
		if next == "" {
			break
		}
		cursor = next
		pages++
		if pages < p.MaxPages {
			p.sleep(ctx, p.Delay)
		}
	}
	if pages >= p.MaxPages {
		logger.Debug("fetch.page_limit", "max_pages", p.MaxPages, "total", len(all))
	}
	return all
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

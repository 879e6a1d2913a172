// Package pipeline drives one batch pass: acquire datasets, audit, assemble, render.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"royale-audit/internal/cache"
	"royale-audit/internal/logger"
	"royale-audit/internal/model"
	"royale-audit/internal/service"
)

// Mode selects where datasets come from.
type Mode int

const (
	// ModeCached uses fresh cache entries and fetches the rest.
	ModeCached Mode = iota
	// ModeRefresh always fetches and rewrites the cache.
	ModeRefresh
	// ModeOffline only reads the cache, whatever its age.
	ModeOffline
)

func (m Mode) String() string {
	switch m {
	case ModeRefresh:
		return "refresh"
	case ModeOffline:
		return "offline"
	default:
		return "cached"
	}
}

var (
	ErrRosterUnavailable = errors.New("clan roster unavailable")
	errNoWarLog          = errors.New("war log is empty")
)

// Source is the upstream API.
type Source interface {
	Clan(ctx context.Context, tag string) (json.RawMessage, error)
	CurrentWar(ctx context.Context, tag string) (json.RawMessage, error)
	WarLogPage(ctx context.Context, tag, cursor string, limit int) (*service.Page, error)
}

// Cache is the subset of cache.Store the acquirer uses.
type Cache interface {
	Read(ctx context.Context, dataset string, ttl time.Duration) ([]byte, bool)
	Write(ctx context.Context, dataset string, payload []byte) error
}

// Datasets are the typed inputs of one report. War and WarLog may be empty.
type Datasets struct {
	Clan   *model.ClanSnapshot
	War    *model.WarSnapshot
	WarLog []model.WarLogEntry
}

type Acquirer struct {
	src   Source
	cache Cache
	pager *service.Paginator
	tag   string
	ttl   time.Duration
}

// NewAcquirer wires the data sources. src may be nil when only ModeOffline is used.
func NewAcquirer(src Source, c Cache, pager *service.Paginator, tag string, ttl time.Duration) *Acquirer {
	return &Acquirer{src: src, cache: c, pager: pager, tag: tag, ttl: ttl}
}

// Acquire loads the roster, current war and war log. Only a missing roster is an error.
func (a *Acquirer) Acquire(ctx context.Context, mode Mode) (*Datasets, error) {
	if a.src == nil && mode != ModeOffline {
		return nil, errors.New("live source not configured")
	}
	logger.Info("acquire.start", "mode", mode.String(), "clan", a.tag)

	clan, ok := load(ctx, a, mode, cache.DatasetClan, func(ctx context.Context) ([]byte, error) {
		return a.src.Clan(ctx, a.tag)
	}, model.DecodeClan)
	if !ok {
		logger.Error("acquire.roster_unavailable", "clan", a.tag, "mode", mode.String())
		return nil, ErrRosterUnavailable
	}

	war, _ := load(ctx, a, mode, cache.DatasetCurrentWar, func(ctx context.Context) ([]byte, error) {
		return a.src.CurrentWar(ctx, a.tag)
	}, model.DecodeWar)

	warLog, _ := load(ctx, a, mode, cache.DatasetWarLog, a.fetchWarLog, model.DecodeWarLog)

	logger.Info("acquire.done",
		"members", len(clan.MemberList), "war", war != nil, "war_log", len(warLog))
	return &Datasets{Clan: clan, War: war, WarLog: warLog}, nil
}

func (a *Acquirer) fetchWarLog(ctx context.Context) ([]byte, error) {
	items := a.pager.FetchAll(ctx, func(ctx context.Context, cursor string, limit int) (*service.Page, error) {
		return a.src.WarLogPage(ctx, a.tag, cursor, limit)
	})
	// a cancelled walk returns a truncated history
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("war log: %w", err)
	}
	if len(items) == 0 {
		return nil, errNoWarLog
	}
	logger.Info("acquire.war_log", "wars", len(items))
	return model.EncodeWarLog(items)
}

// load returns the decoded dataset from the cache or, if the mode allows it,
// from the live source. A cached payload that does not decode counts as a miss.
func load[T any](
	ctx context.Context,
	a *Acquirer,
	mode Mode,
	dataset string,
	fetch func(context.Context) ([]byte, error),
	decode func([]byte) (T, error),
) (T, bool) {
	var zero T

	if mode != ModeRefresh {
		ttl := a.ttl
		if mode == ModeOffline {
			ttl = cache.NoExpiry
		}
		if raw, ok := a.cache.Read(ctx, dataset, ttl); ok {
			v, err := decode(raw)
			if err == nil {
				return v, true
			}
			logger.Warn("acquire.cached_invalid", "dataset", dataset, "err", err)
		}
	}
	if mode == ModeOffline {
		return zero, false
	}

	raw, err := fetch(ctx)
	if err != nil {
		logger.Warn("acquire.fetch_failed", "dataset", dataset, "err", err)
		return zero, false
	}
	v, err := decode(raw)
	if err != nil {
		logger.Error("acquire.invalid_payload", "dataset", dataset, "err", err)
		return zero, false
	}
	// A failed cache write is logged by the store and does not invalidate the data.
	_ = a.cache.Write(ctx, dataset, raw)
	return v, true
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"royale-audit/internal/logger"
	"royale-audit/internal/metrics"
)

const (
	DatasetClan       = "clan_info"
	DatasetCurrentWar = "current_war"
	DatasetWarLog     = "war_log"
)

// NoExpiry makes Read accept an entry of any age.
const NoExpiry = time.Duration(math.MaxInt64)

// ErrNotStored is returned by backends for datasets that were never written.
var ErrNotStored = errors.New("dataset not stored")

// Entry is one stored dataset.
type Entry struct {
	Dataset   string
	Payload   []byte
	WrittenAt time.Time
}

// Backend persists entries. Implementations overwrite on Save and return
// ErrNotStored from Load for unknown datasets.
type Backend interface {
	Load(ctx context.Context, dataset string) (Entry, error)
	Save(ctx context.Context, e Entry) error
	Close() error
}

// Store adds the freshness policy on top of a Backend.
type Store struct {
	backend Backend
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewStore(b Backend, m *metrics.Metrics) *Store {
	return &Store{backend: b, metrics: m, now: time.Now}
}

// Read returns the payload of dataset if it was written less than ttl ago.
// Stale entries stay in place; read failures are logged and look like a miss.
func (s *Store) Read(ctx context.Context, dataset string, ttl time.Duration) ([]byte, bool) {
	e, err := s.backend.Load(ctx, dataset)
	if err != nil {
		if errors.Is(err, ErrNotStored) {
			s.metrics.CacheRead(dataset, "miss")
			logger.Debug("cache.miss", "dataset", dataset)
		} else {
			s.metrics.CacheRead(dataset, "error")
			logger.Warn("cache.read_failed", "dataset", dataset, "err", err)
		}
		return nil, false
	}
	age := s.now().Sub(e.WrittenAt)
	if age >= ttl {
		s.metrics.CacheRead(dataset, "stale")
		logger.Info("cache.stale", "dataset", dataset, "age", age.Round(time.Second).String())
		return nil, false
	}
	if !json.Valid(e.Payload) {
		s.metrics.CacheRead(dataset, "error")
		logger.Warn("cache.corrupt", "dataset", dataset)
		return nil, false
	}
	s.metrics.CacheRead(dataset, "hit")
	logger.Info("cache.hit", "dataset", dataset, "age", age.Round(time.Second).String())
	return e.Payload, true
}

// Write stores payload under dataset, stamped with the current time.
func (s *Store) Write(ctx context.Context, dataset string, payload []byte) error {
	err := s.backend.Save(ctx, Entry{Dataset: dataset, Payload: payload, WrittenAt: s.now()})
	if err != nil {
		logger.Error("cache.write_failed", "dataset", dataset, "err", err)
		return err
	}
	logger.Info("cache.saved", "dataset", dataset, "bytes", len(payload))
	return nil
}

func (s *Store) Close() error { return s.backend.Close() }

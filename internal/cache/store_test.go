package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"royale-audit/internal/metrics"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type backendFactory func(t *testing.T) Backend

func fileBackend(t *testing.T) Backend {
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	return b
}

func sqliteBackend(t *testing.T) Backend {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "cache.db")),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	b, err := NewSQLBackend(db)
	require.NoError(t, err)
	return b
}

func badgerBackend(t *testing.T) Backend {
	b, err := NewBadgerBackend(t.TempDir())
	require.NoError(t, err)
	return b
}

var backends = map[string]backendFactory{
	"file":   fileBackend,
	"sqlite": sqliteBackend,
	"badger": badgerBackend,
}

// clock is a settable time source for the store.
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestStore(b Backend) (*Store, *clock) {
	c := &clock{t: time.Now().Truncate(time.Second)}
	s := NewStore(b, nil)
	s.now = c.now
	return s, c
}

func TestStoreFreshness(t *testing.T) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			b := factory(t)
			defer b.Close()
			s, clk := newTestStore(b)
			ctx := context.Background()

			_, ok := s.Read(ctx, DatasetClan, 10*time.Minute)
			assert.False(t, ok, "empty store must miss")

			require.NoError(t, s.Write(ctx, DatasetClan, []byte(`{"tag":"#A"}`)))

			clk.t = clk.t.Add(9 * time.Minute)
			got, ok := s.Read(ctx, DatasetClan, 10*time.Minute)
			require.True(t, ok)
			assert.JSONEq(t, `{"tag":"#A"}`, string(got))

			clk.t = clk.t.Add(time.Minute)
			_, ok = s.Read(ctx, DatasetClan, 10*time.Minute)
			assert.False(t, ok, "entry aged exactly ttl is stale")

			// stale entries are kept and still usable without expiry
			got, ok = s.Read(ctx, DatasetClan, NoExpiry)
			require.True(t, ok)
			assert.JSONEq(t, `{"tag":"#A"}`, string(got))

			require.NoError(t, s.Write(ctx, DatasetClan, []byte(`{"tag":"#B"}`)))
			got, ok = s.Read(ctx, DatasetClan, time.Minute)
			require.True(t, ok)
			assert.JSONEq(t, `{"tag":"#B"}`, string(got))
		})
	}
}

func TestStoreDatasetsAreIndependent(t *testing.T) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			b := factory(t)
			defer b.Close()
			s, _ := newTestStore(b)
			ctx := context.Background()

			require.NoError(t, s.Write(ctx, DatasetWarLog, []byte(`{"items":[]}`)))
			_, ok := s.Read(ctx, DatasetCurrentWar, time.Hour)
			assert.False(t, ok)
			_, ok = s.Read(ctx, DatasetWarLog, time.Hour)
			assert.True(t, ok)
		})
	}
}

func TestFileStoreCorruptPayloadIsMiss(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	s := NewStore(b, metrics.New(reg))

	require.NoError(t, os.WriteFile(filepath.Join(dir, DatasetClan+".json"), []byte(`{"tag":`), 0o644))

	_, ok := s.Read(context.Background(), DatasetClan, time.Hour)
	assert.False(t, ok)

	n, err := testutil.GatherAndCount(reg, "royale_cache_reads_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFileStoreUnreadableIsMiss(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)
	s := NewStore(b, nil)

	// a directory where the file should be cannot be read as a document
	require.NoError(t, os.Mkdir(filepath.Join(dir, DatasetClan+".json"), 0o755))

	_, ok := s.Read(context.Background(), DatasetClan, time.Hour)
	assert.False(t, ok)
}

func TestFileBackendWritesPrettyJSON(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, b.Save(context.Background(), Entry{Dataset: DatasetClan, Payload: []byte(`{"a":1}`), WrittenAt: stamp}))

	data, err := os.ReadFile(filepath.Join(dir, DatasetClan+".json"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(data))

	e, err := b.Load(context.Background(), DatasetClan)
	require.NoError(t, err)
	assert.True(t, stamp.Equal(e.WrittenAt), "mtime carries the write time")
}

func TestCopyKeepsWriteTimes(t *testing.T) {
	src := fileBackend(t)
	dst := sqliteBackend(t)
	defer dst.Close()
	ctx := context.Background()

	stamp := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, src.Save(ctx, Entry{Dataset: DatasetClan, Payload: []byte(`{"tag":"#A"}`), WrittenAt: stamp}))

	n, err := Copy(ctx, src, dst, Datasets)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	e, err := dst.Load(ctx, DatasetClan)
	require.NoError(t, err)
	assert.True(t, stamp.Equal(e.WrittenAt))
	assert.JSONEq(t, `{"tag":"#A"}`, string(e.Payload))

	_, err = dst.Load(ctx, DatasetCurrentWar)
	assert.ErrorIs(t, err, ErrNotStored)
}

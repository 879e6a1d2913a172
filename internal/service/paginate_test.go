package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves pages of numbered items; pages[i] is the item count of page i.
type fakeSource struct {
	pages    []int
	infinite bool
	failAt   int // 1-based request that fails, 0 = never
	calls    int
	cursors  []string
}

func (f *fakeSource) fetch(_ context.Context, cursor string, limit int) (*Page, error) {
	f.calls++
	f.cursors = append(f.cursors, cursor)
	if f.failAt == f.calls {
		return nil, errors.New("boom")
	}
	idx := f.calls - 1
	n := limit
	if !f.infinite {
		if idx >= len(f.pages) {
			return &Page{}, nil
		}
		n = f.pages[idx]
	}
	p := &Page{}
	for i := 0; i < n; i++ {
		p.Items = append(p.Items, json.RawMessage(fmt.Sprintf(`{"page":%d,"i":%d}`, idx, i)))
	}
	p.Paging.Cursors.After = fmt.Sprintf("c%d", idx+1)
	return p, nil
}

func newTestPaginator(pageSize int) (*Paginator, *[]time.Duration) {
	var slept []time.Duration
	p := NewPaginator(pageSize, DefaultMaxPages, 500*time.Millisecond)
	p.sleep = func(_ context.Context, d time.Duration) { slept = append(slept, d) }
	return p, &slept
}

func TestFetchAllStopsOnEmptyPage(t *testing.T) {
	src := &fakeSource{pages: []int{10, 10, 10}}
	p, slept := newTestPaginator(10)

	items := p.FetchAll(context.Background(), src.fetch)

	assert.Len(t, items, 30)
	assert.Equal(t, 4, src.calls)
	assert.Equal(t, []string{"", "c1", "c2", "c3"}, src.cursors)
	assert.Len(t, *slept, 3)
	assert.JSONEq(t, `{"page":0,"i":0}`, string(items[0]))
	assert.JSONEq(t, `{"page":2,"i":9}`, string(items[29]))
}

func TestFetchAllSafetyBound(t *testing.T) {
	src := &fakeSource{infinite: true}
	p, _ := newTestPaginator(7)

	items := p.FetchAll(context.Background(), src.fetch)

	assert.Len(t, items, DefaultMaxPages*7)
	assert.Equal(t, DefaultMaxPages, src.calls)
}

func TestFetchAllStopsWithoutCursor(t *testing.T) {
	calls := 0
	src := func(context.Context, string, int) (*Page, error) {
		calls++
		return &Page{Items: []json.RawMessage{json.RawMessage(`1`), json.RawMessage(`2`)}}, nil
	}
	p, slept := newTestPaginator(10)

	items := p.FetchAll(context.Background(), src)

	assert.Len(t, items, 2)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestFetchAllFirstPageFailure(t *testing.T) {
	src := &fakeSource{pages: []int{10}, failAt: 1}
	p, _ := newTestPaginator(10)

	items := p.FetchAll(context.Background(), src.fetch)

	assert.Empty(t, items)
	assert.Equal(t, 1, src.calls)
}

func TestFetchAllKeepsPartialResults(t *testing.T) {
	src := &fakeSource{pages: []int{10, 10, 10}, failAt: 3}
	p, _ := newTestPaginator(10)

	items := p.FetchAll(context.Background(), src.fetch)

	require.Len(t, items, 20)
	assert.Equal(t, 3, src.calls)
}

func TestFetchAllNilPage(t *testing.T) {
	src := func(context.Context, string, int) (*Page, error) { return nil, nil }
	p, _ := newTestPaginator(10)
	assert.Empty(t, p.FetchAll(context.Background(), src))
}

func TestSleepCtxReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	sleepCtx(ctx, time.Minute)
	assert.Less(t, time.Since(start), time.Second)
}

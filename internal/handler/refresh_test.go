package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"royale-audit/internal/cache"
	"royale-audit/internal/pipeline"
	"royale-audit/internal/report"
	"royale-audit/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hangupSource serves two war log pages and cancels the request context
// once the first one has been handed out.
type hangupSource struct {
	cancel context.CancelFunc
}

func (hangupSource) Clan(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`{"tag":"#C1","name":"Clan","memberList":[{"tag":"#A","name":"Ana"}]}`), nil
}

func (hangupSource) CurrentWar(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`{"clan":{"tag":"#C1","participants":[{"tag":"#A","decksUsed":4}]}}`), nil
}

func (s hangupSource) WarLogPage(_ context.Context, _ string, cursor string, _ int) (*service.Page, error) {
	if cursor == "" {
		defer s.cancel()
		p := &service.Page{Items: []json.RawMessage{json.RawMessage(`{"seasonId":1}`), json.RawMessage(`{"seasonId":2}`)}}
		p.Paging.Cursors.After = "next"
		return p, nil
	}
	return &service.Page{Items: []json.RawMessage{json.RawMessage(`{"seasonId":3}`)}}, nil
}

type mapCache map[string][]byte

func (m mapCache) Read(_ context.Context, dataset string, _ time.Duration) ([]byte, bool) {
	v, ok := m[dataset]
	return v, ok
}

func (m mapCache) Write(_ context.Context, dataset string, payload []byte) error {
	m[dataset] = payload
	return nil
}

type nopRenderer struct{}

func (nopRenderer) Render(string, report.Context) ([]byte, error) { return []byte("ok"), nil }

func TestRefreshSurvivesClientHangup(t *testing.T) {
	c := mapCache{cache.DatasetWarLog: []byte(`{"items":[{"seasonId":1},{"seasonId":2},{"seasonId":3}]}`)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pager := service.NewPaginator(10, service.DefaultMaxPages, 0)
	runner := &pipeline.Runner{
		Acquirer: pipeline.NewAcquirer(hangupSource{cancel: cancel}, c, pager, "#C1", time.Minute),
		Renderer: nopRenderer{},
		Pages:    []string{"index.html"},
		OutDir:   t.TempDir(),
	}
	router := NewRouter(NewReportHandler(runner, true), prometheus.NewRegistry(), t.TempDir())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/refresh", nil).WithContext(ctx))

	require.Equal(t, http.StatusOK, w.Code)
	require.Error(t, ctx.Err(), "client went away mid-refresh")

	var doc struct {
		Items []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(c[cache.DatasetWarLog], &doc))
	assert.Len(t, doc.Items, 3)
}

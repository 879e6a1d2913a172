package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"unicode/utf8"

	"royale-audit/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientSendsCredentialsAndEscapesTag(t *testing.T) {
	var gotPath, gotAuth, gotAccept string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{"tag":"#9PJRJRPC","name":"Clan"}`))
	})
	c := NewClient(srv.URL+"/", "secret", time.Second, nil)
	c.client = srv.Client()

	raw, err := c.Clan(context.Background(), "#9PJRJRPC")

	require.NoError(t, err)
	assert.JSONEq(t, `{"tag":"#9PJRJRPC","name":"Clan"}`, string(raw))
	assert.Equal(t, "/clans/%239PJRJRPC", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
}

func TestClientWarLogPageParams(t *testing.T) {
	var queries []string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		assert.Equal(t, "/clans/%23ABC/riverracelog", r.URL.EscapedPath())
		w.Write([]byte(`{"items":[{"seasonId":1}],"paging":{"cursors":{"after":"xyz"}}}`))
	})
	c := NewClient(srv.URL, "k", time.Second, nil)

	p, err := c.WarLogPage(context.Background(), "#ABC", "", 10)
	require.NoError(t, err)
	assert.Len(t, p.Items, 1)
	assert.Equal(t, "xyz", p.Next())

	_, err = c.WarLogPage(context.Background(), "#ABC", "xyz", 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"limit=10", "after=xyz&limit=10"}, queries)
}

func TestClientTypedFailures(t *testing.T) {
	tests := []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusNotFound, func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrNotFound) }},
		{http.StatusForbidden, func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrAccessDenied) }},
		{http.StatusServiceUnavailable, func(t *testing.T, err error) {
			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, http.StatusServiceUnavailable, se.Code)
		}},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"reason":"x"}`))
			})
			c := NewClient(srv.URL, "k", time.Second, nil)
			raw, err := c.CurrentWar(context.Background(), "#ABC")
			assert.Nil(t, raw)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClientRejectsNonJSON(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	})
	c := NewClient(srv.URL, "k", time.Second, nil)
	_, err := c.Fetch(context.Background(), "/clans/%23ABC", nil)
	assert.Error(t, err)
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	c := NewClient(srv.URL, "k", 50*time.Millisecond, nil)

	_, err := c.Clan(context.Background(), "#ABC")
	assert.Error(t, err)
}

func TestClientRecordsMetrics(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/clans/#ABC/currentriverrace" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{}`))
	})
	reg := prometheus.NewRegistry()
	c := NewClient(srv.URL, "k", time.Second, metrics.New(reg))

	_, _ = c.Clan(context.Background(), "#ABC")
	_, _ = c.CurrentWar(context.Background(), "#ABC")

	n, err := testutil.GatherAndCount(reg, "royale_api_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMetricEndpoint(t *testing.T) {
	assert.Equal(t, "/clans/{tag}/riverracelog", metricEndpoint("/clans/%23ABC/riverracelog"))
	assert.Equal(t, "/clans/{tag}", metricEndpoint("/clans/%23ABC"))
	assert.Equal(t, "/cards", metricEndpoint("/cards"))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))

	got := truncate("aéé", 2) // é is two bytes; byte 2 falls inside the first one
	assert.Equal(t, "a...", got)
	assert.True(t, utf8.ValidString(got))
}

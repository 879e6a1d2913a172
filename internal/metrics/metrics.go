package metrics

import (
	"time"

	"royale-audit/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors shared by the client, cache and report stages.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	apiRequests  *prometheus.CounterVec
	apiDuration  *prometheus.HistogramVec
	cacheReads   *prometheus.CounterVec
	reportPages  *prometheus.CounterVec
	auditMembers *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		apiRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "royale_api_requests_total",
			Help: "upstream API requests by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		apiDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "royale_api_request_duration_seconds",
			Help:    "upstream API request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		cacheReads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "royale_cache_reads_total",
			Help: "cache reads by dataset and result (hit, miss, stale, error)",
		}, []string{"dataset", "result"}),
		reportPages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "royale_report_pages_total",
			Help: "rendered report pages by outcome",
		}, []string{"page", "outcome"}),
		auditMembers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "royale_audit_members",
			Help: "members per audit status in the last computed audit",
		}, []string{"status"}),
	}
}

func (m *Metrics) ObserveRequest(endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(endpoint, outcome).Inc()
	m.apiDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *Metrics) CacheRead(dataset, result string) {
	if m == nil {
		return
	}
	m.cacheReads.WithLabelValues(dataset, result).Inc()
}

func (m *Metrics) PageRendered(page string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.reportPages.WithLabelValues(page, outcome).Inc()
}

func (m *Metrics) SetAuditStats(s model.AuditStats) {
	if m == nil {
		return
	}
	m.auditMembers.WithLabelValues(string(model.StatusDanger)).Set(float64(s.Danger))
	m.auditMembers.WithLabelValues(string(model.StatusWarning)).Set(float64(s.Warning))
	m.auditMembers.WithLabelValues(string(model.StatusSuccess)).Set(float64(s.OnTrack))
}

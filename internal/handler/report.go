package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"royale-audit/internal/logger"
	"royale-audit/internal/pipeline"
	"royale-audit/internal/report"

	"github.com/gin-gonic/gin"
)

// Reporter is what the handlers need from the pipeline.
type Reporter interface {
	Report(ctx context.Context, mode pipeline.Mode) (report.Context, error)
	Run(ctx context.Context, mode pipeline.Mode) (*pipeline.Summary, error)
}

type ReportHandler struct {
	runner  Reporter
	canLive bool

	// refreshing serializes POST /api/refresh; the cache assumes one writer.
	refreshing sync.Mutex
}

// NewReportHandler serves reports; canLive is false when no API key is configured.
func NewReportHandler(r Reporter, canLive bool) *ReportHandler {
	return &ReportHandler{runner: r, canLive: canLive}
}

// GET /api/report
func (h *ReportHandler) Report(c *gin.Context) {
	rc, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rc)
}

// GET /api/audit
func (h *ReportHandler) Audit(c *gin.Context) {
	rc, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dayName":     rc.DayName,
		"warDay":      rc.WarDay,
		"targetDecks": rc.TargetDecks,
		"results":     rc.AuditResults,
		"stats":       rc.Stats,
	})
}

// POST /api/refresh
func (h *ReportHandler) Refresh(c *gin.Context) {
	if !h.canLive {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "api key not configured"})
		return
	}
	if !h.refreshing.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": "refresh already running"})
		return
	}
	defer h.refreshing.Unlock()

	// refresh runs to completion even if the client goes away
	s, err := h.runner.Run(context.WithoutCancel(c.Request.Context()), pipeline.ModeRefresh)
	if err != nil {
		logger.Error("refresh.failed", "err", err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rendered": s.Rendered, "failed": s.Failed, "stats": s.Stats})
}

func (h *ReportHandler) load(c *gin.Context) (report.Context, bool) {
	rc, err := h.runner.Report(c.Request.Context(), pipeline.ModeOffline)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return report.Context{}, false
	}
	return rc, true
}

func statusFor(err error) int {
	if errors.Is(err, pipeline.ErrRosterUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

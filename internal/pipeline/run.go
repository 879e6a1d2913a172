package pipeline

import (
	"context"
	"time"

	"royale-audit/internal/audit"
	"royale-audit/internal/logger"
	"royale-audit/internal/metrics"
	"royale-audit/internal/model"
	"royale-audit/internal/report"
)

const DefaultTopPlayers = 3

// Build runs the audit core over ds for the local date of now.
func Build(ds *Datasets, now time.Time, topN int) report.Context {
	day := audit.Today(now)
	results, stats := audit.Compute(ds.Clan.MemberList, ds.War, day.TargetDecks)
	return report.Assemble(report.Inputs{
		Clan:        ds.Clan,
		War:         ds.War,
		WarLog:      ds.WarLog,
		Audit:       results,
		Stats:       stats,
		Day:         day,
		League:      audit.ClassifyLeague(ds.Clan.ClanWarTrophies),
		TopPlayers:  report.TopPlayers(ds.Clan.MemberList, topN),
		GeneratedAt: now,
	})
}

type Runner struct {
	Acquirer *Acquirer
	Renderer report.Renderer
	Pages    []string
	OutDir   string
	TopN     int
	Metrics  *metrics.Metrics

	// Now defaults to time.Now.
	Now func() time.Time
}

type Summary struct {
	Mode     Mode
	Stats    model.AuditStats
	Pages    []report.PageResult
	Rendered int
	Failed   int
}

// Report acquires the datasets and builds the report context without rendering.
func (r *Runner) Report(ctx context.Context, mode Mode) (report.Context, error) {
	ds, err := r.Acquirer.Acquire(ctx, mode)
	if err != nil {
		return report.Context{}, err
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	topN := r.TopN
	if topN == 0 {
		topN = DefaultTopPlayers
	}
	rc := Build(ds, now(), topN)
	r.Metrics.SetAuditStats(rc.Stats)
	logger.Info("audit.done",
		"day", rc.DayName, "target", rc.TargetDecks,
		"on_track", rc.Stats.OnTrack, "warning", rc.Stats.Warning, "danger", rc.Stats.Danger)
	return rc, nil
}

// Run is one full batch pass. Only a missing roster fails it; page
// failures are counted in the summary.
func (r *Runner) Run(ctx context.Context, mode Mode) (*Summary, error) {
	rc, err := r.Report(ctx, mode)
	if err != nil {
		return nil, err
	}
	pages := report.RenderAll(r.Renderer, r.Pages, r.OutDir, rc, r.Metrics)

	s := &Summary{Mode: mode, Stats: rc.Stats, Pages: pages}
	for _, p := range pages {
		if p.Err != nil {
			s.Failed++
		} else {
			s.Rendered++
		}
	}
	logger.Info("run.done", "mode", mode.String(), "rendered", s.Rendered, "failed", s.Failed)
	return s, nil
}

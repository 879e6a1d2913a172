// Package audit reconciles the clan roster with war participation.
package audit

import (
	"cmp"
	"slices"

	"royale-audit/internal/model"
)

// Compute classifies every roster member against target cumulative decks.
// Members missing from the war (or a nil war) count as zero decks used.
// Results come back most urgent first; inputs are left untouched.
func Compute(roster []model.MemberRecord, war *model.WarSnapshot, target int) ([]model.AuditResult, model.AuditStats) {
	decks := make(map[string]int)
	if war != nil {
		for _, p := range war.Clan.Participants {
			decks[p.Tag] = p.DecksUsed
		}
	}

	var stats model.AuditStats
	results := make([]model.AuditResult, 0, len(roster))
	for _, m := range roster {
		used := max(0, decks[m.Tag])
		missing := max(0, target-used)

		var status model.Status
		switch {
		case used == 0:
			status = model.StatusDanger
			stats.Danger++
			stats.Zero++
		case missing > 0:
			status = model.StatusWarning
			stats.Warning++
			stats.Incomplete++
		default:
			status = model.StatusSuccess
			stats.OnTrack++
		}

		results = append(results, model.AuditResult{
			Name:        m.Name,
			Tag:         m.Tag,
			Role:        m.Role,
			DecksUsed:   used,
			Missing:     missing,
			StatusClass: status,
			StatusLabel: status.Label(),
		})
	}

	slices.SortStableFunc(results, func(a, b model.AuditResult) int {
		return cmp.Or(
			cmp.Compare(a.StatusClass.Rank(), b.StatusClass.Rank()),
			cmp.Compare(a.DecksUsed, b.DecksUsed),
		)
	})
	return results, stats
}

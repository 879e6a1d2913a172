package report

import (
	"cmp"
	"slices"
	"time"

	"royale-audit/internal/audit"
	"royale-audit/internal/model"
)

const TimestampLayout = "02/01/2006 15:04"

// Inputs are the computed pieces that make up one report.
type Inputs struct {
	Clan        *model.ClanSnapshot
	War         *model.WarSnapshot
	WarLog      []model.WarLogEntry
	Audit       []model.AuditResult
	Stats       model.AuditStats
	Day         audit.WarDay
	League      audit.League
	TopPlayers  []model.MemberRecord
	GeneratedAt time.Time
}

// Context is the flat structure handed to every template.
type Context struct {
	GeneratedAt  string               `json:"generatedAt"`
	Clan         *model.ClanSnapshot  `json:"clan"`
	War          *model.WarSnapshot   `json:"war"`
	WarLog       []model.WarLogEntry  `json:"warLog"`
	History      []HistoryRow         `json:"history"`
	League       string               `json:"league"`
	LeagueColor  string               `json:"leagueColor"`
	DayName      string               `json:"dayName"`
	WarDay       int                  `json:"warDay"`
	TargetDecks  int                  `json:"targetDecks"`
	WarActive    bool                 `json:"warActive"`
	AuditResults []model.AuditResult  `json:"auditResults"`
	Stats        model.AuditStats     `json:"stats"`
	TopPlayers   []model.MemberRecord `json:"topPlayers"`
	MemberCount  int                  `json:"memberCount"`
}

// HistoryRow is the clan's own line from one war log entry.
type HistoryRow struct {
	SeasonID     int    `json:"seasonId"`
	SectionIndex int    `json:"sectionIndex"`
	CreatedDate  string `json:"createdDate"`
	Rank         int    `json:"rank"`
	Fame         int    `json:"fame"`
	TrophyChange int    `json:"trophyChange"`
	Participants int    `json:"participants"`
}

func Assemble(in Inputs) Context {
	ctx := Context{
		GeneratedAt:  in.GeneratedAt.Format(TimestampLayout),
		Clan:         in.Clan,
		War:          in.War,
		WarLog:       in.WarLog,
		League:       in.League.Name,
		LeagueColor:  in.League.Color,
		DayName:      in.Day.DayName,
		WarDay:       in.Day.WarDayIndex,
		TargetDecks:  in.Day.TargetDecks,
		WarActive:    in.Day.Active,
		AuditResults: in.Audit,
		Stats:        in.Stats,
		TopPlayers:   in.TopPlayers,
	}
	if in.Clan != nil {
		ctx.MemberCount = len(in.Clan.MemberList)
		ctx.History = history(in.Clan.Tag, in.WarLog)
	}
	return ctx
}

func history(tag string, log []model.WarLogEntry) []HistoryRow {
	rows := make([]HistoryRow, 0, len(log))
	for _, e := range log {
		s, ok := e.Standing(tag)
		if !ok {
			continue
		}
		rows = append(rows, HistoryRow{
			SeasonID:     e.SeasonID,
			SectionIndex: e.SectionIndex,
			CreatedDate:  e.CreatedDate,
			Rank:         s.Rank,
			Fame:         s.Clan.Fame,
			TrophyChange: s.TrophyChange,
			Participants: len(s.Clan.Participants),
		})
	}
	return rows
}

// TopPlayers returns up to n members by trophies, highest first; equal
// trophies keep roster order.
func TopPlayers(roster []model.MemberRecord, n int) []model.MemberRecord {
	sorted := slices.Clone(roster)
	slices.SortStableFunc(sorted, func(a, b model.MemberRecord) int {
		return cmp.Compare(b.Trophies, a.Trophies)
	})
	if n < 0 {
		n = 0
	}
	return sorted[:min(n, len(sorted))]
}

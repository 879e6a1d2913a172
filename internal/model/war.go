package model

// WarSnapshot is the /currentriverrace payload. A nil *WarSnapshot means no war data.
type WarSnapshot struct {
	State        string    `json:"state"`
	SectionIndex int       `json:"sectionIndex"`
	PeriodIndex  int       `json:"periodIndex"`
	PeriodType   string    `json:"periodType"`
	Clan         WarClan   `json:"clan"`
	Clans        []WarClan `json:"clans"`
}

type WarClan struct {
	Tag          string              `json:"tag"`
	Name         string              `json:"name"`
	Fame         int                 `json:"fame"`
	RepairPoints int                 `json:"repairPoints"`
	PeriodPoints int                 `json:"periodPoints"`
	ClanScore    int                 `json:"clanScore"`
	FinishTime   string              `json:"finishTime,omitempty"`
	Participants []ParticipantRecord `json:"participants"`
}

type ParticipantRecord struct {
	Tag            string `json:"tag"`
	Name           string `json:"name"`
	Fame           int    `json:"fame"`
	RepairPoints   int    `json:"repairPoints"`
	BoatAttacks    int    `json:"boatAttacks"`
	DecksUsed      int    `json:"decksUsed"`
	DecksUsedToday int    `json:"decksUsedToday"`
}

// WarLogEntry summarizes one finished river race.
type WarLogEntry struct {
	SeasonID     int           `json:"seasonId"`
	SectionIndex int           `json:"sectionIndex"`
	CreatedDate  string        `json:"createdDate"`
	Standings    []WarStanding `json:"standings"`
}

type WarStanding struct {
	Rank         int     `json:"rank"`
	TrophyChange int     `json:"trophyChange"`
	Clan         WarClan `json:"clan"`
}

// Standing returns the standing of the clan with the given tag, if present.
func (e WarLogEntry) Standing(tag string) (WarStanding, bool) {
	for _, s := range e.Standings {
		if s.Clan.Tag == tag {
			return s, true
		}
	}
	return WarStanding{}, false
}

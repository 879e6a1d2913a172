package audit

import "time"

// DecksPerDay is the daily deck quota during an active war day.
const DecksPerDay = 4

// dayNames is indexed Monday=0 … Sunday=6.
var dayNames = [7]string{"Segunda", "Terça", "Quarta", "Quinta", "Sexta", "Sábado", "Domingo"}

// WarDay describes where today falls in the weekly war cycle.
type WarDay struct {
	Weekday     time.Weekday `json:"weekday"`
	DayName     string       `json:"dayName"`
	WarDayIndex int          `json:"warDay"`
	TargetDecks int          `json:"targetDecks"`
	Active      bool         `json:"warActive"`
}

// Today evaluates the war calendar for the local date of now.
func Today(now time.Time) WarDay {
	return ForWeekday(now.Weekday())
}

// ForWeekday maps a weekday onto the Thursday to Sunday war window.
// Monday to Wednesday report the end-of-war position (day 4, 16 decks)
// so the previous war stays viewable until the next one starts.
// TODO: a new war can open during Monday's reset; revisit once the reset
// time is available from the current war payload.
func ForWeekday(wd time.Weekday) WarDay {
	idx := mondayIndex(wd)
	d := WarDay{
		Weekday:     wd,
		DayName:     dayNames[idx],
		WarDayIndex: 4,
		TargetDecks: 4 * DecksPerDay,
	}
	if idx >= 3 {
		d.WarDayIndex = idx - 2
		d.TargetDecks = d.WarDayIndex * DecksPerDay
		d.Active = true
	}
	return d
}

// mondayIndex converts time.Weekday (Sunday=0) to Monday=0 … Sunday=6.
func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

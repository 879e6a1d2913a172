package audit

type League struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

var leagues = []struct {
	min    int
	league League
}{
	{3000, League{"Legendary", "Purple"}},
	{1500, League{"Gold", "Gold"}},
	{600, League{"Silver", "Silver"}},
}

// ClassifyLeague maps clan war trophies to a league, highest threshold first.
func ClassifyLeague(trophies int) League {
	for _, l := range leagues {
		if trophies >= l.min {
			return l.league
		}
	}
	return League{"Bronze", "Bronze"}
}

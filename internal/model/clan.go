package model

// ClanSnapshot is the /clans/{tag} payload reduced to what the reports use.
type ClanSnapshot struct {
	Tag              string         `json:"tag"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	Type             string         `json:"type"`
	BadgeID          int            `json:"badgeId"`
	ClanScore        int            `json:"clanScore"`
	ClanWarTrophies  int            `json:"clanWarTrophies"`
	RequiredTrophies int            `json:"requiredTrophies"`
	DonationsPerWeek int            `json:"donationsPerWeek"`
	Members          int            `json:"members"`
	Location         *Location      `json:"location,omitempty"`
	MemberList       []MemberRecord `json:"memberList"`
}

type Location struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsCountry bool   `json:"isCountry"`
}

// MemberRecord is one roster entry. Tag is the stable key; Role is an opaque label.
type MemberRecord struct {
	Tag               string `json:"tag"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	LastSeen          string `json:"lastSeen"`
	ExpLevel          int    `json:"expLevel"`
	Trophies          int    `json:"trophies"`
	Arena             Arena  `json:"arena"`
	ClanRank          int    `json:"clanRank"`
	PreviousClanRank  int    `json:"previousClanRank"`
	Donations         int    `json:"donations"`
	DonationsReceived int    `json:"donationsReceived"`
}

type Arena struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

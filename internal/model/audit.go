package model

type Status string

const (
	StatusDanger  Status = "danger"
	StatusWarning Status = "warning"
	StatusSuccess Status = "success"
)

// Rank orders statuses for display, most urgent first.
func (s Status) Rank() int {
	switch s {
	case StatusDanger:
		return 0
	case StatusWarning:
		return 1
	default:
		return 2
	}
}

func (s Status) Label() string {
	switch s {
	case StatusDanger:
		return "ZERADO"
	case StatusWarning:
		return "ATRASADO"
	default:
		return "OK"
	}
}

type AuditResult struct {
	Name        string `json:"name"`
	Tag         string `json:"tag"`
	Role        string `json:"role"`
	DecksUsed   int    `json:"decksUsed"`
	Missing     int    `json:"missing"`
	StatusClass Status `json:"statusClass"`
	StatusLabel string `json:"statusLabel"`
}

type AuditStats struct {
	OnTrack    int `json:"onTrack"`
	Warning    int `json:"warning"`
	Danger     int `json:"danger"`
	Incomplete int `json:"incomplete"`
	Zero       int `json:"zero"`
}

func (s AuditStats) Total() int { return s.OnTrack + s.Warning + s.Danger }

package models

// BroadcastAudience выбирает получателей рассылки.
type BroadcastAudience string

const (
	AudienceAll      BroadcastAudience = "all"
	AudienceApproved BroadcastAudience = "approved"
	AudiencePending  BroadcastAudience = "pending"
)

// BroadcastProgress is a running snapshot of an in-flight broadcast job.
type BroadcastProgress struct {
	Sent      int `json:"sent"`
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// BroadcastReport is the final tally of a finished broadcast job.
type BroadcastReport struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

type Stats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}

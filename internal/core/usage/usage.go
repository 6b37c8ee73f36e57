package usage

import "time"

// Action is a counted user action.
type Action string

const (
	ActionResolve  Action = "resolve"
	ActionDownload Action = "download"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ActionResolve || a == ActionDownload
}

// Counter is the running total for one session, action and service.
type Counter struct {
	UpdatedAt time.Time `json:"updatedAt"`
	SessionID string    `json:"-"`
	Action    Action    `json:"action"`
	Service   string    `json:"service"`
	Count     int64     `json:"count"`
}

// Stats summarizes a session's counters.
type Stats struct {
	ByService map[string]int64 `json:"byService"`
	SessionID string           `json:"-"`
	Counters  []Counter        `json:"counters"`
	Resolves  int64            `json:"resolves"`
	Downloads int64            `json:"downloads"`
}

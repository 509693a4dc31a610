package alert

import (
	"time"

	"github.com/matchwatch/livealert/internal/domain/snapshot"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusGreen   Status = "green"
	StatusRed     Status = "red"
)

// Alert is one firing of a rule against a match. At most one alert ever
// exists per (rule, game) pair; storage enforces the uniqueness.
type Alert struct {
	ID     int64
	RuleID int64
	UserID int64
	GameID string

	League   string
	HomeTeam string
	AwayTeam string
	GameURL  string

	// Match state at fire time.
	Minute     *int
	Score      string
	MatchedGrp int

	Status      Status
	Reversed    bool
	FTCompleted bool

	// Result fields, set on resolution.
	ResultMinute    *int
	ResultTimeOfDay string
	ResultScore     string

	// Running score as of the latest poll, used to spot a score going
	// backwards after resolution. Cleared fields mean no poll seen yet.
	LastScore       string
	LastScoreMinute *int

	// Stats captured when the alert fired, at resolution, and the final
	// observed stats at full time.
	StatsAtAlert  snapshot.Stats
	StatsAtResult snapshot.Stats
	StatsFinal    snapshot.Stats

	// Penalty counts already seen, per side, plus whether the single
	// penalty notification for this alert has gone out.
	PenaltySeenHome int
	PenaltySeenAway int
	PenaltyNotified bool

	CreatedAt  time.Time
	ResolvedAt *time.Time
	UpdatedAt  time.Time
}

// Open reports whether the alert still needs follow-up.
func (a Alert) Open() bool {
	return a.Status == StatusPending || !a.FTCompleted
}

// Resolve stamps a terminal status. Repeated calls with a new status model
// reversal: the Reversed flag records that the first verdict flipped.
func (a *Alert) Resolve(status Status, minute *int, score string, at time.Time) {
	if a.Status != StatusPending && a.Status != status {
		a.Reversed = true
	}
	a.Status = status
	a.ResultMinute = minute
	a.ResultScore = score
	t := at
	a.ResolvedAt = &t
}

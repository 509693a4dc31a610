package rule

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/matchwatch/livealert/internal/domain/snapshot"
)

const (
	OutcomeGreen = "green"
	OutcomeRed   = "red"

	StageHalfTime = "HT"
	StageFullTime = "FT"
)

// TriggerCondition is one comparison against a live statistic. Conditions
// sharing a GroupID are AND-combined; the rule fires when any group holds.
type TriggerCondition struct {
	ID       int64
	StatKey  string        `validate:"required"`
	Side     snapshot.Side `validate:"oneof=home away total"`
	Operator string        `validate:"oneof=>= > == <= <"`
	Value    int
	GroupID  int
}

// OutcomeCondition decides an open alert's result after it fired.
type OutcomeCondition struct {
	ID       int64
	Outcome  string        `validate:"oneof=green red"`
	StatKey  string        `validate:"required"`
	Side     snapshot.Side `validate:"oneof=home away total"`
	Operator string        `validate:"oneof=>= > == <= <"`
	Value    int
}

// Rule is one user-defined alert definition.
type Rule struct {
	ID              int64
	UserID          int64
	Name            string
	IsActive        bool
	TimeLimitMin    int
	SecondHalfOnly  bool
	ExcludeYouth    bool
	AlertOnPenalty  bool
	NotifyTelegram  bool
	MessageTemplate string

	// Optional required score at alert time. Nil means any.
	ScoreHome *int
	ScoreAway *int

	// Stage markers for outcome evaluation.
	OutcomeGreenStage string
	OutcomeRedStage   string

	// Red-by-deadline policy: once the match reaches OutcomeRedMinute with
	// no green, the alert resolves red.
	OutcomeRedMinute    *int
	OutcomeRedIfNoGreen bool

	Conditions        []TriggerCondition
	OutcomeConditions []OutcomeCondition

	CreatedAt     time.Time
	LastCheckedAt *time.Time
	LastMatchDesc string
	LastAlertAt   *time.Time
	LastAlertDesc string
}

// Groups partitions trigger conditions by group id, preserving insert order
// inside each group.
func (r Rule) Groups() map[int][]TriggerCondition {
	groups := make(map[int][]TriggerCondition)
	for _, cond := range r.Conditions {
		groups[cond.GroupID] = append(groups[cond.GroupID], cond)
	}
	return groups
}

func (r Rule) GreenConditions() []OutcomeCondition {
	return r.outcomes(OutcomeGreen)
}

func (r Rule) RedConditions() []OutcomeCondition {
	return r.outcomes(OutcomeRed)
}

func (r Rule) outcomes(kind string) []OutcomeCondition {
	out := make([]OutcomeCondition, 0, len(r.OutcomeConditions))
	for _, cond := range r.OutcomeConditions {
		if cond.Outcome == kind {
			out = append(out, cond)
		}
	}
	return out
}

var validate = validator.New()

// Validate checks that a rule loaded from storage has well-formed
// conditions. Rules authored through the web UI should always pass; this
// guards against hand-edited rows.
func Validate(r Rule) error {
	for _, cond := range r.Conditions {
		if err := validate.Struct(cond); err != nil {
			return err
		}
	}
	for _, cond := range r.OutcomeConditions {
		if err := validate.Struct(cond); err != nil {
			return err
		}
	}
	return nil
}

package rule

import (
	"context"
	"time"
)

// Repository loads rules and records bookkeeping about when they last ran.
type Repository interface {
	ListActive(ctx context.Context) ([]Rule, error)
	GetByID(ctx context.Context, id int64) (*Rule, error)
	// TouchChecked records that the rule was evaluated against a match.
	TouchChecked(ctx context.Context, ruleID int64, at time.Time, matchDesc string) error
	// TouchAlerted records that the rule produced an alert.
	TouchAlerted(ctx context.Context, ruleID int64, at time.Time, alertDesc string) error
}

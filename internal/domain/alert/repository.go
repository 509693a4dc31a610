package alert

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrDuplicateAlert is returned by Create when an alert for the same
// (rule, game) pair already exists. Callers treat it as "already fired",
// not a failure.
var ErrDuplicateAlert = errors.New("alert: duplicate rule/game pair")

type Repository interface {
	// Create persists a new alert. Returns ErrDuplicateAlert if one already
	// exists for the same rule and game.
	Create(ctx context.Context, a *Alert) error
	Exists(ctx context.Context, ruleID int64, gameID string) (bool, error)
	GetByID(ctx context.Context, id int64) (*Alert, error)
	// ListUnfinalized returns alerts still needing follow-up: pending ones
	// and resolved ones whose full-time pass has not run.
	ListUnfinalized(ctx context.Context) ([]Alert, error)
	ListRecent(ctx context.Context, limit int) ([]Alert, error)
	Update(ctx context.Context, a *Alert) error
	// RecentStatuses returns the statuses of the rule's most recent resolved
	// alerts, newest first, capped at limit.
	RecentStatuses(ctx context.Context, ruleID int64, limit int) ([]Status, error)
}

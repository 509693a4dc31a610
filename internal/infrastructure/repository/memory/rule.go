package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/matchwatch/livealert/internal/domain/rule"
)

// RuleRepository is an in-memory rule store, used when no database is
// configured and as the test double.
type RuleRepository struct {
	mu     sync.RWMutex
	rules  map[int64]rule.Rule
	nextID int64
}

func NewRuleRepository() *RuleRepository {
	return &RuleRepository{rules: make(map[int64]rule.Rule, 16), nextID: 1}
}

// Seed inserts a rule, assigning an id when absent.
func (r *RuleRepository) Seed(item rule.Rule) rule.Rule {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.ID == 0 {
		item.ID = r.nextID
		r.nextID++
	} else if item.ID >= r.nextID {
		r.nextID = item.ID + 1
	}
	r.rules[item.ID] = cloneRule(item)
	return item
}

func (r *RuleRepository) ListActive(_ context.Context) ([]rule.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]rule.Rule, 0, len(r.rules))
	for _, item := range r.rules {
		if item.IsActive {
			out = append(out, cloneRule(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RuleRepository) GetByID(_ context.Context, id int64) (*rule.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.rules[id]
	if !ok {
		return nil, crerr.Newf("rule %d not found", id)
	}
	cloned := cloneRule(item)
	return &cloned, nil
}

func (r *RuleRepository) TouchChecked(_ context.Context, ruleID int64, at time.Time, matchDesc string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.rules[ruleID]
	if !ok {
		return crerr.Newf("rule %d not found", ruleID)
	}
	t := at
	item.LastCheckedAt = &t
	item.LastMatchDesc = matchDesc
	r.rules[ruleID] = item
	return nil
}

func (r *RuleRepository) TouchAlerted(_ context.Context, ruleID int64, at time.Time, alertDesc string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.rules[ruleID]
	if !ok {
		return crerr.Newf("rule %d not found", ruleID)
	}
	t := at
	item.LastAlertAt = &t
	item.LastAlertDesc = alertDesc
	r.rules[ruleID] = item
	return nil
}

func cloneRule(item rule.Rule) rule.Rule {
	out := item
	out.Conditions = append([]rule.TriggerCondition(nil), item.Conditions...)
	out.OutcomeConditions = append([]rule.OutcomeCondition(nil), item.OutcomeConditions...)
	if item.ScoreHome != nil {
		v := *item.ScoreHome
		out.ScoreHome = &v
	}
	if item.ScoreAway != nil {
		v := *item.ScoreAway
		out.ScoreAway = &v
	}
	if item.OutcomeRedMinute != nil {
		v := *item.OutcomeRedMinute
		out.OutcomeRedMinute = &v
	}
	if item.LastCheckedAt != nil {
		v := *item.LastCheckedAt
		out.LastCheckedAt = &v
	}
	if item.LastAlertAt != nil {
		v := *item.LastAlertAt
		out.LastAlertAt = &v
	}
	return out
}

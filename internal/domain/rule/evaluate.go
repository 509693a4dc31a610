package rule

import (
	"sort"

	"github.com/matchwatch/livealert/internal/domain/snapshot"
)

// Compare applies op to observed vs target. Unknown operators never match.
func Compare(observed int, op string, target int) bool {
	switch op {
	case ">=":
		return observed >= target
	case ">":
		return observed > target
	case "==":
		return observed == target
	case "<=":
		return observed <= target
	case "<":
		return observed < target
	default:
		return false
	}
}

// Evaluate reports whether the rule's trigger fires against the given stats,
// and which condition group matched. Groups are OR-combined; within a group
// every condition must hold. A condition whose statistic is absent from the
// snapshot fails the whole group: a missing value is unknown, not zero.
func Evaluate(r Rule, stats snapshot.Stats) (bool, int) {
	groups := r.Groups()
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		if matchAll(groups[id], stats) {
			return true, id
		}
	}
	return false, 0
}

func matchAll(conds []TriggerCondition, stats snapshot.Stats) bool {
	if len(conds) == 0 {
		return false
	}
	for _, cond := range conds {
		observed, ok := stats.Value(snapshot.Key(cond.StatKey), cond.Side)
		if !ok {
			return false
		}
		if !Compare(observed, cond.Operator, cond.Value) {
			return false
		}
	}
	return true
}

// EvaluateOutcomes reports whether every condition of the given outcome set
// holds. Empty sets never match. Missing statistics fail closed, same as
// trigger evaluation.
func EvaluateOutcomes(conds []OutcomeCondition, stats snapshot.Stats) bool {
	if len(conds) == 0 {
		return false
	}
	for _, cond := range conds {
		observed, ok := stats.Value(snapshot.Key(cond.StatKey), cond.Side)
		if !ok {
			return false
		}
		if !Compare(observed, cond.Operator, cond.Value) {
			return false
		}
	}
	return true
}

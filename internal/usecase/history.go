package usecase

import (
	"fmt"
	"math"

	"github.com/matchwatch/livealert/internal/domain/rule"
	"github.com/matchwatch/livealert/internal/domain/snapshot"
)

// HistoryItem is one past match reduced to its goal counts.
type HistoryItem struct {
	Home  int
	Away  int
	Total int
}

// MatchHistory groups a fixture's past matches: head-to-head meetings plus
// each team's recent games.
type MatchHistory struct {
	H2H  []HistoryItem
	Home []HistoryItem
	Away []HistoryItem
}

// HistorySummary aggregates a set of past matches into the figures shown in
// alert messages.
type HistorySummary struct {
	Games      int
	AvgGoals   float64
	OverOneCnt int
	BothScored int
}

// SummarizeHistory reduces past matches to a summary, or nil when there is
// nothing to summarize.
func SummarizeHistory(items []HistoryItem) *HistorySummary {
	if len(items) == 0 {
		return nil
	}
	s := &HistorySummary{Games: len(items)}
	total := 0
	for _, it := range items {
		total += it.Total
		if it.Total >= 2 {
			s.OverOneCnt++
		}
		if it.Home > 0 && it.Away > 0 {
			s.BothScored++
		}
	}
	s.AvgGoals = float64(total) / float64(len(items))
	return s
}

// FormatHistorySummary renders one summary line, e.g.
// "H2H: 6 games, 2.3 goals avg, 67% over 1.5, 50% both scored".
func FormatHistorySummary(label string, s *HistorySummary) string {
	if s == nil || s.Games == 0 {
		return ""
	}
	pct := func(n int) int {
		return int(math.Round(100 * float64(n) / float64(s.Games)))
	}
	return fmt.Sprintf("%s: %d games, %.1f goals avg, %d%% over 1.5, %d%% both scored",
		label, s.Games, s.AvgGoals, pct(s.OverOneCnt), pct(s.BothScored))
}

// HistoryConfidence reports how often the given goal conditions held across
// past matches, as a rounded percentage. It only applies when every
// condition reads the Goals statistic with a known side and operator;
// anything else reports no confidence at all rather than a misleading one.
func HistoryConfidence(conds []rule.OutcomeCondition, items []HistoryItem) (int, bool) {
	if len(conds) == 0 || len(items) == 0 {
		return 0, false
	}
	for _, c := range conds {
		if snapshot.Normalize(c.StatKey) != snapshot.KeyGoals {
			return 0, false
		}
		switch c.Side {
		case snapshot.SideHome, snapshot.SideAway, snapshot.SideTotal:
		default:
			return 0, false
		}
		switch c.Operator {
		case ">=", ">", "==", "<=", "<":
		default:
			return 0, false
		}
	}

	hits := 0
	for _, it := range items {
		all := true
		for _, c := range conds {
			observed := it.Total
			switch c.Side {
			case snapshot.SideHome:
				observed = it.Home
			case snapshot.SideAway:
				observed = it.Away
			}
			if !rule.Compare(observed, c.Operator, c.Value) {
				all = false
				break
			}
		}
		if all {
			hits++
		}
	}
	return int(math.Round(100 * float64(hits) / float64(len(items)))), true
}

// historyConditions picks the conditions confidence is judged against: the
// rule's green outcome conditions, falling back to its trigger.
func historyConditions(r *rule.Rule) []rule.OutcomeCondition {
	if green := r.GreenConditions(); len(green) > 0 {
		return green
	}
	out := make([]rule.OutcomeCondition, 0, len(r.Conditions))
	for _, c := range r.Conditions {
		out = append(out, rule.OutcomeCondition{
			StatKey:  c.StatKey,
			Side:     c.Side,
			Operator: c.Operator,
			Value:    c.Value,
		})
	}
	return out
}

// HistoryInsight is the rendered history block for one alert message. Empty
// fields mean the corresponding data was unavailable.
type HistoryInsight struct {
	H2H        string
	Home       string
	Away       string
	Confidence string
}

func (h HistoryInsight) IsZero() bool {
	return h == HistoryInsight{}
}

// Placeholders exposes the history lines to user message templates.
func (h HistoryInsight) Placeholders(data map[string]string) {
	data["history_h2h"] = h.H2H
	data["history_home"] = h.Home
	data["history_away"] = h.Away
	data["history_confidence"] = h.Confidence
}

// BuildHistoryInsight folds a fixture's match history into message lines.
func BuildHistoryInsight(mh *MatchHistory, conds []rule.OutcomeCondition) HistoryInsight {
	if mh == nil {
		return HistoryInsight{}
	}
	var out HistoryInsight
	if line := FormatHistorySummary("H2H", SummarizeHistory(mh.H2H)); line != "" {
		out.H2H = line
	} else {
		out.H2H = "No head-to-head history"
	}
	out.Home = FormatHistorySummary("Home", SummarizeHistory(mh.Home))
	out.Away = FormatHistorySummary("Away", SummarizeHistory(mh.Away))

	pool := make([]HistoryItem, 0, len(mh.H2H)+len(mh.Home)+len(mh.Away))
	pool = append(pool, mh.H2H...)
	pool = append(pool, mh.Home...)
	pool = append(pool, mh.Away...)
	if pct, ok := HistoryConfidence(conds, pool); ok {
		out.Confidence = fmt.Sprintf("History confidence: %d%% of %d past matches", pct, len(pool))
	}
	return out
}

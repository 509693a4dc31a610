package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/matchwatch/livealert/internal/domain/rule"
	"github.com/matchwatch/livealert/internal/domain/snapshot"
)

type ruleTableModel struct {
	ID              int64  `db:"id"`
	UserID          int64  `db:"user_id"`
	Name            string `db:"name"`
	IsActive        bool   `db:"is_active"`
	TimeLimitMin    int    `db:"time_limit_min"`
	SecondHalfOnly  bool   `db:"second_half_only"`
	ExcludeYouth    bool   `db:"exclude_youth"`
	AlertOnPenalty  bool   `db:"alert_on_penalty"`
	NotifyTelegram  bool   `db:"notify_telegram"`
	MessageTemplate string `db:"message_template"`

	ScoreHome sql.NullInt64 `db:"score_home"`
	ScoreAway sql.NullInt64 `db:"score_away"`

	OutcomeGreenStage   string        `db:"outcome_green_stage"`
	OutcomeRedStage     string        `db:"outcome_red_stage"`
	OutcomeRedMinute    sql.NullInt64 `db:"outcome_red_minute"`
	OutcomeRedIfNoGreen bool          `db:"outcome_red_if_no_green"`

	TriggerConditions []byte `db:"trigger_conditions"`
	OutcomeConditions []byte `db:"outcome_conditions"`

	CreatedAt     time.Time  `db:"created_at"`
	LastCheckedAt *time.Time `db:"last_checked_at"`
	LastMatchDesc string     `db:"last_match_desc"`
	LastAlertAt   *time.Time `db:"last_alert_at"`
	LastAlertDesc string     `db:"last_alert_desc"`
}

type triggerConditionJSON struct {
	ID       int64  `json:"id"`
	StatKey  string `json:"stat_key"`
	Side     string `json:"side"`
	Operator string `json:"operator"`
	Value    int    `json:"value"`
	GroupID  int    `json:"group_id"`
}

type outcomeConditionJSON struct {
	ID       int64  `json:"id"`
	Outcome  string `json:"outcome"`
	StatKey  string `json:"stat_key"`
	Side     string `json:"side"`
	Operator string `json:"operator"`
	Value    int    `json:"value"`
}

func ruleFromRow(row ruleTableModel) (rule.Rule, error) {
	out := rule.Rule{
		ID:                  row.ID,
		UserID:              row.UserID,
		Name:                row.Name,
		IsActive:            row.IsActive,
		TimeLimitMin:        row.TimeLimitMin,
		SecondHalfOnly:      row.SecondHalfOnly,
		ExcludeYouth:        row.ExcludeYouth,
		AlertOnPenalty:      row.AlertOnPenalty,
		NotifyTelegram:      row.NotifyTelegram,
		MessageTemplate:     row.MessageTemplate,
		ScoreHome:           intPtr(row.ScoreHome),
		ScoreAway:           intPtr(row.ScoreAway),
		OutcomeGreenStage:   row.OutcomeGreenStage,
		OutcomeRedStage:     row.OutcomeRedStage,
		OutcomeRedMinute:    intPtr(row.OutcomeRedMinute),
		OutcomeRedIfNoGreen: row.OutcomeRedIfNoGreen,
		CreatedAt:           row.CreatedAt,
		LastCheckedAt:       row.LastCheckedAt,
		LastMatchDesc:       row.LastMatchDesc,
		LastAlertAt:         row.LastAlertAt,
		LastAlertDesc:       row.LastAlertDesc,
	}

	if len(row.TriggerConditions) > 0 {
		var conds []triggerConditionJSON
		if err := sonic.Unmarshal(row.TriggerConditions, &conds); err != nil {
			return rule.Rule{}, fmt.Errorf("decode trigger conditions for rule %d: %w", row.ID, err)
		}
		out.Conditions = make([]rule.TriggerCondition, 0, len(conds))
		for _, c := range conds {
			out.Conditions = append(out.Conditions, rule.TriggerCondition{
				ID:       c.ID,
				StatKey:  c.StatKey,
				Side:     snapshot.Side(c.Side),
				Operator: c.Operator,
				Value:    c.Value,
				GroupID:  c.GroupID,
			})
		}
	}

	if len(row.OutcomeConditions) > 0 {
		var conds []outcomeConditionJSON
		if err := sonic.Unmarshal(row.OutcomeConditions, &conds); err != nil {
			return rule.Rule{}, fmt.Errorf("decode outcome conditions for rule %d: %w", row.ID, err)
		}
		out.OutcomeConditions = make([]rule.OutcomeCondition, 0, len(conds))
		for _, c := range conds {
			out.OutcomeConditions = append(out.OutcomeConditions, rule.OutcomeCondition{
				ID:       c.ID,
				Outcome:  c.Outcome,
				StatKey:  c.StatKey,
				Side:     snapshot.Side(c.Side),
				Operator: c.Operator,
				Value:    c.Value,
			})
		}
	}

	return out, nil
}

func encodeTriggerConditions(conds []rule.TriggerCondition) ([]byte, error) {
	out := make([]triggerConditionJSON, 0, len(conds))
	for _, c := range conds {
		out = append(out, triggerConditionJSON{
			ID:       c.ID,
			StatKey:  c.StatKey,
			Side:     string(c.Side),
			Operator: c.Operator,
			Value:    c.Value,
			GroupID:  c.GroupID,
		})
	}
	return sonic.Marshal(out)
}

func encodeOutcomeConditions(conds []rule.OutcomeCondition) ([]byte, error) {
	out := make([]outcomeConditionJSON, 0, len(conds))
	for _, c := range conds {
		out = append(out, outcomeConditionJSON{
			ID:       c.ID,
			Outcome:  c.Outcome,
			StatKey:  c.StatKey,
			Side:     string(c.Side),
			Operator: c.Operator,
			Value:    c.Value,
		})
	}
	return sonic.Marshal(out)
}

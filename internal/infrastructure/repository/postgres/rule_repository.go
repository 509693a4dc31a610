package postgres

import (
	"context"
	"fmt"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/matchwatch/livealert/internal/domain/rule"
)

const ruleColumns = `id, user_id, name, is_active, time_limit_min, second_half_only,
exclude_youth, alert_on_penalty, notify_telegram, message_template,
score_home, score_away,
outcome_green_stage, outcome_red_stage, outcome_red_minute, outcome_red_if_no_green,
trigger_conditions, outcome_conditions,
created_at, last_checked_at, last_match_desc, last_alert_at, last_alert_desc`

type RuleRepository struct {
	db *sqlx.DB
}

func NewRuleRepository(db *sqlx.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) ListActive(ctx context.Context) ([]rule.Rule, error) {
	query := fmt.Sprintf(`SELECT %s FROM rules WHERE is_active = TRUE ORDER BY id`, ruleColumns)

	var rows []ruleTableModel
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("select active rules: %w", err)
	}

	out := make([]rule.Rule, 0, len(rows))
	for _, row := range rows {
		decoded, err := ruleFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded)
	}
	return out, nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id int64) (*rule.Rule, error) {
	query := fmt.Sprintf(`SELECT %s FROM rules WHERE id = $1`, ruleColumns)

	var row ruleTableModel
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if isNotFound(err) {
			return nil, crerr.Newf("rule %d not found", id)
		}
		return nil, fmt.Errorf("get rule %d: %w", id, err)
	}

	decoded, err := ruleFromRow(row)
	if err != nil {
		return nil, err
	}
	return &decoded, nil
}

func (r *RuleRepository) TouchChecked(ctx context.Context, ruleID int64, at time.Time, matchDesc string) error {
	query := `UPDATE rules SET last_checked_at = $1, last_match_desc = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, at, matchDesc, ruleID); err != nil {
		return fmt.Errorf("touch rule %d checked: %w", ruleID, err)
	}
	return nil
}

func (r *RuleRepository) TouchAlerted(ctx context.Context, ruleID int64, at time.Time, alertDesc string) error {
	query := `UPDATE rules SET last_alert_at = $1, last_alert_desc = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, at, alertDesc, ruleID); err != nil {
		return fmt.Errorf("touch rule %d alerted: %w", ruleID, err)
	}
	return nil
}

// Save inserts or updates a rule definition. Used by seeding and by
// administrative tooling, not by the monitor loop.
func (r *RuleRepository) Save(ctx context.Context, rl *rule.Rule) error {
	triggers, err := encodeTriggerConditions(rl.Conditions)
	if err != nil {
		return fmt.Errorf("encode trigger conditions: %w", err)
	}
	outcomes, err := encodeOutcomeConditions(rl.OutcomeConditions)
	if err != nil {
		return fmt.Errorf("encode outcome conditions: %w", err)
	}

	if rl.ID == 0 {
		query := `INSERT INTO rules (
user_id, name, is_active, time_limit_min, second_half_only,
exclude_youth, alert_on_penalty, notify_telegram, message_template,
score_home, score_away,
outcome_green_stage, outcome_red_stage, outcome_red_minute, outcome_red_if_no_green,
trigger_conditions, outcome_conditions, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
RETURNING id`
		err := r.db.QueryRowxContext(ctx, query,
			rl.UserID, rl.Name, rl.IsActive, rl.TimeLimitMin, rl.SecondHalfOnly,
			rl.ExcludeYouth, rl.AlertOnPenalty, rl.NotifyTelegram, rl.MessageTemplate,
			nullInt(rl.ScoreHome), nullInt(rl.ScoreAway),
			rl.OutcomeGreenStage, rl.OutcomeRedStage, nullInt(rl.OutcomeRedMinute), rl.OutcomeRedIfNoGreen,
			triggers, outcomes, rl.CreatedAt,
		).Scan(&rl.ID)
		if err != nil {
			return fmt.Errorf("insert rule: %w", err)
		}
		return nil
	}

	query := `UPDATE rules SET
user_id = $1, name = $2, is_active = $3, time_limit_min = $4, second_half_only = $5,
exclude_youth = $6, alert_on_penalty = $7, notify_telegram = $8, message_template = $9,
score_home = $10, score_away = $11,
outcome_green_stage = $12, outcome_red_stage = $13, outcome_red_minute = $14, outcome_red_if_no_green = $15,
trigger_conditions = $16, outcome_conditions = $17
WHERE id = $18`
	if _, err := r.db.ExecContext(ctx, query,
		rl.UserID, rl.Name, rl.IsActive, rl.TimeLimitMin, rl.SecondHalfOnly,
		rl.ExcludeYouth, rl.AlertOnPenalty, rl.NotifyTelegram, rl.MessageTemplate,
		nullInt(rl.ScoreHome), nullInt(rl.ScoreAway),
		rl.OutcomeGreenStage, rl.OutcomeRedStage, nullInt(rl.OutcomeRedMinute), rl.OutcomeRedIfNoGreen,
		triggers, outcomes, rl.ID,
	); err != nil {
		return fmt.Errorf("update rule %d: %w", rl.ID, err)
	}
	return nil
}

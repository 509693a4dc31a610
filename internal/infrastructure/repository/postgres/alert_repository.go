package postgres

import (
	"context"
	"fmt"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/matchwatch/livealert/internal/domain/alert"
)

const alertColumns = `id, rule_id, user_id, game_id, league, home_team, away_team, game_url,
minute, score, matched_group, status, reversed, ft_completed,
result_minute, result_time_of_day, result_score, last_score, last_score_minute,
stats_at_alert, stats_at_result, stats_final,
penalty_seen_home, penalty_seen_away, penalty_notified,
created_at, resolved_at, updated_at`

type AlertRepository struct {
	db *sqlx.DB
}

func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, a *alert.Alert) error {
	statsAtAlert, err := encodeStatsColumn(a.StatsAtAlert)
	if err != nil {
		return fmt.Errorf("encode stats_at_alert: %w", err)
	}
	statsAtResult, err := encodeStatsColumn(a.StatsAtResult)
	if err != nil {
		return fmt.Errorf("encode stats_at_result: %w", err)
	}
	statsFinal, err := encodeStatsColumn(a.StatsFinal)
	if err != nil {
		return fmt.Errorf("encode stats_final: %w", err)
	}

	query := `INSERT INTO alerts (
rule_id, user_id, game_id, league, home_team, away_team, game_url,
minute, score, matched_group, status, reversed, ft_completed,
result_minute, result_time_of_day, result_score, last_score, last_score_minute,
stats_at_alert, stats_at_result, stats_final,
penalty_seen_home, penalty_seen_away, penalty_notified,
created_at, resolved_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
$19, $20, $21, $22, $23, $24, $25, $26, $27)
RETURNING id`

	err = r.db.QueryRowxContext(ctx, query,
		a.RuleID, a.UserID, a.GameID, a.League, a.HomeTeam, a.AwayTeam, a.GameURL,
		nullInt(a.Minute), a.Score, a.MatchedGrp, string(a.Status), a.Reversed, a.FTCompleted,
		nullInt(a.ResultMinute), a.ResultTimeOfDay, a.ResultScore, a.LastScore, nullInt(a.LastScoreMinute),
		statsAtAlert, statsAtResult, statsFinal,
		a.PenaltySeenHome, a.PenaltySeenAway, a.PenaltyNotified,
		a.CreatedAt, a.ResolvedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return alert.ErrDuplicateAlert
		}
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *AlertRepository) Exists(ctx context.Context, ruleID int64, gameID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM alerts WHERE rule_id = $1 AND game_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, ruleID, gameID); err != nil {
		return false, fmt.Errorf("check alert exists: %w", err)
	}
	return exists, nil
}

func (r *AlertRepository) GetByID(ctx context.Context, id int64) (*alert.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE id = $1`, alertColumns)

	var row alertTableModel
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if isNotFound(err) {
			return nil, crerr.Newf("alert %d not found", id)
		}
		return nil, fmt.Errorf("get alert %d: %w", id, err)
	}

	decoded, err := alertFromRow(row)
	if err != nil {
		return nil, err
	}
	return &decoded, nil
}

func (r *AlertRepository) ListUnfinalized(ctx context.Context) ([]alert.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts
WHERE status = 'pending' OR ft_completed = FALSE
ORDER BY id`, alertColumns)

	var rows []alertTableModel
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("select unfinalized alerts: %w", err)
	}
	return alertsFromRows(rows)
}

func (r *AlertRepository) ListRecent(ctx context.Context, limit int) ([]alert.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts ORDER BY id DESC LIMIT $1`, alertColumns)

	var rows []alertTableModel
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("select recent alerts: %w", err)
	}
	return alertsFromRows(rows)
}

func (r *AlertRepository) Update(ctx context.Context, a *alert.Alert) error {
	statsAtAlert, err := encodeStatsColumn(a.StatsAtAlert)
	if err != nil {
		return fmt.Errorf("encode stats_at_alert: %w", err)
	}
	statsAtResult, err := encodeStatsColumn(a.StatsAtResult)
	if err != nil {
		return fmt.Errorf("encode stats_at_result: %w", err)
	}
	statsFinal, err := encodeStatsColumn(a.StatsFinal)
	if err != nil {
		return fmt.Errorf("encode stats_final: %w", err)
	}

	query := `UPDATE alerts SET
status = $1, reversed = $2, ft_completed = $3,
result_minute = $4, result_time_of_day = $5, result_score = $6,
last_score = $7, last_score_minute = $8,
stats_at_alert = $9, stats_at_result = $10, stats_final = $11,
penalty_seen_home = $12, penalty_seen_away = $13, penalty_notified = $14,
resolved_at = $15, updated_at = $16
WHERE id = $17`
	if _, err := r.db.ExecContext(ctx, query,
		string(a.Status), a.Reversed, a.FTCompleted,
		nullInt(a.ResultMinute), a.ResultTimeOfDay, a.ResultScore,
		a.LastScore, nullInt(a.LastScoreMinute),
		statsAtAlert, statsAtResult, statsFinal,
		a.PenaltySeenHome, a.PenaltySeenAway, a.PenaltyNotified,
		a.ResolvedAt, a.UpdatedAt, a.ID,
	); err != nil {
		return fmt.Errorf("update alert %d: %w", a.ID, err)
	}
	return nil
}

func (r *AlertRepository) RecentStatuses(ctx context.Context, ruleID int64, limit int) ([]alert.Status, error) {
	query := `SELECT status FROM alerts
WHERE rule_id = $1 AND status <> 'pending'
ORDER BY id DESC LIMIT $2`

	var raw []string
	if err := r.db.SelectContext(ctx, &raw, query, ruleID, limit); err != nil {
		return nil, fmt.Errorf("select recent statuses for rule %d: %w", ruleID, err)
	}

	out := make([]alert.Status, 0, len(raw))
	for _, s := range raw {
		out = append(out, alert.Status(s))
	}
	return out, nil
}

func alertsFromRows(rows []alertTableModel) ([]alert.Alert, error) {
	out := make([]alert.Alert, 0, len(rows))
	for _, row := range rows {
		decoded, err := alertFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded)
	}
	return out, nil
}

package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/matchwatch/livealert/internal/domain/alert"
	"github.com/matchwatch/livealert/internal/domain/snapshot"
)

type alertTableModel struct {
	ID     int64  `db:"id"`
	RuleID int64  `db:"rule_id"`
	UserID int64  `db:"user_id"`
	GameID string `db:"game_id"`

	League   string `db:"league"`
	HomeTeam string `db:"home_team"`
	AwayTeam string `db:"away_team"`
	GameURL  string `db:"game_url"`

	Minute     sql.NullInt64 `db:"minute"`
	Score      string        `db:"score"`
	MatchedGrp int           `db:"matched_group"`

	Status      string `db:"status"`
	Reversed    bool   `db:"reversed"`
	FTCompleted bool   `db:"ft_completed"`

	ResultMinute    sql.NullInt64 `db:"result_minute"`
	ResultTimeOfDay string        `db:"result_time_of_day"`
	ResultScore     string        `db:"result_score"`

	LastScore       string        `db:"last_score"`
	LastScoreMinute sql.NullInt64 `db:"last_score_minute"`

	StatsAtAlert  sql.NullString `db:"stats_at_alert"`
	StatsAtResult sql.NullString `db:"stats_at_result"`
	StatsFinal    sql.NullString `db:"stats_final"`

	PenaltySeenHome int  `db:"penalty_seen_home"`
	PenaltySeenAway int  `db:"penalty_seen_away"`
	PenaltyNotified bool `db:"penalty_notified"`

	CreatedAt  time.Time  `db:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

func alertFromRow(row alertTableModel) (alert.Alert, error) {
	out := alert.Alert{
		ID:              row.ID,
		RuleID:          row.RuleID,
		UserID:          row.UserID,
		GameID:          row.GameID,
		League:          row.League,
		HomeTeam:        row.HomeTeam,
		AwayTeam:        row.AwayTeam,
		GameURL:         row.GameURL,
		Minute:          intPtr(row.Minute),
		Score:           row.Score,
		MatchedGrp:      row.MatchedGrp,
		Status:          alert.Status(row.Status),
		Reversed:        row.Reversed,
		FTCompleted:     row.FTCompleted,
		ResultMinute:    intPtr(row.ResultMinute),
		ResultTimeOfDay: row.ResultTimeOfDay,
		ResultScore:     row.ResultScore,
		LastScore:       row.LastScore,
		LastScoreMinute: intPtr(row.LastScoreMinute),
		PenaltySeenHome: row.PenaltySeenHome,
		PenaltySeenAway: row.PenaltySeenAway,
		PenaltyNotified: row.PenaltyNotified,
		CreatedAt:       row.CreatedAt,
		ResolvedAt:      row.ResolvedAt,
		UpdatedAt:       row.UpdatedAt,
	}

	if row.StatsAtAlert.Valid && row.StatsAtAlert.String != "" {
		st, err := snapshot.DecodeStats(row.StatsAtAlert.String)
		if err != nil {
			return alert.Alert{}, fmt.Errorf("decode stats_at_alert for alert %d: %w", row.ID, err)
		}
		out.StatsAtAlert = st
	}
	if row.StatsAtResult.Valid && row.StatsAtResult.String != "" {
		st, err := snapshot.DecodeStats(row.StatsAtResult.String)
		if err != nil {
			return alert.Alert{}, fmt.Errorf("decode stats_at_result for alert %d: %w", row.ID, err)
		}
		out.StatsAtResult = st
	}
	if row.StatsFinal.Valid && row.StatsFinal.String != "" {
		st, err := snapshot.DecodeStats(row.StatsFinal.String)
		if err != nil {
			return alert.Alert{}, fmt.Errorf("decode stats_final for alert %d: %w", row.ID, err)
		}
		out.StatsFinal = st
	}

	return out, nil
}

func encodeStatsColumn(st snapshot.Stats) (sql.NullString, error) {
	if st == nil {
		return sql.NullString{}, nil
	}
	raw, err := snapshot.EncodeStats(st)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: raw, Valid: true}, nil
}

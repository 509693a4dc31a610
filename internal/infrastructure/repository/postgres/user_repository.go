package postgres

import (
	"context"
	"fmt"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/matchwatch/livealert/internal/domain/user"
)

type userTableModel struct {
	ID               int64  `db:"id"`
	Name             string `db:"name"`
	TelegramToken    string `db:"telegram_token"`
	TelegramChatID   string `db:"telegram_chat_id"`
	TelegramVerified bool   `db:"telegram_verified"`
}

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query := `SELECT id, name, telegram_token, telegram_chat_id, telegram_verified
FROM users WHERE id = $1`

	var row userTableModel
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if isNotFound(err) {
			return nil, crerr.Newf("user %d not found", id)
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}

	u := userFromRow(row)
	return &u, nil
}

func (r *UserRepository) ListTelegramVerified(ctx context.Context) ([]user.User, error) {
	query := `SELECT id, name, telegram_token, telegram_chat_id, telegram_verified
FROM users WHERE telegram_verified = TRUE ORDER BY id`

	var rows []userTableModel
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("select telegram verified users: %w", err)
	}

	out := make([]user.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, userFromRow(row))
	}
	return out, nil
}

func userFromRow(row userTableModel) user.User {
	return user.User{
		ID:               row.ID,
		Name:             row.Name,
		TelegramToken:    row.TelegramToken,
		TelegramChatID:   row.TelegramChatID,
		TelegramVerified: row.TelegramVerified,
	}
}

package user

import "context"

// User owns rules and receives their notifications.
type User struct {
	ID               int64
	Name             string
	TelegramToken    string
	TelegramChatID   string
	TelegramVerified bool
}

// Notifiable reports whether the user can receive Telegram messages.
func (u User) Notifiable() bool {
	return u.TelegramVerified && u.TelegramToken != "" && u.TelegramChatID != ""
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	ListTelegramVerified(ctx context.Context) ([]User, error)
}

package usecase

import (
	"context"
	"fmt"

	"github.com/matchwatch/livealert/internal/domain/snapshot"
)

// LiveGame is one row of the source site's in-play listing.
type LiveGame struct {
	GameID   string
	URL      string
	League   string
	HomeTeam string
	AwayTeam string
	TimeText string
}

// Description renders "Home vs Away (League)" for notifications and rule
// bookkeeping.
func (g LiveGame) Description() string {
	return fmt.Sprintf("%s vs %s (%s)", g.HomeTeam, g.AwayTeam, g.League)
}

// MatchSource lists live matches and fetches per-match statistics. The
// status code from the listing fetch feeds source health tracking; a
// non-200 answer comes back as an empty list with the code, not an error.
type MatchSource interface {
	FetchLiveGames(ctx context.Context) ([]LiveGame, int, error)
	FetchSnapshot(ctx context.Context, gameID string) (*snapshot.Snapshot, error)
}

// HistorySource is an optional MatchSource capability: past-match summaries
// for the teams of a live game, used to enrich alert messages.
type HistorySource interface {
	FetchMatchHistory(ctx context.Context, gameID string) (*MatchHistory, error)
}

// Notifier delivers alert messages and export files to a user's Telegram.
type Notifier interface {
	Send(ctx context.Context, token, chatID, text string) error
	SendDocument(ctx context.Context, token, chatID, path, caption string) error
}

// Exporter records alert lifecycle rows in a local spreadsheet file.
type Exporter interface {
	UpsertAlert(row ExportRow) error
	Path() string
}

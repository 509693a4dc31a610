package betsite

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/matchwatch/livealert/internal/usecase"
)

const inplayPath = "/inplay"

var gameIDPattern = regexp.MustCompile(`/r/(\d+)`)

// FetchLiveGames lists currently running football matches. Electronic
// football leagues and rows without a running clock are excluded; those are
// simulations and pre-kickoff placeholders the rule engine must not touch.
// When the site answers with a non-success status the list comes back empty
// alongside that status, so the caller can track upstream health; an error
// is reserved for requests that never got an answer.
func (c *Client) FetchLiveGames(ctx context.Context) ([]usecase.LiveGame, int, error) {
	raw, status, err := c.fetchHTML(ctx, inplayPath)
	if err != nil {
		if status != 0 {
			return nil, status, nil
		}
		return nil, 0, err
	}
	games, err := ParseLiveGames(raw)
	if err != nil {
		return nil, status, err
	}
	for i := range games {
		games[i].URL = c.GameURL(games[i].GameID)
	}
	c.logger.DebugContext(ctx, "fetched live game list", "count", len(games), "status", status)
	return games, status, nil
}

// ParseLiveGames extracts football rows from the in-play page HTML.
func ParseLiveGames(raw []byte) ([]usecase.LiveGame, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse inplay page: %w", err)
	}

	games := make([]usecase.LiveGame, 0, 64)
	seen := make(map[string]struct{}, 64)

	doc.Find(`tr[id^="r_"]`).Each(func(_ int, row *goquery.Selection) {
		sport := strings.ToLower(strings.TrimSpace(row.Find("td.sport_n").First().Text()))
		if !strings.Contains(sport, "soccer") && !strings.Contains(sport, "futebol") && !strings.Contains(sport, "football") {
			return
		}

		league := strings.TrimSpace(row.Find("td.league_n").First().Text())
		if isESoccerLeague(league) {
			return
		}

		timeText := strings.TrimSpace(row.Find("span.race-time").First().Text())
		if !hasDigit(timeText) && !isBreakMarker(timeText) {
			// No clock means the match has not kicked off.
			return
		}

		gameID := extractGameID(row)
		if gameID == "" {
			return
		}
		if _, dup := seen[gameID]; dup {
			return
		}

		home, away := extractListTeams(row)
		if home == "" || away == "" {
			return
		}

		seen[gameID] = struct{}{}
		games = append(games, usecase.LiveGame{
			GameID:   gameID,
			League:   league,
			HomeTeam: home,
			AwayTeam: away,
			TimeText: timeText,
		})
	})

	return games, nil
}

func extractGameID(row *goquery.Selection) string {
	id := ""
	row.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		if match := gameIDPattern.FindStringSubmatch(href); match != nil {
			id = match[1]
			return false
		}
		return true
	})
	if id != "" {
		return id
	}
	// Row id itself carries the game id ("r_12345").
	if rowID, ok := row.Attr("id"); ok {
		if trimmed := strings.TrimPrefix(rowID, "r_"); trimmed != rowID && isDigits(trimmed) {
			return trimmed
		}
	}
	return ""
}

func extractListTeams(row *goquery.Selection) (string, string) {
	var names []string
	row.Find("td.race-name a, td.race-name span, td.race-name").Each(func(_ int, cell *goquery.Selection) {
		text := strings.TrimSpace(cell.Text())
		if text == "" {
			return
		}
		for _, sep := range []string{" vs ", " v ", " x "} {
			if parts := strings.SplitN(text, sep, 2); len(parts) == 2 {
				names = []string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])}
				return
			}
		}
	})
	if len(names) == 2 {
		return names[0], names[1]
	}
	return "", ""
}

func isESoccerLeague(league string) bool {
	lowered := strings.ToLower(league)
	return strings.Contains(lowered, "esoccer") || strings.Contains(lowered, "e-soccer") || strings.Contains(lowered, "ebattle") || strings.Contains(lowered, "cyber")
}

func isBreakMarker(timeText string) bool {
	lowered := strings.ToLower(strings.TrimSpace(timeText))
	return lowered == "ht" || strings.Contains(lowered, "half time") || strings.Contains(lowered, "interval")
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

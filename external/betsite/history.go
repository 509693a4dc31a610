package betsite

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/matchwatch/livealert/internal/usecase"
)

var (
	historyScoreCell   = regexp.MustCompile(`^\s*(\d{1,2})\s*[-x:]\s*(\d{1,2})\s*$`)
	historyScoreInline = regexp.MustCompile(`(?:^|\s)(\d{1,2})\s*[-x:]\s*(\d{1,2})(?:\s|$)`)
)

// FetchMatchHistory loads a match page and extracts the past-result tables:
// head-to-head meetings and each team's recent games.
func (c *Client) FetchMatchHistory(ctx context.Context, gameID string) (*usecase.MatchHistory, error) {
	raw, _, err := c.fetchHTML(ctx, "/r/"+gameID)
	if err != nil {
		return nil, err
	}
	return ParseMatchHistory(raw)
}

// ParseMatchHistory pulls history tables from a match page. Tables are
// classified by their caption or nearest preceding heading; pages without
// any recognizable history section yield an empty history, not an error.
func ParseMatchHistory(raw []byte) (*usecase.MatchHistory, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse match page: %w", err)
	}

	out := &usecase.MatchHistory{}
	doc.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		items := historyItems(tbl)
		if len(items) == 0 {
			return
		}
		switch historyTableKind(tbl) {
		case "h2h":
			out.H2H = append(out.H2H, items...)
		case "home":
			out.Home = append(out.Home, items...)
		case "away":
			out.Away = append(out.Away, items...)
		}
	})
	return out, nil
}

// historyTableKind decides which history section a table belongs to. The
// mirror labels sections inconsistently across skins, sometimes in a
// caption, sometimes in a heading just before the table, in English or
// Portuguese.
func historyTableKind(tbl *goquery.Selection) string {
	label := strings.TrimSpace(tbl.Find("caption").First().Text())
	if label == "" {
		label = strings.TrimSpace(tbl.PrevFiltered("h1,h2,h3,h4,h5,div.card-header").First().Text())
	}
	if label == "" {
		label = strings.TrimSpace(tbl.Parent().PrevFiltered("h1,h2,h3,h4,h5,div.card-header").First().Text())
	}
	label = strings.ToLower(label)
	switch {
	case strings.Contains(label, "h2h"), strings.Contains(label, "head to head"),
		strings.Contains(label, "head-to-head"), strings.Contains(label, "confronto"):
		return "h2h"
	case strings.Contains(label, "home"), strings.Contains(label, "casa"):
		return "home"
	case strings.Contains(label, "away"), strings.Contains(label, "fora"),
		strings.Contains(label, "visitante"):
		return "away"
	default:
		return ""
	}
}

// historyItems reads every row of a history table that carries a final
// score. Rows without one are headers or matches still to be played.
func historyItems(tbl *goquery.Selection) []usecase.HistoryItem {
	var items []usecase.HistoryItem
	tbl.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if row.Find("th").Length() > 0 {
			return
		}
		if home, away, ok := historyRowScore(row); ok {
			items = append(items, usecase.HistoryItem{Home: home, Away: away, Total: home + away})
		}
	})
	return items
}

// historyRowScore pulls the final score from a row. A cell holding only the
// score wins; otherwise the row text is scanned for a space-delimited pair,
// which keeps dates like 2026-05-01 and kickoff times from reading as
// scores.
func historyRowScore(row *goquery.Selection) (home, away int, ok bool) {
	row.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		m := historyScoreCell.FindStringSubmatch(cell.Text())
		if m == nil {
			return true
		}
		home, _ = strconv.Atoi(m[1])
		away, _ = strconv.Atoi(m[2])
		ok = true
		return false
	})
	if ok {
		return home, away, true
	}

	m := historyScoreInline.FindStringSubmatch(row.Text())
	if m == nil {
		return 0, 0, false
	}
	home, _ = strconv.Atoi(m[1])
	away, _ = strconv.Atoi(m[2])
	if home > 20 || away > 20 {
		return 0, 0, false
	}
	return home, away, true
}

package betsite

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/matchwatch/livealert/internal/domain/snapshot"
)

// FetchSnapshot loads a match page and extracts its live statistics.
func (c *Client) FetchSnapshot(ctx context.Context, gameID string) (*snapshot.Snapshot, error) {
	raw, _, err := c.fetchHTML(ctx, "/r/"+gameID)
	if err != nil {
		return nil, err
	}
	snap, err := ParseSnapshot(raw)
	if err != nil {
		return nil, err
	}
	snap.GameID = gameID
	snap.URL = c.GameURL(gameID)
	return snap, nil
}

// ParseSnapshot builds a Snapshot from a match page. Statistics the page
// does not show stay absent from the map; downstream evaluation treats
// absence as unknown, never as zero.
func ParseSnapshot(raw []byte) (*snapshot.Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse match page: %w", err)
	}

	snap := &snapshot.Snapshot{
		Stats: make(snapshot.Stats, 16),
		Raw:   make(map[snapshot.Key]snapshot.RawPair, 16),
	}

	snap.HomeTeam, snap.AwayTeam = extractSnapshotTeams(doc)
	snap.TimeText = strings.TrimSpace(doc.Find("span.race-time").First().Text())

	var minuteDuplicates []int

	doc.Find("table.table.table-sm tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		label := strings.TrimSpace(cells.Eq(0).Text())
		if label == "" {
			return
		}
		key := snapshot.Normalize(label)

		homeRaw := cellValue(cells.Eq(1))
		awayRaw := cellValue(cells.Eq(2))

		if key == snapshot.KeyMinute {
			if v, ok := snapshot.ParseInt(homeRaw); ok {
				minuteDuplicates = append(minuteDuplicates, v)
			}
			if v, ok := snapshot.ParseInt(awayRaw); ok {
				minuteDuplicates = append(minuteDuplicates, v)
			}
			return
		}

		applyStatRow(snap, key, homeRaw, awayRaw)
	})

	finishSnapshot(snap, minuteDuplicates)
	return snap, nil
}

// applyStatRow merges one parsed row into the snapshot. Pages repeat some
// statistics across widgets; a later row only replaces an earlier one when
// the earlier pair was empty and the later one is populated.
func applyStatRow(snap *snapshot.Snapshot, key snapshot.Key, homeRaw, awayRaw string) {
	home, homeOK := snapshot.ParseInt(homeRaw)
	away, awayOK := snapshot.ParseInt(awayRaw)
	if !homeOK && !awayOK {
		if _, exists := snap.Raw[key]; !exists {
			snap.Raw[key] = snapshot.RawPair{Home: homeRaw, Away: awayRaw}
		}
		return
	}

	if existing, exists := snap.Stats[key]; exists {
		_, hasHome := existing[snapshot.SideHome]
		_, hasAway := existing[snapshot.SideAway]
		if hasHome && hasAway {
			return
		}
		if !homeOK || !awayOK {
			return
		}
	}

	values := make(snapshot.Values, 3)
	if homeOK {
		values[snapshot.SideHome] = home
	}
	if awayOK {
		values[snapshot.SideAway] = away
	}
	if homeOK && awayOK {
		values[snapshot.SideTotal] = home + away
	}
	snap.Stats[key] = values
	snap.Raw[key] = snapshot.RawPair{Home: homeRaw, Away: awayRaw}
}

func finishSnapshot(snap *snapshot.Snapshot, minuteDuplicates []int) {
	var primary *int
	if v, ok := snapshot.ParseMinute(snap.TimeText); ok {
		primary = &v
	}
	snap.Minute = snapshot.ResolveMinute(primary, minuteDuplicates)
	if snap.Minute != nil {
		snap.Stats[snapshot.KeyMinute] = snapshot.Uniform(*snap.Minute)
	}

	if goals, ok := snap.Stats[snapshot.KeyGoals]; ok {
		home := goals[snapshot.SideHome]
		away := goals[snapshot.SideAway]
		snap.Score = snapshot.FormatScore(home, away)
	} else {
		snap.Score = snapshot.FormatScore(0, 0)
	}
}

// extractSnapshotTeams reads the header score row: the first table row with
// exactly three cells is "home | score | away".
func extractSnapshotTeams(doc *goquery.Document) (string, string) {
	var home, away string
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() != 3 {
			return true
		}
		h := strings.TrimSpace(cells.Eq(0).Text())
		a := strings.TrimSpace(cells.Eq(2).Text())
		if h == "" || a == "" || hasDigit(h) {
			return true
		}
		home, away = h, a
		return false
	})
	return home, away
}

// cellValue prefers the accessible label over the rendered cell: the site
// renders stat bars whose visible text is unreliable, but every cell carries
// the numeric value in a screen-reader span.
func cellValue(cell *goquery.Selection) string {
	if sr := cell.Find("span.sr-only").First(); sr.Length() > 0 {
		if text := strings.TrimSpace(sr.Text()); text != "" {
			return text
		}
	}
	return strings.TrimSpace(cell.Text())
}

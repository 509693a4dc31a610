package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/valyala/bytebufferpool"

	"github.com/matchwatch/livealert/internal/domain/rule"
	"github.com/matchwatch/livealert/internal/domain/snapshot"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// RenderTemplate substitutes {placeholder} tokens from data. Unknown
// placeholders stay verbatim so a typo in a user template degrades to
// visible text instead of an error or an empty hole.
func RenderTemplate(template string, data map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := token[1 : len(token)-1]
		if value, ok := data[name]; ok {
			return value
		}
		return token
	})
}

// MessageData builds the placeholder map available to user templates.
func MessageData(r rule.Rule, g LiveGame, snap *snapshot.Snapshot) map[string]string {
	data := map[string]string{
		"rule":    r.Name,
		"league":  g.League,
		"home":    g.HomeTeam,
		"away":    g.AwayTeam,
		"score":   snap.Score,
		"minute":  "?",
		"game_id": g.GameID,
		"url":     g.URL,
	}
	if snap.Minute != nil {
		data["minute"] = fmt.Sprintf("%d", *snap.Minute)
	}
	for key, values := range snap.Stats {
		name := statPlaceholder(key)
		if home, ok := values[snapshot.SideHome]; ok {
			data[name+"_home"] = fmt.Sprintf("%d", home)
		}
		if away, ok := values[snapshot.SideAway]; ok {
			data[name+"_away"] = fmt.Sprintf("%d", away)
		}
		if total, ok := values[snapshot.SideTotal]; ok {
			data[name] = fmt.Sprintf("%d", total)
		}
	}
	return data
}

func statPlaceholder(key snapshot.Key) string {
	name := strings.ToLower(string(key))
	name = strings.NewReplacer(" ", "_", "(", "", ")", "", "/", "_").Replace(name)
	return name
}

// BuildAlertMessage renders the notification for a fresh alert: the user's
// template when present, a standard summary otherwise.
func BuildAlertMessage(r rule.Rule, g LiveGame, snap *snapshot.Snapshot, confidence string, history HistoryInsight) string {
	if strings.TrimSpace(r.MessageTemplate) != "" {
		data := MessageData(r, g, snap)
		history.Placeholders(data)
		return RenderTemplate(r.MessageTemplate, data)
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = fmt.Fprintf(buf, "🚨 *%s*\n", r.Name)
	_, _ = fmt.Fprintf(buf, "%s vs %s\n", g.HomeTeam, g.AwayTeam)
	_, _ = fmt.Fprintf(buf, "League: %s\n", g.League)
	_, _ = fmt.Fprintf(buf, "Score: %s", snap.Score)
	if snap.Minute != nil {
		_, _ = fmt.Fprintf(buf, " (%d')", *snap.Minute)
	}
	buf.B = append(buf.B, '\n')
	if confidence != "" {
		_, _ = fmt.Fprintf(buf, "Confidence: %s\n", confidence)
	}
	if !history.IsZero() {
		for _, line := range []string{history.H2H, history.Home, history.Away, history.Confidence} {
			if line != "" {
				_, _ = fmt.Fprintf(buf, "%s\n", line)
			}
		}
	}
	_, _ = fmt.Fprintf(buf, "%s", g.URL)
	return buf.String()
}

// BuildOutcomeMessage renders the follow-up sent when an alert resolves or
// reverses.
func BuildOutcomeMessage(a AlertView, status, note string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	icon := "✅"
	if status == "red" {
		icon = "❌"
	}
	_, _ = fmt.Fprintf(buf, "%s *%s* — %s\n", icon, a.RuleName, strings.ToUpper(status))
	_, _ = fmt.Fprintf(buf, "%s vs %s\n", a.HomeTeam, a.AwayTeam)
	_, _ = fmt.Fprintf(buf, "Score: %s", a.Score)
	if a.Minute != "" {
		_, _ = fmt.Fprintf(buf, " (%s')", a.Minute)
	}
	if note != "" {
		_, _ = fmt.Fprintf(buf, "\n%s", note)
	}
	return buf.String()
}

// AlertView carries the fields outcome messages need, already formatted.
type AlertView struct {
	RuleName string
	HomeTeam string
	AwayTeam string
	Score    string
	Minute   string
}

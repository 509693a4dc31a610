package snapshot

import (
	"fmt"

	sonic "github.com/bytedance/sonic"
)

// Side selects which column of a statistic a condition reads.
type Side string

const (
	SideHome  Side = "home"
	SideAway  Side = "away"
	SideTotal Side = "total"
)

func ValidSide(s Side) bool {
	switch s {
	case SideHome, SideAway, SideTotal:
		return true
	default:
		return false
	}
}

// Key is a canonical statistic name. Unknown scraped labels pass through as
// opaque keys so rules can still match them verbatim.
type Key string

// Values holds one statistic's per-side integers. A side absent from the map
// means the value is unknown, which is different from zero.
type Values map[Side]int

// Stats maps canonical stat keys to their per-side values.
type Stats map[Key]Values

// RawPair keeps the untouched scraped cell texts for one statistic row.
type RawPair struct {
	Home string `json:"home"`
	Away string `json:"away"`
}

// Snapshot is a point-in-time read of one live match. It is ephemeral: every
// fetch produces a fresh value and nothing mutates it afterwards.
type Snapshot struct {
	GameID   string
	URL      string
	League   string
	HomeTeam string
	AwayTeam string
	Score    string
	TimeText string
	// Minute is nil when the page's time indicator could not be parsed.
	Minute *int
	Stats  Stats
	Raw    map[Key]RawPair
}

// Value reads one side of one statistic, failing closed on anything missing.
func (st Stats) Value(key Key, side Side) (int, bool) {
	values, ok := st[key]
	if !ok {
		return 0, false
	}
	v, ok := values[side]
	return v, ok
}

// Clone deep-copies the stats map so baselines stay immutable once captured.
func (st Stats) Clone() Stats {
	if st == nil {
		return nil
	}
	out := make(Stats, len(st))
	for key, values := range st {
		copied := make(Values, len(values))
		for side, v := range values {
			copied[side] = v
		}
		out[key] = copied
	}
	return out
}

// Line builds a fully-populated per-side entry from home/away integers.
func Line(home, away int) Values {
	return Values{
		SideHome:  home,
		SideAway:  away,
		SideTotal: home + away,
	}
}

// Uniform sets all three sides to the same value, used for pseudo-stats such
// as the elapsed minute.
func Uniform(v int) Values {
	return Values{
		SideHome:  v,
		SideAway:  v,
		SideTotal: v,
	}
}

// EncodeStats serializes a stats map for persistence alongside an alert.
func EncodeStats(st Stats) (string, error) {
	if st == nil {
		st = Stats{}
	}
	raw, err := sonic.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("encode stats: %w", err)
	}
	return string(raw), nil
}

// DecodeStats restores a stats map persisted by EncodeStats. Sides that were
// missing when the alert was written stay missing, preserving the
// unknown-vs-zero distinction across the round trip.
func DecodeStats(raw string) (Stats, error) {
	if raw == "" {
		return Stats{}, nil
	}
	var st Stats
	if err := sonic.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	if st == nil {
		st = Stats{}
	}
	return st, nil
}

package snapshot

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// Minutes at or below this from the primary indicator are treated as
	// suspect: the site sometimes resets its clock widget early in a page
	// render while a duplicate "Minute" stat row elsewhere is correct.
	earlyMinuteSuspect = 10
	// A fallback minute is only trusted when it is at least this large.
	fallbackMinuteFloor = 45
)

var leadingMinuteRegex = regexp.MustCompile(`^(\d+)`)

// ParseMinute reads the elapsed minute from a time indicator text.
// "45+2" (stoppage time) yields 45. A bare "+3" has no base minute and
// yields unknown rather than zero.
func ParseMinute(timeText string) (int, bool) {
	text := strings.TrimSpace(timeText)
	if text == "" || strings.HasPrefix(text, "+") {
		return 0, false
	}
	match := leadingMinuteRegex.FindString(text)
	if match == "" {
		return 0, false
	}
	v, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ResolveMinute settles the elapsed minute from the primary indicator plus
// any duplicate "Minute" stat entries found in the page body. The fallback
// applies only when the primary is unknown or implausibly low, and only when
// the best duplicate is itself plausible for a running second half.
func ResolveMinute(primary *int, duplicates []int) *int {
	best := 0
	for _, v := range duplicates {
		if v > best {
			best = v
		}
	}

	if primary != nil && *primary > earlyMinuteSuspect {
		return primary
	}
	if best >= fallbackMinuteFloor {
		return &best
	}
	return primary
}

// IsFirstHalfStoppage reports whether a time text is first-half stoppage
// time ("45+2" style with a base of at most 45). Stoppage of the first half
// must not count as second-half evidence.
func IsFirstHalfStoppage(timeText string) bool {
	text := strings.TrimSpace(timeText)
	plus := strings.IndexByte(text, '+')
	if plus <= 0 {
		return false
	}
	base, err := strconv.Atoi(strings.TrimSpace(text[:plus]))
	if err != nil {
		return false
	}
	rest := strings.TrimSpace(text[plus+1:])
	if _, err := strconv.Atoi(leadingDigits(rest)); err != nil {
		return false
	}
	return base <= 45
}

func leadingDigits(text string) string {
	match := leadingMinuteRegex.FindString(text)
	if match == "" {
		return "x"
	}
	return match
}

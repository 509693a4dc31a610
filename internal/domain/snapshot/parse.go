package snapshot

import (
	"regexp"
	"strconv"
)

var digitsRegex = regexp.MustCompile(`\d+`)

// ParseInt extracts the first run of digits from a scraped cell. A cell with
// no digits yields no value at all, never zero.
func ParseInt(text string) (int, bool) {
	match := digitsRegex.FindString(text)
	if match == "" {
		return 0, false
	}
	v, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseScore splits a score string such as "2 x 1" or "2-1" into goal counts.
// Anything unparseable reads as 0-0.
func ParseScore(text string) (home, away int) {
	nums := digitsRegex.FindAllString(text, 2)
	if len(nums) < 2 {
		return 0, 0
	}
	home, _ = strconv.Atoi(nums[0])
	away, _ = strconv.Atoi(nums[1])
	return home, away
}

// FormatScore renders a score the way the source site does.
func FormatScore(home, away int) string {
	return strconv.Itoa(home) + " x " + strconv.Itoa(away)
}

package snapshot

import "strings"

var (
	halfTimeTokens   = []string{"ht", "half time", "interval"}
	secondHalfTokens = []string{"2nd", "2o", "2h", "2º", "second", "segundo"}
	fullTimeTokens   = []string{"ft", "full time", "finished", "ended", "fim", "encerrado", "final"}
)

// IsHalfTime reports whether the match looks paused at the interval, either
// from explicit phase text or a minute in the 45-47 stoppage window.
func IsHalfTime(timeText string, minute int) bool {
	text := strings.ToLower(timeText)
	for _, token := range halfTimeTokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	return minute >= 45 && minute <= 47
}

// IsSecondHalf reports an explicit second-half phase indicator. A bare
// minute is never enough: the baseline tracker handles minute-only evidence
// with its confirmation window.
func IsSecondHalf(timeText string) bool {
	text := strings.ToLower(timeText)
	for _, token := range secondHalfTokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}

// IsFullTime reports whether the match has finished, from phase text or a
// minute beyond regulation.
func IsFullTime(timeText string, minute int) bool {
	text := strings.ToLower(timeText)
	for _, token := range fullTimeTokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	return minute >= 90 && minute <= 130
}

// InFirstHalfGoalWindow reports whether a score change at this point still
// counts as a first-half goal for default outcome semantics. Explicit
// second-half text disqualifies regardless of the minute.
func InFirstHalfGoalWindow(timeText string, minute int) bool {
	if IsSecondHalf(timeText) {
		return false
	}
	return minute >= 0 && minute <= 47
}

package usecase

import (
	"fmt"

	"github.com/matchwatch/livealert/internal/domain/alert"
)

const (
	confidenceWindow     = 50
	confidenceMinSamples = 10
)

// Confidence computes a rule's historical green rate from its most recent
// resolved alerts. Below the minimum sample count there is no meaningful
// rate and the second return is false.
func Confidence(statuses []alert.Status) (int, bool) {
	if len(statuses) > confidenceWindow {
		statuses = statuses[:confidenceWindow]
	}

	green, resolved := 0, 0
	for _, s := range statuses {
		switch s {
		case alert.StatusGreen:
			green++
			resolved++
		case alert.StatusRed:
			resolved++
		}
	}
	if resolved < confidenceMinSamples {
		return 0, false
	}
	return green * 100 / resolved, true
}

// ConfidenceLabel renders "78% (n=32)" or empty when there is not enough
// history.
func ConfidenceLabel(statuses []alert.Status) string {
	pct, ok := Confidence(statuses)
	if !ok {
		return ""
	}
	if len(statuses) > confidenceWindow {
		statuses = statuses[:confidenceWindow]
	}
	resolved := 0
	for _, s := range statuses {
		if s == alert.StatusGreen || s == alert.StatusRed {
			resolved++
		}
	}
	return fmt.Sprintf("%d%% (n=%d)", pct, resolved)
}

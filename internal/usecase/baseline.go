package usecase

import (
	"sync"
	"time"

	"github.com/matchwatch/livealert/internal/domain/snapshot"
)

// DefaultHalftimeConfirm is how long minute-only second-half evidence must
// persist before a baseline is trusted.
const DefaultHalftimeConfirm = 120 * time.Second

// BaselineTracker captures each game's statistics at the end of the first
// half so that second-half-only rules can evaluate deltas. Explicit phase
// text confirms a baseline immediately; a minute past 45 on its own is
// unreliable (clock widgets glitch) and must persist for the confirmation
// window first.
type BaselineTracker struct {
	confirmWindow time.Duration
	now           func() time.Time

	mu    sync.Mutex
	games map[string]*baselineState
}

type baselineState struct {
	candidate   snapshot.Stats
	candidateAt time.Time
	confirmed   snapshot.Stats
}

func NewBaselineTracker(confirmWindow time.Duration) *BaselineTracker {
	if confirmWindow <= 0 {
		confirmWindow = DefaultHalftimeConfirm
	}
	return &BaselineTracker{
		confirmWindow: confirmWindow,
		now:           time.Now,
		games:         make(map[string]*baselineState, 32),
	}
}

// Observe feeds one snapshot into the tracker and returns the confirmed
// second-half baseline for the game, if one exists yet.
func (t *BaselineTracker) Observe(gameID string, snap *snapshot.Snapshot) (snapshot.Stats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.games[gameID]
	if !ok {
		state = &baselineState{}
		t.games[gameID] = state
	}
	if state.confirmed != nil {
		return state.confirmed, true
	}

	minute := -1
	if snap.Minute != nil {
		minute = *snap.Minute
	}

	switch {
	case snapshot.IsSecondHalf(snap.TimeText):
		// Explicit phase text is authoritative. Prefer the candidate stashed
		// at the interval; falling back to current stats slightly inflates
		// the baseline but keeps deltas conservative.
		if state.candidate != nil {
			state.confirmed = state.candidate
		} else {
			state.confirmed = snap.Stats.Clone()
		}
		return state.confirmed, true

	case snapshot.IsHalfTime(snap.TimeText, minute):
		// The interval is the exact end-of-first-half reading. Refresh the
		// candidate on every interval observation; stats are frozen anyway.
		state.candidate = snap.Stats.Clone()
		state.candidateAt = t.now()
		return nil, false

	case minute > 47 && !snapshot.IsFirstHalfStoppage(snap.TimeText):
		if state.candidate == nil {
			state.candidate = snap.Stats.Clone()
			state.candidateAt = t.now()
			return nil, false
		}
		if t.now().Sub(state.candidateAt) >= t.confirmWindow {
			state.confirmed = state.candidate
			return state.confirmed, true
		}
		return nil, false

	default:
		// Contradicting evidence: a first-half clock after a minute-based
		// candidate means the earlier reading was noise.
		if state.candidate != nil && minute >= 0 && minute <= 45 {
			state.candidate = nil
			state.candidateAt = time.Time{}
		}
		return nil, false
	}
}

// Release drops all tracking for a finished game.
func (t *BaselineTracker) Release(gameID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.games, gameID)
}

package usecase

import (
	"testing"
	"time"

	"github.com/matchwatch/livealert/internal/domain/snapshot"
)

func snapAt(timeText string, minute int, corners int) *snapshot.Snapshot {
	s := &snapshot.Snapshot{
		TimeText: timeText,
		Stats: snapshot.Stats{
			snapshot.KeyCorners: snapshot.Line(corners, 0),
		},
	}
	if minute >= 0 {
		m := minute
		s.Minute = &m
	}
	return s
}

func trackerAt(window time.Duration) (*BaselineTracker, *time.Time) {
	tr := NewBaselineTracker(window)
	now := time.Date(2026, 3, 7, 16, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }
	return tr, &now
}

func TestBaselineExplicitSecondHalfConfirmsImmediately(t *testing.T) {
	tr, _ := trackerAt(DefaultHalftimeConfirm)

	// Interval reading stashes the candidate.
	if _, ok := tr.Observe("g1", snapAt("HT", 45, 5)); ok {
		t.Fatal("confirmed at the interval")
	}
	base, ok := tr.Observe("g1", snapAt("2nd Half", 46, 5))
	if !ok {
		t.Fatal("explicit second-half text did not confirm")
	}
	if got, _ := base.Value(snapshot.KeyCorners, snapshot.SideHome); got != 5 {
		t.Fatalf("baseline corners = %d, want interval reading 5", got)
	}
}

func TestBaselineMinuteEvidenceNeedsConfirmWindow(t *testing.T) {
	tr, now := trackerAt(120 * time.Second)

	if _, ok := tr.Observe("g1", snapAt("48", 48, 6)); ok {
		t.Fatal("confirmed on first minute-only observation")
	}
	*now = now.Add(60 * time.Second)
	if _, ok := tr.Observe("g1", snapAt("49", 49, 6)); ok {
		t.Fatal("confirmed before the window elapsed")
	}
	*now = now.Add(61 * time.Second)
	base, ok := tr.Observe("g1", snapAt("50", 50, 7))
	if !ok {
		t.Fatal("did not confirm after the window")
	}
	// The candidate captured at the first observation is the baseline.
	if got, _ := base.Value(snapshot.KeyCorners, snapshot.SideHome); got != 6 {
		t.Fatalf("baseline corners = %d, want 6", got)
	}
}

func TestBaselineFirstHalfStoppageIsNotEvidence(t *testing.T) {
	tr, now := trackerAt(120 * time.Second)

	if _, ok := tr.Observe("g1", snapAt("45+3", 45, 4)); ok {
		t.Fatal("stoppage time confirmed a baseline")
	}
	*now = now.Add(5 * time.Minute)
	if _, ok := tr.Observe("g1", snapAt("45+6", 45, 4)); ok {
		t.Fatal("extended stoppage confirmed a baseline")
	}
}

func TestBaselineContradictionResetsCandidate(t *testing.T) {
	tr, now := trackerAt(120 * time.Second)

	tr.Observe("g1", snapAt("52", 52, 9)) // glitchy clock
	*now = now.Add(30 * time.Second)
	tr.Observe("g1", snapAt("38", 38, 3)) // reality: still first half
	*now = now.Add(5 * time.Minute)
	if _, ok := tr.Observe("g1", snapAt("40", 40, 3)); ok {
		t.Fatal("stale candidate survived a first-half contradiction")
	}
}

func TestBaselineRelease(t *testing.T) {
	tr, _ := trackerAt(time.Second)

	tr.Observe("g1", snapAt("2nd Half", 50, 2))
	tr.Release("g1")
	if _, ok := tr.Observe("g1", snapAt("10", 10, 0)); ok {
		t.Fatal("released game still has a baseline")
	}
}

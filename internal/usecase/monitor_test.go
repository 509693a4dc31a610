package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/matchwatch/livealert/internal/domain/alert"
	"github.com/matchwatch/livealert/internal/domain/rule"
	"github.com/matchwatch/livealert/internal/domain/snapshot"
	"github.com/matchwatch/livealert/internal/domain/user"
	"github.com/matchwatch/livealert/internal/infrastructure/repository/memory"
	"github.com/matchwatch/livealert/internal/platform/logging"
)

type fakeSource struct {
	mu      sync.Mutex
	games   []LiveGame
	snaps   map[string]*snapshot.Snapshot
	history *MatchHistory
	fail    bool
	status  int
}

func (f *fakeSource) FetchLiveGames(context.Context) ([]LiveGame, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, 0, crerr.New("site down")
	}
	if f.status != 0 && f.status != 200 {
		return nil, f.status, nil
	}
	return append([]LiveGame(nil), f.games...), 200, nil
}

func (f *fakeSource) FetchMatchHistory(context.Context, string) (*MatchHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history, nil
}

func (f *fakeSource) FetchSnapshot(_ context.Context, gameID string) (*snapshot.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snaps[gameID]
	if !ok {
		return nil, crerr.Newf("no snapshot for %s", gameID)
	}
	return snap, nil
}

func (f *fakeSource) set(g LiveGame, snap *snapshot.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap.GameID = g.GameID
	found := false
	for i := range f.games {
		if f.games[i].GameID == g.GameID {
			f.games[i] = g
			found = true
		}
	}
	if !found {
		f.games = append(f.games, g)
	}
	if f.snaps == nil {
		f.snaps = make(map[string]*snapshot.Snapshot)
	}
	f.snaps[g.GameID] = snap
}

func (f *fakeSource) drop(gameID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.games[:0]
	for _, g := range f.games {
		if g.GameID != gameID {
			kept = append(kept, g)
		}
	}
	f.games = kept
	delete(f.snaps, gameID)
}

type fakeNotifier struct {
	mu        sync.Mutex
	messages  []string
	documents []string
}

func (f *fakeNotifier) Send(_ context.Context, _, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeNotifier) SendDocument(_ context.Context, _, _, path, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = append(f.documents, path)
	return nil
}

func (f *fakeNotifier) containing(sub string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, m := range f.messages {
		if strings.Contains(m, sub) {
			count++
		}
	}
	return count
}

type harness struct {
	svc      *MonitorService
	source   *fakeSource
	notifier *fakeNotifier
	rules    *memory.RuleRepository
	alerts   *memory.AlertRepository
	users    *memory.UserRepository
	now      *time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	source := &fakeSource{}
	notifier := &fakeNotifier{}
	rules := memory.NewRuleRepository()
	alerts := memory.NewAlertRepository()
	users := memory.NewUserRepository()

	users.Seed(user.User{ID: 1, Name: "ana", TelegramToken: "tok", TelegramChatID: "chat", TelegramVerified: true})

	now := time.Date(2026, 3, 7, 16, 0, 0, 0, time.UTC)
	baselines := NewBaselineTracker(120 * time.Second)
	baselines.now = func() time.Time { return now }

	svc, err := NewMonitorService(MonitorParams{
		Config:    MonitorConfig{PollInterval: time.Hour, GameDelay: 0, FetchWorkers: 2},
		Source:    source,
		Rules:     rules,
		Alerts:    alerts,
		Users:     users,
		Notifier:  notifier,
		Baselines: baselines,
		Health:    NewHealthMonitor(),
		Logger:    logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewMonitorService: %v", err)
	}
	svc.now = func() time.Time { return now }

	h := &harness{svc: svc, source: source, notifier: notifier, rules: rules, alerts: alerts, users: users, now: &now}
	t.Cleanup(func() { svc.pool.Release() })
	return h
}

func liveGame(id string) LiveGame {
	return LiveGame{GameID: id, URL: "http://x/r/" + id, League: "Serie B", HomeTeam: "Goias", AwayTeam: "Avai"}
}

func gameSnap(minute int, timeText, score string, stats snapshot.Stats) *snapshot.Snapshot {
	m := minute
	snap := &snapshot.Snapshot{
		HomeTeam: "Goias",
		AwayTeam: "Avai",
		Score:    score,
		TimeText: timeText,
		Stats:    stats,
	}
	if minute >= 0 {
		snap.Minute = &m
	}
	return snap
}

func cornersRule() rule.Rule {
	return rule.Rule{
		UserID:         1,
		Name:           "corner pressure",
		IsActive:       true,
		NotifyTelegram: true,
		Conditions: []rule.TriggerCondition{
			{StatKey: "Corners", Side: snapshot.SideTotal, Operator: ">=", Value: 8, GroupID: 1},
		},
	}
}

func TestMonitorFiresOncePerRuleAndGame(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.rules.Seed(cornersRule())

	stats := snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyGoals:   snapshot.Line(0, 0),
	}
	h.source.set(liveGame("g1"), gameSnap(30, "30", "0 x 0", stats))

	h.svc.RunCycle(ctx)
	h.svc.RunCycle(ctx)
	h.svc.RunCycle(ctx)

	alerts, err := h.alerts.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want exactly 1 across repeated cycles", len(alerts))
	}
	a := alerts[0]
	if a.Status != alert.StatusPending {
		t.Fatalf("status = %s, want pending", a.Status)
	}
	if a.Minute == nil || *a.Minute != 30 {
		t.Fatalf("minute = %v, want 30", a.Minute)
	}
	if got := h.notifier.containing("corner pressure"); got != 1 {
		t.Fatalf("alert notifications = %d, want 1", got)
	}

	r, err := h.rules.GetByID(ctx, a.RuleID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if r.LastAlertAt == nil || !strings.Contains(r.LastAlertDesc, "Goias vs Avai") {
		t.Fatalf("rule bookkeeping not updated: %+v", r)
	}
}

func TestMonitorScoreGate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	zero := 0
	r := cornersRule()
	r.ScoreHome = &zero
	r.ScoreAway = &zero
	h.rules.Seed(r)

	stats := snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyGoals:   snapshot.Line(1, 0),
	}
	h.source.set(liveGame("g1"), gameSnap(30, "30", "1 x 0", stats))
	h.svc.RunCycle(ctx)

	if alerts, _ := h.alerts.ListRecent(ctx, 10); len(alerts) != 0 {
		t.Fatalf("score gate failed: %d alerts", len(alerts))
	}

	// Unknown score also blocks: the gate fails closed.
	h.source.set(liveGame("g2"), gameSnap(30, "30", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
	}))
	h.svc.RunCycle(ctx)
	if alerts, _ := h.alerts.ListRecent(ctx, 10); len(alerts) != 0 {
		t.Fatalf("unknown score fired: %d alerts", len(alerts))
	}
}

func TestMonitorSecondHalfOnlyUsesBaselineDelta(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	r := cornersRule()
	r.SecondHalfOnly = true
	r.Conditions[0].Value = 4
	h.rules.Seed(r)

	// First half: plenty of corners, but the rule must not fire.
	h.source.set(liveGame("g1"), gameSnap(40, "40", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(5, 2),
	}))
	h.svc.RunCycle(ctx)
	if alerts, _ := h.alerts.ListRecent(ctx, 10); len(alerts) != 0 {
		t.Fatal("second-half rule fired in the first half")
	}

	// Interval stashes the baseline, explicit second half confirms it.
	h.source.set(liveGame("g1"), gameSnap(45, "HT", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 2),
	}))
	h.svc.RunCycle(ctx)

	// 2H, delta still below threshold: 3 new corners.
	h.source.set(liveGame("g1"), gameSnap(60, "2nd Half", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(8, 3),
	}))
	h.svc.RunCycle(ctx)
	if alerts, _ := h.alerts.ListRecent(ctx, 10); len(alerts) != 0 {
		t.Fatal("fired below the second-half delta threshold")
	}

	// Delta reaches 4 second-half corners.
	h.source.set(liveGame("g1"), gameSnap(70, "2nd Half", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(9, 3),
	}))
	h.svc.RunCycle(ctx)
	alerts, _ := h.alerts.ListRecent(ctx, 10)
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
}

func TestMonitorDefaultOutcomeGreenOnGoal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.rules.Seed(cornersRule())

	base := snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyGoals:   snapshot.Line(0, 0),
	}
	h.source.set(liveGame("g1"), gameSnap(30, "30", "0 x 0", base))
	h.svc.RunCycle(ctx)

	// Goal arrives: default policy resolves green.
	h.source.set(liveGame("g1"), gameSnap(38, "38", "1 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(7, 3),
		snapshot.KeyGoals:   snapshot.Line(1, 0),
	}))
	h.svc.RunCycle(ctx)

	alerts, _ := h.alerts.ListRecent(ctx, 10)
	if len(alerts) != 1 || alerts[0].Status != alert.StatusGreen {
		t.Fatalf("alerts = %+v, want one green", alerts)
	}
	if alerts[0].ResultTimeOfDay == "" {
		t.Fatal("result time of day not stamped")
	}
	if alerts[0].StatsAtResult == nil {
		t.Fatal("stats at resolution not captured")
	}
	if got, _ := alerts[0].StatsAtResult.Value(snapshot.KeyCorners, snapshot.SideTotal); got != 10 {
		t.Fatalf("resolution corners total = %d, want 10", got)
	}
	if h.notifier.containing("GREEN") != 1 {
		t.Fatal("missing green notification")
	}
}

func TestMonitorDefaultGreenNeedsFirstHalfWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.rules.Seed(cornersRule())

	h.source.set(liveGame("g1"), gameSnap(40, "40", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyGoals:   snapshot.Line(0, 0),
	}))
	h.svc.RunCycle(ctx)

	// The clock jumps past the interval between polls and a goal shows up
	// with second-half evidence: that goal cannot win the first-half window.
	h.source.set(liveGame("g1"), gameSnap(52, "2nd Half", "1 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(7, 3),
		snapshot.KeyGoals:   snapshot.Line(1, 0),
	}))
	h.svc.RunCycle(ctx)

	alerts, _ := h.alerts.ListRecent(ctx, 10)
	if alerts[0].Status == alert.StatusGreen {
		t.Fatal("second-half goal credited to the first-half window")
	}
	if alerts[0].Status != alert.StatusRed {
		t.Fatalf("status = %s, want red once the half is known to be over", alerts[0].Status)
	}
	if h.notifier.containing("GREEN") != 0 {
		t.Fatal("green notification for a second-half goal")
	}
}

func TestMonitorSkipsGamesWithoutClock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.rules.Seed(cornersRule())

	// Qualifying stats but no readable minute: no alert may fire.
	h.source.set(liveGame("g1"), gameSnap(-1, "+2", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyGoals:   snapshot.Line(0, 0),
	}))
	h.svc.RunCycle(ctx)

	if alerts, _ := h.alerts.ListRecent(ctx, 10); len(alerts) != 0 {
		t.Fatalf("fired without a clock: %d alerts", len(alerts))
	}

	// The clock comes back: same stats now fire.
	h.source.set(liveGame("g1"), gameSnap(33, "33", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyGoals:   snapshot.Line(0, 0),
	}))
	h.svc.RunCycle(ctx)
	if alerts, _ := h.alerts.ListRecent(ctx, 10); len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
}

func TestMonitorSecondHalfOnlyClockGate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	r := cornersRule()
	r.SecondHalfOnly = true
	r.Conditions[0].Value = 4
	h.rules.Seed(r)

	h.source.set(liveGame("g1"), gameSnap(45, "HT", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 2),
	}))
	h.svc.RunCycle(ctx)

	// Phase text says second half but the clock still reads below 46: a
	// glitching page must not fire the rule even with the delta met.
	h.source.set(liveGame("g1"), gameSnap(44, "2nd Half", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(11, 2),
	}))
	h.svc.RunCycle(ctx)
	if alerts, _ := h.alerts.ListRecent(ctx, 10); len(alerts) != 0 {
		t.Fatal("second-half rule fired with a first-half clock")
	}

	// The clock rolled into first-half stoppage territory: still blocked.
	h.source.set(liveGame("g1"), gameSnap(47, "45+2", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(11, 2),
	}))
	h.svc.RunCycle(ctx)
	if alerts, _ := h.alerts.ListRecent(ctx, 10); len(alerts) != 0 {
		t.Fatal("second-half rule fired during first-half stoppage")
	}

	// Genuine second half with the delta met fires.
	h.source.set(liveGame("g1"), gameSnap(50, "2nd Half", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(11, 2),
	}))
	h.svc.RunCycle(ctx)
	if alerts, _ := h.alerts.ListRecent(ctx, 10); len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
}

func TestMonitorDefaultOutcomeRedAtHalfEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.rules.Seed(cornersRule())

	h.source.set(liveGame("g1"), gameSnap(30, "30", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyGoals:   snapshot.Line(0, 0),
	}))
	h.svc.RunCycle(ctx)

	// Stoppage time keeps the window open.
	h.source.set(liveGame("g1"), gameSnap(45, "45+3", "0 x 0", snapshot.Stats{
		snapshot.KeyGoals: snapshot.Line(0, 0),
	}))
	h.svc.RunCycle(ctx)
	alerts, _ := h.alerts.ListRecent(ctx, 10)
	if alerts[0].Status != alert.StatusPending {
		t.Fatalf("status = %s, stoppage must not close the window", alerts[0].Status)
	}

	// The interval closes it.
	h.source.set(liveGame("g1"), gameSnap(46, "HT", "0 x 0", snapshot.Stats{
		snapshot.KeyGoals: snapshot.Line(0, 0),
	}))
	h.svc.RunCycle(ctx)
	alerts, _ = h.alerts.ListRecent(ctx, 10)
	if alerts[0].Status != alert.StatusRed {
		t.Fatalf("status = %s, want red at the interval", alerts[0].Status)
	}
}

func TestMonitorCustomOutcomeAndReversal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	r := cornersRule()
	r.OutcomeConditions = []rule.OutcomeCondition{
		{Outcome: rule.OutcomeGreen, StatKey: "Corners", Side: snapshot.SideTotal, Operator: ">=", Value: 3},
		{Outcome: rule.OutcomeRed, StatKey: "Red Card", Side: snapshot.SideTotal, Operator: ">=", Value: 1},
	}
	h.rules.Seed(r)

	h.source.set(liveGame("g1"), gameSnap(30, "30", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
	}))
	h.svc.RunCycle(ctx)

	// A red card first: red outcome holds, green does not.
	h.source.set(liveGame("g1"), gameSnap(40, "40", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 4),
		snapshot.KeyRedCard: snapshot.Line(1, 0),
	}))
	h.svc.RunCycle(ctx)
	alerts, _ := h.alerts.ListRecent(ctx, 10)
	if alerts[0].Status != alert.StatusRed {
		t.Fatalf("status = %s, want red", alerts[0].Status)
	}

	// Three more corners arrive: green takes priority and reverses the red.
	h.source.set(liveGame("g1"), gameSnap(60, "60", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(8, 4),
		snapshot.KeyRedCard: snapshot.Line(1, 0),
	}))
	h.svc.RunCycle(ctx)
	alerts, _ = h.alerts.ListRecent(ctx, 10)
	if alerts[0].Status != alert.StatusGreen {
		t.Fatalf("status = %s, want reversed green", alerts[0].Status)
	}
	if !alerts[0].Reversed {
		t.Fatal("reversal flag not set")
	}
	if h.notifier.containing("reversed") == 0 {
		t.Fatal("missing reversal notification")
	}
}

func TestMonitorRedDeadline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	deadline := 75
	r := cornersRule()
	r.OutcomeGreenStage = ""
	r.OutcomeRedMinute = &deadline
	r.OutcomeRedIfNoGreen = true
	r.OutcomeConditions = []rule.OutcomeCondition{
		{Outcome: rule.OutcomeGreen, StatKey: "Goals", Side: snapshot.SideTotal, Operator: ">=", Value: 1},
	}
	h.rules.Seed(r)

	h.source.set(liveGame("g1"), gameSnap(60, "60", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyGoals:   snapshot.Line(0, 0),
	}))
	h.svc.RunCycle(ctx)

	h.source.set(liveGame("g1"), gameSnap(76, "76", "0 x 0", snapshot.Stats{
		snapshot.KeyGoals: snapshot.Line(0, 0),
	}))
	h.svc.RunCycle(ctx)

	alerts, _ := h.alerts.ListRecent(ctx, 10)
	if alerts[0].Status != alert.StatusRed {
		t.Fatalf("status = %s, want red after the deadline", alerts[0].Status)
	}
}

func TestMonitorFullTimeFinalization(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.rules.Seed(cornersRule())

	h.source.set(liveGame("g1"), gameSnap(80, "80", "1 x 1", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyGoals:   snapshot.Line(1, 1),
	}))
	h.svc.RunCycle(ctx)

	h.source.set(liveGame("g1"), gameSnap(90, "FT", "1 x 1", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(7, 4),
		snapshot.KeyGoals:   snapshot.Line(1, 1),
	}))
	h.svc.RunCycle(ctx)

	alerts, _ := h.alerts.ListRecent(ctx, 10)
	a := alerts[0]
	if !a.FTCompleted {
		t.Fatal("full-time pass did not complete")
	}
	if a.Status != alert.StatusRed {
		t.Fatalf("status = %s, want red (no goal after alert)", a.Status)
	}
	if a.StatsFinal == nil {
		t.Fatal("final stats not captured")
	}
	if got, _ := a.StatsFinal.Value(snapshot.KeyCorners, snapshot.SideTotal); got != 11 {
		t.Fatalf("final corners total = %d, want 11", got)
	}

	// Further cycles must not touch the finalized alert.
	before := h.notifier.containing("RED")
	h.svc.RunCycle(ctx)
	if h.notifier.containing("RED") != before {
		t.Fatal("finalized alert re-notified")
	}
}

func TestMonitorSendsSpreadsheetAtFullTime(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.rules.Seed(cornersRule())
	h.svc.exporter = NewCSVExporter(t.TempDir(), "alerts.csv", logging.NewNop())

	h.source.set(liveGame("g1"), gameSnap(80, "80", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyGoals:   snapshot.Line(0, 0),
	}))
	h.svc.RunCycle(ctx)
	if len(h.notifier.documents) != 0 {
		t.Fatal("spreadsheet sent before full time")
	}

	h.source.set(liveGame("g1"), gameSnap(90, "FT", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(7, 4),
		snapshot.KeyGoals:   snapshot.Line(0, 0),
	}))
	h.svc.RunCycle(ctx)

	if len(h.notifier.documents) != 1 {
		t.Fatalf("documents sent = %d, want 1", len(h.notifier.documents))
	}
	if !strings.HasSuffix(h.notifier.documents[0], "alerts.csv") {
		t.Fatalf("document path = %q", h.notifier.documents[0])
	}
}

func TestMonitorFinalizesWhenGameDisappears(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.rules.Seed(cornersRule())

	h.source.set(liveGame("g1"), gameSnap(85, "85", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyGoals:   snapshot.Line(0, 0),
	}))
	h.svc.RunCycle(ctx)

	h.source.drop("g1")
	h.svc.RunCycle(ctx)

	alerts, _ := h.alerts.ListRecent(ctx, 10)
	if !alerts[0].FTCompleted || alerts[0].Status != alert.StatusRed {
		t.Fatalf("alert = %+v, want finalized red", alerts[0])
	}
}

func TestMonitorYouthFilter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	r := cornersRule()
	r.ExcludeYouth = true
	h.rules.Seed(r)

	g := liveGame("g1")
	g.League = "Brazil U20 Championship"
	h.source.set(g, gameSnap(30, "30", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
	}))
	h.svc.RunCycle(ctx)

	if alerts, _ := h.alerts.ListRecent(ctx, 10); len(alerts) != 0 {
		t.Fatalf("youth filter failed: %d alerts", len(alerts))
	}
}

func TestMonitorHealthTransitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.source.mu.Lock()
	h.source.fail = true
	h.source.mu.Unlock()

	h.svc.RunCycle(ctx) // first observation is already down: announce
	h.svc.RunCycle(ctx) // ongoing: silent
	h.svc.RunCycle(ctx)
	if got := h.notifier.containing("down"); got != 1 {
		t.Fatalf("outage notifications = %d, want 1", got)
	}

	h.source.mu.Lock()
	h.source.fail = false
	h.source.mu.Unlock()

	h.svc.RunCycle(ctx)
	if got := h.notifier.containing("recovered"); got != 1 {
		t.Fatalf("recovery notifications = %d, want 1", got)
	}
	status := h.svc.Health()
	if status.OK == nil || !*status.OK {
		t.Fatal("health not restored")
	}
	if status.LastHTTPCode == nil || *status.LastHTTPCode != 200 {
		t.Fatalf("lastHttpCode = %v, want 200", status.LastHTTPCode)
	}
}

func TestMonitorHealthTracksHTTPStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// The site answering 403 is an outage even though no error occurred.
	h.source.mu.Lock()
	h.source.status = 403
	h.source.mu.Unlock()

	h.svc.RunCycle(ctx)
	if got := h.notifier.containing("down"); got != 1 {
		t.Fatalf("outage notifications = %d, want 1", got)
	}
	status := h.svc.Health()
	if status.OK == nil || *status.OK {
		t.Fatal("monitor still reports ok on HTTP 403")
	}
	if status.LastHTTPCode == nil || *status.LastHTTPCode != 403 {
		t.Fatalf("lastHttpCode = %v, want 403", status.LastHTTPCode)
	}
}

func TestMonitorHealthFirstObservationOKIsSilent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.svc.RunCycle(ctx)
	if got := h.notifier.containing("recovered"); got != 0 {
		t.Fatalf("recovery notifications = %d, want none on a healthy start", got)
	}
	if got := h.notifier.containing("down"); got != 0 {
		t.Fatalf("outage notifications = %d, want none on a healthy start", got)
	}
}

func TestMonitorPenaltyPulse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	r := cornersRule()
	r.AlertOnPenalty = true
	h.rules.Seed(r)

	h.source.set(liveGame("g1"), gameSnap(30, "30", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
	}))
	h.svc.RunCycle(ctx)

	// First penalty: one message.
	h.source.set(liveGame("g1"), gameSnap(40, "40", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners:   snapshot.Line(6, 3),
		snapshot.KeyPenalties: snapshot.Line(1, 0),
	}))
	h.svc.RunCycle(ctx)
	h.svc.RunCycle(ctx) // unchanged count: no repeat
	if got := h.notifier.containing("Penalty"); got != 1 {
		t.Fatalf("penalty notifications = %d, want 1", got)
	}

	// The penalty message is single-shot per alert: a second penalty only
	// advances the counters.
	h.source.set(liveGame("g1"), gameSnap(55, "55", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners:   snapshot.Line(6, 3),
		snapshot.KeyPenalties: snapshot.Line(1, 1),
	}))
	h.svc.RunCycle(ctx)
	if got := h.notifier.containing("Penalty"); got != 1 {
		t.Fatalf("penalty notifications = %d, want 1 across the whole alert", got)
	}

	alerts, _ := h.alerts.ListRecent(ctx, 10)
	if alerts[0].PenaltySeenHome != 1 || alerts[0].PenaltySeenAway != 1 {
		t.Fatalf("seen counters = %d/%d, want 1/1", alerts[0].PenaltySeenHome, alerts[0].PenaltySeenAway)
	}
	if !alerts[0].PenaltyNotified {
		t.Fatal("single-shot flag not persisted")
	}
}

func TestMonitorPenaltyPulseGuards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	r := cornersRule()
	r.AlertOnPenalty = true
	r.TimeLimitMin = 60
	h.rules.Seed(r)

	h.source.set(liveGame("g1"), gameSnap(30, "30", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyMinute:  snapshot.Values{snapshot.SideTotal: 30},
	}))
	h.svc.RunCycle(ctx)

	// Unknown minute: no penalty message.
	h.source.set(liveGame("g1"), gameSnap(-1, "45+2", "0 x 0", snapshot.Stats{
		snapshot.KeyPenalties: snapshot.Line(1, 0),
	}))
	h.svc.RunCycle(ctx)
	if got := h.notifier.containing("Penalty"); got != 0 {
		t.Fatalf("penalty notification with no clock: %d", got)
	}

	// Past the rule's time limit: still nothing.
	h.source.set(liveGame("g1"), gameSnap(75, "75", "0 x 0", snapshot.Stats{
		snapshot.KeyPenalties: snapshot.Line(1, 0),
	}))
	h.svc.RunCycle(ctx)
	if got := h.notifier.containing("Penalty"); got != 0 {
		t.Fatalf("penalty notification past the time limit: %d", got)
	}
}

func TestMonitorPenaltyPulseSuppressedAtFullTime(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	r := cornersRule()
	r.AlertOnPenalty = true
	h.rules.Seed(r)

	h.source.set(liveGame("g1"), gameSnap(80, "80", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
	}))
	h.svc.RunCycle(ctx)

	h.source.set(liveGame("g1"), gameSnap(90, "FT", "0 x 0", snapshot.Stats{
		snapshot.KeyPenalties: snapshot.Line(1, 0),
	}))
	h.svc.RunCycle(ctx)
	if got := h.notifier.containing("Penalty"); got != 0 {
		t.Fatalf("penalty notification at full time: %d", got)
	}
}

func TestMonitorGoalDisallowedReopensAlert(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.rules.Seed(cornersRule())

	stats := snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyGoals:   snapshot.Line(0, 0),
	}
	h.source.set(liveGame("g1"), gameSnap(10, "10", "0 x 0", stats))
	h.svc.RunCycle(ctx)

	goalStats := snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyGoals:   snapshot.Line(1, 0),
	}
	h.source.set(liveGame("g1"), gameSnap(20, "20", "1 x 0", goalStats))
	h.svc.RunCycle(ctx)

	alerts, err := h.alerts.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Status != alert.StatusGreen {
		t.Fatalf("expected one green alert before the correction, got %+v", alerts)
	}

	// The site takes the goal back: score drops at a later minute.
	h.source.set(liveGame("g1"), gameSnap(21, "21", "0 x 0", stats))
	h.svc.RunCycle(ctx)

	alerts, err = h.alerts.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	a := alerts[0]
	if a.Status != alert.StatusPending {
		t.Fatalf("status after correction = %s, want pending", a.Status)
	}
	if !a.Reversed {
		t.Fatalf("expected Reversed flag after correction")
	}
	if a.ResultMinute != nil || a.ResultScore != "" || a.ResultTimeOfDay != "" {
		t.Fatalf("result fields not cleared: %+v", a)
	}
	if got := h.notifier.containing("disallowed"); got != 1 {
		t.Fatalf("disallowed notifications = %d, want 1", got)
	}

	// A real goal later settles it green again.
	h.source.set(liveGame("g1"), gameSnap(30, "30", "1 x 0", goalStats))
	h.svc.RunCycle(ctx)

	alerts, err = h.alerts.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if alerts[0].Status != alert.StatusGreen {
		t.Fatalf("status after new goal = %s, want green", alerts[0].Status)
	}
}

func TestMonitorReopenComparesLastSeenScore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.rules.Seed(cornersRule())

	stats := snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyGoals:   snapshot.Line(0, 0),
	}
	h.source.set(liveGame("g1"), gameSnap(10, "10", "0 x 0", stats))
	h.svc.RunCycle(ctx)

	h.source.set(liveGame("g1"), gameSnap(20, "20", "1 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyGoals:   snapshot.Line(1, 0),
	}))
	h.svc.RunCycle(ctx)

	// A second goal lands after resolution; only the running score moves.
	h.source.set(liveGame("g1"), gameSnap(25, "25", "2 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyGoals:   snapshot.Line(2, 0),
	}))
	h.svc.RunCycle(ctx)

	alerts, _ := h.alerts.ListRecent(ctx, 10)
	a := alerts[0]
	if a.Status != alert.StatusGreen {
		t.Fatalf("status = %s, want green before the correction", a.Status)
	}
	if a.LastScore != "2 x 0" {
		t.Fatalf("last seen score = %q, want 2 x 0", a.LastScore)
	}
	if a.LastScoreMinute == nil || *a.LastScoreMinute != 25 {
		t.Fatalf("last seen minute = %v, want 25", a.LastScoreMinute)
	}

	// The second goal is disallowed. The verdict was recorded at 1 x 0, so
	// comparing against the result score alone would miss this regression.
	h.source.set(liveGame("g1"), gameSnap(26, "26", "1 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyGoals:   snapshot.Line(1, 0),
	}))
	h.svc.RunCycle(ctx)

	alerts, _ = h.alerts.ListRecent(ctx, 10)
	a = alerts[0]
	if a.Status != alert.StatusPending {
		t.Fatalf("status after correction = %s, want pending", a.Status)
	}
	if !a.Reversed {
		t.Fatal("reversal flag not set")
	}
	if a.StatsAtResult != nil {
		t.Fatal("resolution stats not cleared on reopen")
	}
	if a.LastScore != "1 x 0" || a.LastScoreMinute == nil || *a.LastScoreMinute != 26 {
		t.Fatalf("last seen not rebased: %q at %v", a.LastScore, a.LastScoreMinute)
	}
	if got := h.notifier.containing("disallowed"); got != 1 {
		t.Fatalf("disallowed notifications = %d, want 1", got)
	}
}

func TestMonitorAlertMessageIncludesHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.rules.Seed(cornersRule())

	h.source.mu.Lock()
	h.source.history = &MatchHistory{
		H2H: []HistoryItem{{Home: 2, Away: 1, Total: 3}, {Home: 1, Away: 1, Total: 2}},
	}
	h.source.mu.Unlock()

	h.source.set(liveGame("g1"), gameSnap(30, "30", "0 x 0", snapshot.Stats{
		snapshot.KeyCorners: snapshot.Line(6, 3),
		snapshot.KeyGoals:   snapshot.Line(0, 0),
	}))
	h.svc.RunCycle(ctx)

	if got := h.notifier.containing("H2H: 2 games"); got != 1 {
		t.Fatalf("alert messages with a head-to-head line = %d, want 1", got)
	}
}

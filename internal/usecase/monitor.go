package usecase

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"

	"github.com/matchwatch/livealert/internal/domain/alert"
	"github.com/matchwatch/livealert/internal/domain/rule"
	"github.com/matchwatch/livealert/internal/domain/snapshot"
	"github.com/matchwatch/livealert/internal/domain/user"
	"github.com/matchwatch/livealert/internal/platform/logging"
)

const (
	defaultPollInterval = 15 * time.Second
	defaultGameDelay    = 1500 * time.Millisecond
	defaultFetchWorkers = 4
)

// resultTimeLocation renders result-of-day stamps in the audience's
// timezone, matching the spreadsheet users already keep by hand.
var resultTimeLocation = mustLoadLocation("America/Sao_Paulo")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

type MonitorConfig struct {
	PollInterval time.Duration
	GameDelay    time.Duration
	FetchWorkers int
}

func (c MonitorConfig) normalized() MonitorConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.GameDelay < 0 {
		c.GameDelay = defaultGameDelay
	}
	if c.FetchWorkers <= 0 {
		c.FetchWorkers = defaultFetchWorkers
	}
	return c
}

type MonitorParams struct {
	Config    MonitorConfig
	Source    MatchSource
	Rules     rule.Repository
	Alerts    alert.Repository
	Users     user.Repository
	Notifier  Notifier
	Exporter  Exporter
	Baselines *BaselineTracker
	Health    *HealthMonitor
	Logger    *logging.Logger
}

// MonitorService runs the poll loop: list live matches, fetch their
// statistics concurrently, fire rules, then follow every open alert to its
// outcome. Alert mutation is confined to the loop goroutine; only page
// fetches fan out to the worker pool.
type MonitorService struct {
	cfg       MonitorConfig
	source    MatchSource
	rules     rule.Repository
	alerts    alert.Repository
	users     user.Repository
	notifier  Notifier
	exporter  Exporter
	baselines *BaselineTracker
	health    *HealthMonitor
	logger    *logging.Logger
	pool      *ants.Pool
	now       func() time.Time
}

func NewMonitorService(params MonitorParams) (*MonitorService, error) {
	if params.Source == nil || params.Rules == nil || params.Alerts == nil || params.Users == nil {
		return nil, crerr.New("monitor: source and repositories are required")
	}
	logger := params.Logger
	if logger == nil {
		logger = logging.Default()
	}
	cfg := params.Config.normalized()

	pool, err := ants.NewPool(cfg.FetchWorkers, ants.WithNonblocking(false))
	if err != nil {
		return nil, crerr.Wrap(err, "create fetch pool")
	}

	baselines := params.Baselines
	if baselines == nil {
		baselines = NewBaselineTracker(DefaultHalftimeConfirm)
	}
	health := params.Health
	if health == nil {
		health = NewHealthMonitor()
	}

	return &MonitorService{
		cfg:       cfg,
		source:    params.Source,
		rules:     params.Rules,
		alerts:    params.Alerts,
		users:     params.Users,
		notifier:  params.Notifier,
		exporter:  params.Exporter,
		baselines: baselines,
		health:    health,
		logger:    logger,
		pool:      pool,
		now:       time.Now,
	}, nil
}

// Health exposes monitoring state for the status API.
func (s *MonitorService) Health() HealthStatus {
	return s.health.Status()
}

// Run executes poll cycles until the context is cancelled.
func (s *MonitorService) Run(ctx context.Context) error {
	defer s.pool.Release()

	s.RunCycle(ctx)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle performs one full poll: list, fetch, evaluate, follow, finalize.
func (s *MonitorService) RunCycle(ctx context.Context) {
	defer s.health.MarkCycle()

	games, httpStatus, err := s.source.FetchLiveGames(ctx)
	ok := err == nil && httpStatus == http.StatusOK
	if err != nil {
		s.logger.WarnContext(ctx, "live game list fetch failed", "status", httpStatus, "error", err)
	} else if !ok {
		s.logger.WarnContext(ctx, "live game list fetch returned non-OK status", "status", httpStatus)
	}
	switch s.health.Observe(ok, httpStatus, err) {
	case HealthWentDown:
		reason := fmt.Sprintf("HTTP %d", httpStatus)
		if err != nil {
			reason = err.Error()
		}
		s.notifyAdmins(ctx, fmt.Sprintf("⚠️ Live data source is down: %s", reason))
	case HealthRecovered:
		s.notifyAdmins(ctx, "✅ Live data source recovered")
	}
	if !ok {
		return
	}

	activeRules, err := s.rules.ListActive(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "list active rules failed", "error", err)
		return
	}

	snapshots := s.fetchSnapshots(ctx, games)

	gamesByID := make(map[string]LiveGame, len(games))
	for _, g := range games {
		gamesByID[g.GameID] = g
	}

	// Feed the baseline tracker for every live game, whether or not any
	// second-half rule is active yet.
	baselineByGame := make(map[string]snapshot.Stats, len(snapshots))
	for id, snap := range snapshots {
		if base, ok := s.baselines.Observe(id, snap); ok {
			baselineByGame[id] = base
		}
	}

	cycle := newCycleState()
	for _, g := range games {
		snap, ok := snapshots[g.GameID]
		if !ok {
			continue
		}
		// No readable clock means no rule decisions for this game this cycle.
		if snap.Minute == nil {
			continue
		}
		for i := range activeRules {
			s.evaluateRuleForGame(ctx, cycle, &activeRules[i], g, snap, baselineByGame[g.GameID])
		}
	}
	s.touchCheckedRules(ctx, cycle)

	s.followAlerts(ctx, cycle, gamesByID, snapshots)
}

// fetchSnapshots loads every live game's page through the worker pool,
// pacing submissions so the site never sees a request burst.
func (s *MonitorService) fetchSnapshots(ctx context.Context, games []LiveGame) map[string]*snapshot.Snapshot {
	out := make(map[string]*snapshot.Snapshot, len(games))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, g := range games {
		if ctx.Err() != nil {
			break
		}
		g := g
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			snap, err := s.source.FetchSnapshot(ctx, g.GameID)
			if err != nil {
				s.logger.WarnContext(ctx, "snapshot fetch failed", "game_id", g.GameID, "error", err)
				return
			}
			if snap.HomeTeam == "" {
				snap.HomeTeam = g.HomeTeam
			}
			if snap.AwayTeam == "" {
				snap.AwayTeam = g.AwayTeam
			}
			snap.League = g.League
			mu.Lock()
			out[g.GameID] = snap
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			s.logger.WarnContext(ctx, "submit snapshot fetch failed", "game_id", g.GameID, "error", err)
			continue
		}
		if s.cfg.GameDelay > 0 {
			timer := time.NewTimer(s.cfg.GameDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}

	wg.Wait()
	return out
}

// cycleState carries per-cycle caches so repositories are hit once per
// entity per cycle.
type cycleState struct {
	users       map[int64]*user.User
	rulesByID   map[int64]*rule.Rule
	checkedDesc map[int64]string
}

func newCycleState() *cycleState {
	return &cycleState{
		users:       make(map[int64]*user.User, 8),
		rulesByID:   make(map[int64]*rule.Rule, 16),
		checkedDesc: make(map[int64]string, 16),
	}
}

func (s *MonitorService) evaluateRuleForGame(ctx context.Context, cycle *cycleState, r *rule.Rule, g LiveGame, snap *snapshot.Snapshot, baseline snapshot.Stats) {
	cycle.rulesByID[r.ID] = r
	cycle.checkedDesc[r.ID] = g.Description()

	if r.ExcludeYouth && IsYouthGame(g.League, g.HomeTeam, g.AwayTeam) {
		return
	}

	exists, err := s.alerts.Exists(ctx, r.ID, g.GameID)
	if err != nil {
		s.logger.ErrorContext(ctx, "alert existence check failed", "rule_id", r.ID, "game_id", g.GameID, "error", err)
		return
	}
	if exists {
		return
	}

	stats := snap.Stats
	if r.SecondHalfOnly {
		// First-half stoppage minutes can read 46+ on some pages; require
		// both a second-half clock and the absence of first-half extra time.
		if snap.Minute == nil || *snap.Minute < 46 || snapshot.IsFirstHalfStoppage(snap.TimeText) {
			return
		}
		if baseline == nil {
			return
		}
		stats = snapshot.SecondHalfDelta(snap.Stats, baseline)
		if snap.Minute != nil {
			snapshot.RebaseMinute(stats, *snap.Minute)
		}
	}

	// Score gate: an unknown score fails closed like any other condition.
	if r.ScoreHome != nil || r.ScoreAway != nil {
		home, okH := snap.Stats.Value(snapshot.KeyGoals, snapshot.SideHome)
		away, okA := snap.Stats.Value(snapshot.KeyGoals, snapshot.SideAway)
		if !okH || !okA {
			return
		}
		if r.ScoreHome != nil && home != *r.ScoreHome {
			return
		}
		if r.ScoreAway != nil && away != *r.ScoreAway {
			return
		}
	}

	if r.TimeLimitMin > 0 {
		minute, ok := stats.Value(snapshot.KeyMinute, snapshot.SideTotal)
		if !ok || minute > r.TimeLimitMin {
			return
		}
	}

	fired, group := rule.Evaluate(*r, stats)
	if !fired {
		return
	}

	s.fireAlert(ctx, cycle, r, g, snap, group)
}

func (s *MonitorService) fireAlert(ctx context.Context, cycle *cycleState, r *rule.Rule, g LiveGame, snap *snapshot.Snapshot, group int) {
	now := s.now()
	a := &alert.Alert{
		RuleID:       r.ID,
		UserID:       r.UserID,
		GameID:       g.GameID,
		League:       g.League,
		HomeTeam:     snap.HomeTeam,
		AwayTeam:     snap.AwayTeam,
		GameURL:      g.URL,
		Minute:       snap.Minute,
		Score:        snap.Score,
		MatchedGrp:   group,
		Status:       alert.StatusPending,
		LastScore:    snap.Score,
		StatsAtAlert: snap.Stats.Clone(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if snap.Minute != nil {
		m := *snap.Minute
		a.LastScoreMinute = &m
	}
	if pens, ok := snap.Stats[snapshot.KeyPenalties]; ok {
		a.PenaltySeenHome = pens[snapshot.SideHome]
		a.PenaltySeenAway = pens[snapshot.SideAway]
	}

	if err := s.alerts.Create(ctx, a); err != nil {
		if crerr.Is(err, alert.ErrDuplicateAlert) {
			// Another cycle or worker won the race; nothing to do.
			return
		}
		s.logger.ErrorContext(ctx, "create alert failed", "rule_id", r.ID, "game_id", g.GameID, "error", err)
		return
	}

	s.logger.InfoContext(ctx, "alert created",
		"alert_id", a.ID, "rule_id", r.ID, "game_id", g.GameID,
		"match", g.Description(), "matched_group", group,
	)

	if err := s.rules.TouchAlerted(ctx, r.ID, now, g.Description()); err != nil {
		s.logger.WarnContext(ctx, "touch rule alerted failed", "rule_id", r.ID, "error", err)
	}

	confidence := ""
	if statuses, err := s.alerts.RecentStatuses(ctx, r.ID, confidenceWindow); err == nil {
		confidence = ConfidenceLabel(statuses)
	}

	if r.NotifyTelegram {
		insight := s.historyInsight(ctx, r, g)
		s.notifyUser(ctx, cycle, r.UserID, BuildAlertMessage(*r, g, snap, confidence, insight))
	}
	s.exportAlert(ctx, a, r.Name)
}

// historyInsight enriches a fresh alert with past-match summaries when the
// source can serve them. History is best effort: any failure degrades to an
// alert without the extra lines.
func (s *MonitorService) historyInsight(ctx context.Context, r *rule.Rule, g LiveGame) HistoryInsight {
	hs, ok := s.source.(HistorySource)
	if !ok {
		return HistoryInsight{}
	}
	mh, err := hs.FetchMatchHistory(ctx, g.GameID)
	if err != nil {
		s.logger.WarnContext(ctx, "match history fetch failed", "game_id", g.GameID, "error", err)
		return HistoryInsight{}
	}
	return BuildHistoryInsight(mh, historyConditions(r))
}

// followAlerts walks every open alert: resolves outcomes, reverses verdicts
// the match later contradicts, pulses penalty events, and finalizes games
// that reached full time.
func (s *MonitorService) followAlerts(ctx context.Context, cycle *cycleState, games map[string]LiveGame, snapshots map[string]*snapshot.Snapshot) {
	open, err := s.alerts.ListUnfinalized(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "list open alerts failed", "error", err)
		return
	}

	for i := range open {
		a := &open[i]
		snap, live := snapshots[a.GameID]
		if !live {
			// Dropped off the live list: the match is over and the page is
			// gone. Close the alert with the data already in hand.
			s.finalizeAlert(ctx, cycle, a, nil)
			continue
		}

		r := s.ruleFor(ctx, cycle, a.RuleID)
		if r == nil {
			continue
		}

		reopened := false
		if a.Status != alert.StatusPending {
			reopened = s.maybeReopen(ctx, cycle, a, r, snap)
		}
		if !reopened {
			// Track the running score every poll so a later correction is
			// judged against what was actually last seen, not the verdict.
			if snap.Score != "" {
				a.LastScore = snap.Score
				if snap.Minute != nil {
					m := *snap.Minute
					a.LastScoreMinute = &m
				}
			}

			if r.AlertOnPenalty {
				s.pulsePenalties(ctx, cycle, a, r, snap)
			}

			if a.Status == alert.StatusPending {
				s.resolvePending(ctx, cycle, a, r, snap)
			} else {
				s.maybeReverse(ctx, cycle, a, r, snap)
			}
		}

		minute := -1
		if snap.Minute != nil {
			minute = *snap.Minute
		}
		if snapshot.IsFullTime(snap.TimeText, minute) {
			s.finalizeAlert(ctx, cycle, a, snap)
		} else if err := s.alerts.Update(ctx, a); err != nil {
			s.logger.ErrorContext(ctx, "update alert failed", "alert_id", a.ID, "error", err)
		}
	}
}

// resolvePending applies outcome policies in priority order: custom green,
// custom red, red-by-deadline, then default next-goal semantics.
func (s *MonitorService) resolvePending(ctx context.Context, cycle *cycleState, a *alert.Alert, r *rule.Rule, snap *snapshot.Snapshot) {
	minute := -1
	if snap.Minute != nil {
		minute = *snap.Minute
	}
	delta := snapshot.AlertDelta(snap.Stats, a.StatsAtAlert, snap.Minute, a.Minute)

	green := r.GreenConditions()
	red := r.RedConditions()

	switch {
	case len(green) > 0 && s.stageReached(r.OutcomeGreenStage, snap, minute) && rule.EvaluateOutcomes(green, delta):
		s.resolve(ctx, cycle, a, r, snap, alert.StatusGreen, "")
	case len(red) > 0 && s.stageReached(r.OutcomeRedStage, snap, minute) && rule.EvaluateOutcomes(red, delta):
		s.resolve(ctx, cycle, a, r, snap, alert.StatusRed, "")
	case r.OutcomeRedMinute != nil && r.OutcomeRedIfNoGreen && minute >= *r.OutcomeRedMinute:
		s.resolve(ctx, cycle, a, r, snap, alert.StatusRed, "deadline reached without a goal")
	case len(green) == 0 && len(red) == 0:
		s.resolveDefault(ctx, cycle, a, r, snap, minute)
	}
}

// resolveDefault is the next-goal policy: a goal after the alert wins, the
// end of the alert's half without one loses.
func (s *MonitorService) resolveDefault(ctx context.Context, cycle *cycleState, a *alert.Alert, r *rule.Rule, snap *snapshot.Snapshot, minute int) {
	if snap.Score != a.Score {
		// Only a goal inside the first-half window wins. A change first seen
		// alongside second-half evidence cannot be credited to the window.
		if snapshot.InFirstHalfGoalWindow(snap.TimeText, minute) {
			s.resolve(ctx, cycle, a, r, snap, alert.StatusGreen, "goal after alert")
			return
		}
	}

	firedFirstHalf := a.Minute != nil && *a.Minute <= 45
	if firedFirstHalf {
		// First-half stoppage still counts toward the window; only genuine
		// interval or second-half evidence closes it.
		if snapshot.IsSecondHalf(snap.TimeText) ||
			(snapshot.IsHalfTime(snap.TimeText, minute) && !snapshot.IsFirstHalfStoppage(snap.TimeText)) {
			s.resolve(ctx, cycle, a, r, snap, alert.StatusRed, "half ended without a goal")
		}
		return
	}
	if snapshot.IsFullTime(snap.TimeText, minute) {
		s.resolve(ctx, cycle, a, r, snap, alert.StatusRed, "match ended without a goal")
	}
}

// maybeReopen returns a settled alert to pending when goals come off the
// board, the site's correction for a disallowed goal. The comparison runs
// against the last score seen on any poll, so a goal scored and then
// disallowed after resolution is still caught. Corrections apparently from
// an earlier minute than the last observation are ignored as stale pages.
func (s *MonitorService) maybeReopen(ctx context.Context, cycle *cycleState, a *alert.Alert, r *rule.Rule, snap *snapshot.Snapshot) bool {
	if snap.Score == "" || snap.Minute == nil {
		return false
	}
	last := a.LastScore
	if last == "" {
		last = a.Score
	}
	lastMinute := a.LastScoreMinute
	if lastMinute == nil {
		lastMinute = a.Minute
	}
	if lastMinute != nil && *snap.Minute < *lastMinute {
		return false
	}
	lastHome, lastAway := snapshot.ParseScore(last)
	curHome, curAway := snapshot.ParseScore(snap.Score)
	if curHome >= lastHome && curAway >= lastAway {
		return false
	}

	a.Status = alert.StatusPending
	a.Reversed = true
	a.ResultMinute = nil
	a.ResultTimeOfDay = ""
	a.ResultScore = ""
	a.StatsAtResult = nil
	a.ResolvedAt = nil
	a.LastScore = snap.Score
	m := *snap.Minute
	a.LastScoreMinute = &m
	a.UpdatedAt = s.now()

	s.logger.InfoContext(ctx, "alert reopened after score correction",
		"alert_id", a.ID, "game_id", a.GameID, "score", snap.Score,
	)
	if r.NotifyTelegram {
		s.notifyUser(ctx, cycle, a.UserID,
			fmt.Sprintf("↩️ Goal disallowed in %s vs %s (%s), alert back to pending", a.HomeTeam, a.AwayTeam, snap.Score))
	}
	return true
}

// maybeReverse flips a verdict the match contradicts before full time.
// Only custom outcome conditions can reverse; default next-goal verdicts
// are terminal.
func (s *MonitorService) maybeReverse(ctx context.Context, cycle *cycleState, a *alert.Alert, r *rule.Rule, snap *snapshot.Snapshot) {
	green := r.GreenConditions()
	red := r.RedConditions()
	if len(green) == 0 && len(red) == 0 {
		return
	}

	minute := -1
	if snap.Minute != nil {
		minute = *snap.Minute
	}
	delta := snapshot.AlertDelta(snap.Stats, a.StatsAtAlert, snap.Minute, a.Minute)

	greenHolds := len(green) > 0 && s.stageReached(r.OutcomeGreenStage, snap, minute) && rule.EvaluateOutcomes(green, delta)
	redHolds := len(red) > 0 && s.stageReached(r.OutcomeRedStage, snap, minute) && rule.EvaluateOutcomes(red, delta)

	// Green keeps priority over red, mirroring initial resolution.
	switch {
	case a.Status == alert.StatusRed && greenHolds:
		s.resolve(ctx, cycle, a, r, snap, alert.StatusGreen, "reversed: green conditions met")
	case a.Status == alert.StatusGreen && !greenHolds && redHolds:
		s.resolve(ctx, cycle, a, r, snap, alert.StatusRed, "reversed: red conditions met")
	}
}

func (s *MonitorService) resolve(ctx context.Context, cycle *cycleState, a *alert.Alert, r *rule.Rule, snap *snapshot.Snapshot, status alert.Status, note string) {
	now := s.now()
	a.Resolve(status, snap.Minute, snap.Score, now)
	a.ResultTimeOfDay = now.In(resultTimeLocation).Format("15:04")
	a.StatsAtResult = snap.Stats.Clone()
	a.LastScore = snap.Score
	if snap.Minute != nil {
		m := *snap.Minute
		a.LastScoreMinute = &m
	}
	a.UpdatedAt = now

	s.logger.InfoContext(ctx, "alert resolved",
		"alert_id", a.ID, "rule_id", a.RuleID, "game_id", a.GameID,
		"status", string(status), "reversed", a.Reversed, "note", note,
	)

	if r.NotifyTelegram {
		view := AlertView{
			RuleName: r.Name,
			HomeTeam: a.HomeTeam,
			AwayTeam: a.AwayTeam,
			Score:    snap.Score,
		}
		if snap.Minute != nil {
			view.Minute = strconv.Itoa(*snap.Minute)
		}
		s.notifyUser(ctx, cycle, a.UserID, BuildOutcomeMessage(view, string(status), note))
	}
	s.exportAlert(ctx, a, r.Name)
}

// pulsePenalties watches the penalty counters and sends at most one penalty
// notification over the whole life of an alert. Pulses are suppressed once
// the match ends or the rule's time limit has passed.
func (s *MonitorService) pulsePenalties(ctx context.Context, cycle *cycleState, a *alert.Alert, r *rule.Rule, snap *snapshot.Snapshot) {
	if !r.NotifyTelegram {
		return
	}
	if snap.Minute == nil || *snap.Minute <= 0 {
		return
	}
	minute := *snap.Minute
	if snapshot.IsFullTime(snap.TimeText, minute) {
		return
	}
	if r.TimeLimitMin > 0 && minute > r.TimeLimitMin {
		return
	}

	pens, ok := snap.Stats[snapshot.KeyPenalties]
	if !ok {
		return
	}
	home := pens[snapshot.SideHome]
	away := pens[snapshot.SideAway]
	if home+away <= 0 {
		return
	}
	if home <= a.PenaltySeenHome && away <= a.PenaltySeenAway {
		return
	}
	if home > a.PenaltySeenHome {
		a.PenaltySeenHome = home
	}
	if away > a.PenaltySeenAway {
		a.PenaltySeenAway = away
	}
	a.UpdatedAt = s.now()

	if a.PenaltyNotified {
		return
	}
	a.PenaltyNotified = true
	s.notifyUser(ctx, cycle, a.UserID,
		fmt.Sprintf("⚡ Penalty in %s vs %s (%s)", a.HomeTeam, a.AwayTeam, snap.Score))
}

// finalizeAlert runs the full-time pass exactly once per alert: settle any
// still-pending verdict, stamp final stats, and release the game's baseline.
func (s *MonitorService) finalizeAlert(ctx context.Context, cycle *cycleState, a *alert.Alert, snap *snapshot.Snapshot) {
	if a.FTCompleted {
		return
	}
	r := s.ruleFor(ctx, cycle, a.RuleID)

	if snap != nil {
		a.StatsFinal = snap.Stats.Clone()
		a.ResultScore = snap.Score
	} else if a.ResultScore == "" {
		a.ResultScore = a.Score
	}

	if a.Status == alert.StatusPending {
		now := s.now()
		a.Resolve(alert.StatusRed, a.Minute, a.ResultScore, now)
		a.ResultTimeOfDay = now.In(resultTimeLocation).Format("15:04")
		if snap != nil {
			a.StatsAtResult = snap.Stats.Clone()
		}
		if r != nil && r.NotifyTelegram {
			view := AlertView{RuleName: r.Name, HomeTeam: a.HomeTeam, AwayTeam: a.AwayTeam, Score: a.ResultScore}
			s.notifyUser(ctx, cycle, a.UserID, BuildOutcomeMessage(view, string(alert.StatusRed), "match ended"))
		}
	}

	a.FTCompleted = true
	a.UpdatedAt = s.now()
	if err := s.alerts.Update(ctx, a); err != nil {
		s.logger.ErrorContext(ctx, "finalize alert failed", "alert_id", a.ID, "error", err)
		return
	}
	s.baselines.Release(a.GameID)

	name := ""
	if r != nil {
		name = r.Name
	}
	s.exportAlert(ctx, a, name)
	if r != nil && r.NotifyTelegram {
		s.sendExportFile(ctx, cycle, a.UserID)
	}
	s.logger.InfoContext(ctx, "alert finalized", "alert_id", a.ID, "game_id", a.GameID, "status", string(a.Status))
}

// sendExportFile ships the current spreadsheet to the alert's owner after a
// match completes, so the user always holds the latest settled rows.
func (s *MonitorService) sendExportFile(ctx context.Context, cycle *cycleState, userID int64) {
	if s.notifier == nil || s.exporter == nil {
		return
	}
	u, ok := cycle.users[userID]
	if !ok {
		loaded, err := s.users.GetByID(ctx, userID)
		if err != nil {
			s.logger.WarnContext(ctx, "load user failed", "user_id", userID, "error", err)
			return
		}
		u = loaded
		cycle.users[userID] = u
	}
	if u == nil || !u.Notifiable() {
		return
	}
	path := s.exporter.Path()
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := s.notifier.SendDocument(ctx, u.TelegramToken, u.TelegramChatID, path, "Alert spreadsheet"); err != nil {
		s.logger.WarnContext(ctx, "telegram document send failed", "user_id", userID, "error", err)
	}
}

func (s *MonitorService) stageReached(stage string, snap *snapshot.Snapshot, minute int) bool {
	switch stage {
	case rule.StageHalfTime:
		return snapshot.IsHalfTime(snap.TimeText, minute) || snapshot.IsSecondHalf(snap.TimeText) ||
			snapshot.IsFullTime(snap.TimeText, minute) || minute > 47
	case rule.StageFullTime:
		return snapshot.IsFullTime(snap.TimeText, minute)
	default:
		return true
	}
}

func (s *MonitorService) ruleFor(ctx context.Context, cycle *cycleState, id int64) *rule.Rule {
	if r, ok := cycle.rulesByID[id]; ok {
		return r
	}
	r, err := s.rules.GetByID(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "load rule failed", "rule_id", id, "error", err)
		return nil
	}
	cycle.rulesByID[id] = r
	return r
}

func (s *MonitorService) touchCheckedRules(ctx context.Context, cycle *cycleState) {
	now := s.now()
	for ruleID, desc := range cycle.checkedDesc {
		if err := s.rules.TouchChecked(ctx, ruleID, now, desc); err != nil {
			s.logger.WarnContext(ctx, "touch rule checked failed", "rule_id", ruleID, "error", err)
		}
	}
}

func (s *MonitorService) notifyUser(ctx context.Context, cycle *cycleState, userID int64, text string) {
	if s.notifier == nil {
		return
	}
	u, ok := cycle.users[userID]
	if !ok {
		loaded, err := s.users.GetByID(ctx, userID)
		if err != nil {
			s.logger.WarnContext(ctx, "load user failed", "user_id", userID, "error", err)
			return
		}
		u = loaded
		cycle.users[userID] = u
	}
	if u == nil || !u.Notifiable() {
		return
	}
	if err := s.notifier.Send(ctx, u.TelegramToken, u.TelegramChatID, text); err != nil {
		s.logger.WarnContext(ctx, "telegram send failed", "user_id", userID, "error", err)
	}
}

// notifyAdmins broadcasts source health transitions to every verified user.
func (s *MonitorService) notifyAdmins(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	users, err := s.users.ListTelegramVerified(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "list verified users failed", "error", err)
		return
	}
	for _, u := range users {
		if !u.Notifiable() {
			continue
		}
		if err := s.notifier.Send(ctx, u.TelegramToken, u.TelegramChatID, text); err != nil {
			s.logger.WarnContext(ctx, "telegram send failed", "user_id", u.ID, "error", err)
		}
	}
}

func (s *MonitorService) exportAlert(ctx context.Context, a *alert.Alert, ruleName string) {
	if s.exporter == nil {
		return
	}
	row := ExportRow{
		AlertID:    a.ID,
		RuleName:   ruleName,
		League:     a.League,
		HomeTeam:   a.HomeTeam,
		AwayTeam:   a.AwayTeam,
		ScoreAtHit: a.Score,
		Status:     string(a.Status),
		Reversed:   a.Reversed,
		ResultTime: a.ResultTimeOfDay,
		FinalScore: a.ResultScore,
		CreatedAt:  a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.Minute != nil {
		row.MinuteHit = strconv.Itoa(*a.Minute)
	}
	if err := s.exporter.UpsertAlert(row); err != nil {
		s.logger.WarnContext(ctx, "export alert failed", "alert_id", a.ID, "error", err)
	}
}

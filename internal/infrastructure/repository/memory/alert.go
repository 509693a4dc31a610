package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	crerr "github.com/cockroachdb/errors"

	"github.com/matchwatch/livealert/internal/domain/alert"
)

// AlertRepository is an in-memory alert store enforcing the same
// (rule, game) uniqueness the SQL schema does.
type AlertRepository struct {
	mu     sync.RWMutex
	alerts map[int64]alert.Alert
	byPair map[string]int64
	nextID int64
}

func NewAlertRepository() *AlertRepository {
	return &AlertRepository{
		alerts: make(map[int64]alert.Alert, 32),
		byPair: make(map[string]int64, 32),
		nextID: 1,
	}
}

func pairKey(ruleID int64, gameID string) string {
	return fmt.Sprintf("%d:%s", ruleID, gameID)
}

func (r *AlertRepository) Create(_ context.Context, a *alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey(a.RuleID, a.GameID)
	if _, exists := r.byPair[key]; exists {
		return alert.ErrDuplicateAlert
	}

	a.ID = r.nextID
	r.nextID++
	r.alerts[a.ID] = cloneAlert(*a)
	r.byPair[key] = a.ID
	return nil
}

func (r *AlertRepository) Exists(_ context.Context, ruleID int64, gameID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byPair[pairKey(ruleID, gameID)]
	return ok, nil
}

func (r *AlertRepository) GetByID(_ context.Context, id int64) (*alert.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.alerts[id]
	if !ok {
		return nil, crerr.Newf("alert %d not found", id)
	}
	cloned := cloneAlert(item)
	return &cloned, nil
}

func (r *AlertRepository) ListUnfinalized(_ context.Context) ([]alert.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]alert.Alert, 0, 8)
	for _, item := range r.alerts {
		if item.Status == alert.StatusPending || !item.FTCompleted {
			out = append(out, cloneAlert(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *AlertRepository) ListRecent(_ context.Context, limit int) ([]alert.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]alert.Alert, 0, len(r.alerts))
	for _, item := range r.alerts {
		out = append(out, cloneAlert(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *AlertRepository) Update(_ context.Context, a *alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[a.ID]; !ok {
		return crerr.Newf("alert %d not found", a.ID)
	}
	r.alerts[a.ID] = cloneAlert(*a)
	return nil
}

func (r *AlertRepository) RecentStatuses(_ context.Context, ruleID int64, limit int) ([]alert.Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, 16)
	for id, item := range r.alerts {
		if item.RuleID == ruleID && item.Status != alert.StatusPending {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]alert.Status, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.alerts[id].Status)
	}
	return out, nil
}

func cloneAlert(item alert.Alert) alert.Alert {
	out := item
	if item.Minute != nil {
		v := *item.Minute
		out.Minute = &v
	}
	if item.ResultMinute != nil {
		v := *item.ResultMinute
		out.ResultMinute = &v
	}
	if item.LastScoreMinute != nil {
		v := *item.LastScoreMinute
		out.LastScoreMinute = &v
	}
	if item.ResolvedAt != nil {
		v := *item.ResolvedAt
		out.ResolvedAt = &v
	}
	out.StatsAtAlert = item.StatsAtAlert.Clone()
	out.StatsAtResult = item.StatsAtResult.Clone()
	out.StatsFinal = item.StatsFinal.Clone()
	return out
}

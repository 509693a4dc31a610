package usecase

import (
	"sync"
	"time"
)

// HealthStatus is a point-in-time view of scraping health, served by the
// status API. OK is nil until the first poll has been observed.
type HealthStatus struct {
	OK            *bool      `json:"ok"`
	LastHTTPCode  *int       `json:"lastHttpCode"`
	LastError     string     `json:"lastError,omitempty"`
	LastCheckedAt *time.Time `json:"lastCheckedAt,omitempty"`
	LastCycleAt   *time.Time `json:"lastCycleAt,omitempty"`
	CyclesRun     int64      `json:"cyclesRun"`
}

// HealthTransition is what a single observation did to the upstream state.
type HealthTransition int

const (
	HealthUnchanged HealthTransition = iota
	HealthWentDown
	HealthRecovered
)

// HealthMonitor tracks upstream fetch outcomes as a three-state machine:
// unknown before the first observation, then ok or down. Notifications are
// owed only on transitions, except that a first observation which is already
// down announces immediately.
type HealthMonitor struct {
	now func() time.Time

	mu        sync.Mutex
	ok        *bool
	lastCode  *int
	lastError string
	checkedAt time.Time
	cycles    int64
	lastCycle time.Time
}

func NewHealthMonitor() *HealthMonitor {
	return &HealthMonitor{now: time.Now}
}

// Observe records the outcome of one upstream poll. httpCode is the final
// HTTP status, or zero when the request never completed. The returned
// transition tells the caller whether a notification is due.
func (h *HealthMonitor) Observe(ok bool, httpCode int, err error) HealthTransition {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.checkedAt = h.now()
	if httpCode != 0 {
		code := httpCode
		h.lastCode = &code
	} else {
		h.lastCode = nil
	}
	if err != nil {
		h.lastError = err.Error()
	} else if ok {
		h.lastError = ""
	}

	prev := h.ok
	state := ok
	h.ok = &state

	switch {
	case prev == nil:
		if !ok {
			return HealthWentDown
		}
		return HealthUnchanged
	case *prev == ok:
		return HealthUnchanged
	case ok:
		return HealthRecovered
	default:
		return HealthWentDown
	}
}

// MarkCycle notes a completed poll cycle regardless of outcome.
func (h *HealthMonitor) MarkCycle() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cycles++
	h.lastCycle = h.now()
}

func (h *HealthMonitor) Status() HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	status := HealthStatus{
		LastError: h.lastError,
		CyclesRun: h.cycles,
	}
	if h.ok != nil {
		v := *h.ok
		status.OK = &v
	}
	if h.lastCode != nil {
		c := *h.lastCode
		status.LastHTTPCode = &c
	}
	if !h.checkedAt.IsZero() {
		t := h.checkedAt
		status.LastCheckedAt = &t
	}
	if !h.lastCycle.IsZero() {
		t := h.lastCycle
		status.LastCycleAt = &t
	}
	return status
}

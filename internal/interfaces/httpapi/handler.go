package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/matchwatch/livealert/internal/domain/alert"
	"github.com/matchwatch/livealert/internal/platform/logging"
	"github.com/matchwatch/livealert/internal/usecase"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 200
)

type Handler struct {
	alerts alert.Repository
	health *usecase.HealthMonitor
	logger *logging.Logger
}

func NewHandler(alerts alert.Repository, health *usecase.HealthMonitor, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		alerts: alerts,
		health: health,
		logger: logger,
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetStatus reports the live data source health as seen by the monitor.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetStatus")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, h.health.Status())
}

func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListAlerts")
	defer span.End()

	limit := defaultAlertLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(ctx, w, fmt.Errorf("%w: limit must be a positive integer", errInvalidInput))
			return
		}
		limit = parsed
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}

	alerts, err := h.alerts.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list recent alerts failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]alertDTO, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertToDTO(a))
	}
	writeSuccess(ctx, w, http.StatusOK, alertListDTO{Alerts: out})
}

type alertListDTO struct {
	Alerts []alertDTO `json:"alerts"`
}

type alertDTO struct {
	ID              int64      `json:"id"`
	RuleID          int64      `json:"ruleId"`
	GameID          string     `json:"gameId"`
	League          string     `json:"league"`
	HomeTeam        string     `json:"homeTeam"`
	AwayTeam        string     `json:"awayTeam"`
	GameURL         string     `json:"gameUrl,omitempty"`
	Minute          *int       `json:"minute,omitempty"`
	Score           string     `json:"score"`
	Status          string     `json:"status"`
	Reversed        bool       `json:"reversed"`
	FTCompleted     bool       `json:"ftCompleted"`
	ResultMinute    *int       `json:"resultMinute,omitempty"`
	ResultTimeOfDay string     `json:"resultTimeOfDay,omitempty"`
	ResultScore     string     `json:"resultScore,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
}

func alertToDTO(a alert.Alert) alertDTO {
	return alertDTO{
		ID:              a.ID,
		RuleID:          a.RuleID,
		GameID:          a.GameID,
		League:          a.League,
		HomeTeam:        a.HomeTeam,
		AwayTeam:        a.AwayTeam,
		GameURL:         a.GameURL,
		Minute:          a.Minute,
		Score:           a.Score,
		Status:          string(a.Status),
		Reversed:        a.Reversed,
		FTCompleted:     a.FTCompleted,
		ResultMinute:    a.ResultMinute,
		ResultTimeOfDay: a.ResultTimeOfDay,
		ResultScore:     a.ResultScore,
		CreatedAt:       a.CreatedAt,
		ResolvedAt:      a.ResolvedAt,
	}
}

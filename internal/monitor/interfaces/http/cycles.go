package monitorhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"cyclewatch/internal/monitor/application"
)

// SummaryLister serves persisted cycle summaries.
type SummaryLister interface {
	ListSummaries(ctx context.Context, entity string, from, to time.Time) ([]application.CycleSummary, error)
}

// AlertLister serves persisted alert events.
type AlertLister interface {
	ListAlertEvents(ctx context.Context, entity, state string, from, to time.Time) ([]application.AlertEvent, error)
}

// CyclesHandler serves cycle history queries.
type CyclesHandler struct {
	cycles SummaryLister
}

// NewCyclesHandler constructs a CyclesHandler.
func NewCyclesHandler(cycles SummaryLister) *CyclesHandler {
	return &CyclesHandler{cycles: cycles}
}

type cycleResponse struct {
	Entity          string           `json:"entity"`
	Phase           string           `json:"phase"`
	DurationMinutes float64          `json:"duration_minutes"`
	EndedAt         time.Time        `json:"ended_at"`
	AlertState      string           `json:"alert_state"`
	AlertKind       string           `json:"alert_kind"`
	Baseline        baselineResponse `json:"baseline"`
}

// ServeHTTP handles GET /api/v1/cycles.
func (h *CyclesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.cycles == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	entity := r.URL.Query().Get("entity")
	if entity == "" {
		http.Error(w, "entity is required", http.StatusBadRequest)
		return
	}
	now := time.Now().UTC()
	from, err := parseTimeQuery(r, "from", now.Add(-24*time.Hour))
	if err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}
	to, err := parseTimeQuery(r, "to", now)
	if err != nil {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}

	summaries, err := h.cycles.ListSummaries(r.Context(), entity, from, to)
	if err != nil {
		http.Error(w, "query cycles error", http.StatusInternalServerError)
		return
	}

	response := make([]cycleResponse, 0, len(summaries))
	for _, summary := range summaries {
		response = append(response, cycleResponse{
			Entity:          summary.Entity,
			Phase:           string(summary.Phase),
			DurationMinutes: summary.DurationMinutes,
			EndedAt:         summary.EndedAt,
			AlertState:      summary.AlertState,
			AlertKind:       string(summary.AlertKind),
			Baseline:        toBaselineResponse(summary.Baseline),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// AlertsHandler serves alert event log queries.
type AlertsHandler struct {
	alerts AlertLister
}

// NewAlertsHandler constructs an AlertsHandler.
func NewAlertsHandler(alerts AlertLister) *AlertsHandler {
	return &AlertsHandler{alerts: alerts}
}

type alertResponse struct {
	Entity  string    `json:"entity"`
	Kind    string    `json:"kind"`
	State   string    `json:"state"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// ServeHTTP handles GET /api/v1/alerts.
func (h *AlertsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.alerts == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	entity := r.URL.Query().Get("entity")
	if entity == "" {
		http.Error(w, "entity is required", http.StatusBadRequest)
		return
	}
	now := time.Now().UTC()
	from, err := parseTimeQuery(r, "from", now.Add(-24*time.Hour))
	if err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}
	to, err := parseTimeQuery(r, "to", now)
	if err != nil {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}

	events, err := h.alerts.ListAlertEvents(r.Context(), entity, r.URL.Query().Get("state"), from, to)
	if err != nil {
		http.Error(w, "query alerts error", http.StatusInternalServerError)
		return
	}

	response := make([]alertResponse, 0, len(events))
	for _, event := range events {
		response = append(response, alertResponse{
			Entity:  event.Entity,
			Kind:    string(event.Kind),
			State:   event.State,
			Message: event.Message,
			At:      event.At,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

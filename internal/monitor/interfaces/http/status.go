package monitorhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"cyclewatch/internal/monitor/application"
	monitor "cyclewatch/internal/monitor/domain"
)

const timeLayout = time.RFC3339

// StatusSource exposes the live view of one monitored entity.
type StatusSource interface {
	Status(ctx context.Context) application.Status
}

// StatusHandler serves the current state of all monitored entities.
type StatusHandler struct {
	sources map[string]StatusSource
}

// NewStatusHandler constructs a StatusHandler.
func NewStatusHandler(sources map[string]StatusSource) *StatusHandler {
	return &StatusHandler{sources: sources}
}

type statusResponse struct {
	Entity         string           `json:"entity"`
	Phase          string           `json:"phase"`
	PhaseStartedAt time.Time        `json:"phase_started_at"`
	ElapsedMinutes float64          `json:"elapsed_minutes"`
	LastWatts      float64          `json:"last_watts"`
	AlertState     string           `json:"alert_state"`
	AlertKind      string           `json:"alert_kind"`
	PendingKinds   []string         `json:"pending_kinds,omitempty"`
	Baseline       baselineResponse `json:"baseline"`
	LowerLimit     float64          `json:"lower_limit_minutes"`
	UpperLimit     float64          `json:"upper_limit_minutes"`
	LimitsDefined  bool             `json:"limits_defined"`
}

type baselineResponse struct {
	MeanActiveMinutes     float64 `json:"mean_active_minutes"`
	MedianActiveMinutes   float64 `json:"median_active_minutes"`
	MeanInactiveMinutes   float64 `json:"mean_inactive_minutes"`
	MedianInactiveMinutes float64 `json:"median_inactive_minutes"`
	ActiveSamples         int     `json:"active_samples"`
	InactiveSamples       int     `json:"inactive_samples"`
}

// ServeHTTP handles GET /api/v1/status.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || len(h.sources) == 0 {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	entity := r.URL.Query().Get("entity")
	if entity != "" {
		source, ok := h.sources[entity]
		if !ok {
			http.Error(w, "unknown entity", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toStatusResponse(source.Status(r.Context())))
		return
	}

	entities := make([]string, 0, len(h.sources))
	for name := range h.sources {
		entities = append(entities, name)
	}
	sort.Strings(entities)

	statuses := make([]statusResponse, 0, len(entities))
	for _, name := range entities {
		statuses = append(statuses, toStatusResponse(h.sources[name].Status(r.Context())))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(statuses)
}

func toStatusResponse(status application.Status) statusResponse {
	kinds := make([]string, 0, len(status.PendingKinds))
	for _, kind := range status.PendingKinds {
		kinds = append(kinds, string(kind))
	}
	return statusResponse{
		Entity:         status.Entity,
		Phase:          string(status.Phase),
		PhaseStartedAt: status.PhaseStartedAt,
		ElapsedMinutes: status.ElapsedMinutes,
		LastWatts:      status.LastWatts,
		AlertState:     status.AlertState,
		AlertKind:      string(status.AlertKind),
		PendingKinds:   kinds,
		Baseline:       toBaselineResponse(status.Baseline),
		LowerLimit:     status.LowerLimit,
		UpperLimit:     status.UpperLimit,
		LimitsDefined:  status.LimitsDefined,
	}
}

func toBaselineResponse(baseline monitor.Baseline) baselineResponse {
	return baselineResponse{
		MeanActiveMinutes:     baseline.MeanActive,
		MedianActiveMinutes:   baseline.MedianActive,
		MeanInactiveMinutes:   baseline.MeanInactive,
		MedianInactiveMinutes: baseline.MedianInactive,
		ActiveSamples:         baseline.ActiveSamples,
		InactiveSamples:       baseline.InactiveSamples,
	}
}

func parseTimeQuery(r *http.Request, key string, fallback time.Time) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback, nil
	}
	return time.Parse(timeLayout, value)
}

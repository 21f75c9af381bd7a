package monitorhttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	postgres "cyclewatch/internal/monitor/infrastructure/postgres"
	"cyclewatch/internal/observability/metrics"
)

// SampleWriter stores ingested power samples.
type SampleWriter interface {
	InsertSamples(ctx context.Context, samples []postgres.Sample) error
}

// IngestHandler accepts power samples pushed by sensors.
type IngestHandler struct {
	repo   SampleWriter
	logger *log.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(repo SampleWriter, logger *log.Logger) (*IngestHandler, error) {
	if repo == nil {
		return nil, errors.New("sample ingest: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestHandler{repo: repo, logger: logger}, nil
}

type ingestRequest struct {
	Entity  string         `json:"entity"`
	Samples []ingestSample `json:"samples"`
}

type ingestSample struct {
	TS    time.Time `json:"ts"`
	Watts float64   `json:"watts"`
}

func (r ingestRequest) toSamples(now time.Time) ([]postgres.Sample, error) {
	if r.Entity == "" {
		return nil, errors.New("sample ingest: entity required")
	}
	if len(r.Samples) == 0 {
		return nil, errors.New("sample ingest: samples required")
	}
	samples := make([]postgres.Sample, 0, len(r.Samples))
	for _, item := range r.Samples {
		ts := item.TS
		if ts.IsZero() {
			ts = now
		}
		if item.Watts < 0 {
			return nil, errors.New("sample ingest: negative watts")
		}
		samples = append(samples, postgres.Sample{Entity: r.Entity, TS: ts.UTC(), Watts: item.Watts})
	}
	return samples, nil
}

// ServeHTTP ingests sample data.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := metrics.IngestResultSuccess
	defer func() {
		metrics.ObserveIngest(result, time.Since(start))
	}()

	if r.Method != http.MethodPost {
		result = metrics.IngestResultError
		metrics.IncIngestError("method_not_allowed")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("sample ingest: read body error: %v", err)
		result = metrics.IngestResultError
		metrics.IncIngestError("read_body")
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req ingestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Printf("sample ingest: decode error: %v", err)
		result = metrics.IngestResultError
		metrics.IncIngestError("invalid_json")
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	samples, err := req.toSamples(time.Now().UTC())
	if err != nil {
		h.logger.Printf("sample ingest: invalid payload: %v", err)
		result = metrics.IngestResultError
		metrics.IncIngestError("invalid_payload")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if err := h.repo.InsertSamples(r.Context(), samples); err != nil {
		h.logger.Printf("sample ingest: insert error: %v", err)
		result = metrics.IngestResultError
		metrics.IncIngestError("insert_error")
		http.Error(w, "insert error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"accepted":true}`))
}

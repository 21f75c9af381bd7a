package monitor

import (
	"testing"
	"time"
)

func TestDetector_SeedsOnFirstSample(t *testing.T) {
	detector, err := NewDetector("washer", 10, 5*time.Minute)
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	obs := detector.Observe(120, now)
	if obs.Transitioned {
		t.Fatalf("seed must not transition")
	}
	if !detector.Seeded() {
		t.Fatalf("expected seeded detector")
	}
	state := detector.State()
	if state.Phase != PhaseActive {
		t.Fatalf("expected active phase, got %s", state.Phase)
	}
	if !state.StartedAt.Equal(now) {
		t.Fatalf("expected phase start %s, got %s", now, state.StartedAt)
	}
}

func TestDetector_ThresholdBoundaryIsInactive(t *testing.T) {
	detector, err := NewDetector("washer", 10, 5*time.Minute)
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	detector.Observe(10, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if detector.State().Phase != PhaseInactive {
		t.Fatalf("samples at the threshold must classify inactive")
	}
}

func TestDetector_BlipShorterThanMinIntervalIsDiscarded(t *testing.T) {
	detector, err := NewDetector("washer", 10, 5*time.Minute)
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	detector.Observe(120, start)
	detector.Observe(2, start.Add(1*time.Minute))
	obs := detector.Observe(130, start.Add(2*time.Minute))
	if obs.Transitioned {
		t.Fatalf("blip must not transition")
	}
	state := detector.State()
	if state.Phase != PhaseActive {
		t.Fatalf("expected phase to stay active, got %s", state.Phase)
	}
	if !state.StartedAt.Equal(start) {
		t.Fatalf("phase start must be unchanged by a discarded blip")
	}

	// A fresh candidate after the discard restarts the debounce from scratch.
	detector.Observe(2, start.Add(3*time.Minute))
	obs = detector.Observe(2, start.Add(7*time.Minute))
	if obs.Transitioned {
		t.Fatalf("candidate held %s must not commit before the minimum interval", 4*time.Minute)
	}
}

func TestDetector_CommitsAfterMinInterval(t *testing.T) {
	detector, err := NewDetector("washer", 10, 5*time.Minute)
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	detector.Observe(120, start)
	candidateAt := start.Add(10 * time.Minute)
	detector.Observe(2, candidateAt)
	obs := detector.Observe(2, candidateAt.Add(5*time.Minute))
	if !obs.Transitioned {
		t.Fatalf("expected commit after candidate held for the minimum interval")
	}
	if obs.Closed == nil {
		t.Fatalf("expected a closed phase record")
	}
	if obs.Closed.Phase != PhaseActive {
		t.Fatalf("expected closed active phase, got %s", obs.Closed.Phase)
	}
	if obs.Closed.DurationMinutes != 10 {
		t.Fatalf("expected closed duration 10m, got %.2f", obs.Closed.DurationMinutes)
	}
	if !obs.Closed.EndedAt.Equal(candidateAt) {
		t.Fatalf("phase must close at the first candidate sample, got %s", obs.Closed.EndedAt)
	}

	state := detector.State()
	if state.Phase != PhaseInactive {
		t.Fatalf("expected inactive phase after commit, got %s", state.Phase)
	}
	if !state.StartedAt.Equal(candidateAt) {
		t.Fatalf("new phase must start at the first candidate sample")
	}
}

func TestDetector_ShortSeedPhaseClosesWithoutRecord(t *testing.T) {
	detector, err := NewDetector("washer", 10, 5*time.Minute)
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// The seeded phase lasts only 2 minutes before the flip begins.
	detector.Observe(120, start)
	detector.Observe(2, start.Add(2*time.Minute))
	obs := detector.Observe(2, start.Add(7*time.Minute))
	if !obs.Transitioned {
		t.Fatalf("expected transition")
	}
	if obs.Closed != nil {
		t.Fatalf("a closed phase shorter than the minimum interval must not be recorded")
	}
}

func TestDetector_CandidateTracksDebounce(t *testing.T) {
	detector, err := NewDetector("washer", 10, 5*time.Minute)
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	detector.Observe(120, start)
	if _, _, ok := detector.Candidate(); ok {
		t.Fatalf("no candidate expected while the signal holds one side")
	}

	candidateAt := start.Add(3 * time.Minute)
	detector.Observe(2, candidateAt)
	side, since, ok := detector.Candidate()
	if !ok {
		t.Fatalf("expected an outstanding candidate during the debounce")
	}
	if side != PhaseInactive || !since.Equal(candidateAt) {
		t.Fatalf("unexpected candidate %s at %s", side, since)
	}

	// A sample back on the current side discards the candidate.
	detector.Observe(120, start.Add(4*time.Minute))
	if _, _, ok := detector.Candidate(); ok {
		t.Fatalf("reverted candidate must be discarded")
	}

	// A committed transition leaves no candidate behind.
	detector.Observe(2, start.Add(10*time.Minute))
	detector.Observe(2, start.Add(15*time.Minute))
	if _, _, ok := detector.Candidate(); ok {
		t.Fatalf("no candidate expected after a committed transition")
	}
}

func TestNewDetector_Validation(t *testing.T) {
	if _, err := NewDetector("", 10, time.Minute); err == nil {
		t.Fatalf("expected error for empty entity")
	}
	if _, err := NewDetector("washer", 0, time.Minute); err == nil {
		t.Fatalf("expected error for zero threshold")
	}
	if _, err := NewDetector("washer", 10, 0); err == nil {
		t.Fatalf("expected error for zero minimum interval")
	}
}

func TestPhase_Opposite(t *testing.T) {
	if PhaseActive.Opposite() != PhaseInactive {
		t.Fatalf("active opposite must be inactive")
	}
	if PhaseInactive.Opposite() != PhaseActive {
		t.Fatalf("inactive opposite must be active")
	}
}

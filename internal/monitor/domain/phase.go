package monitor

import (
	"errors"
	"time"
)

// Phase is one side of the wattage threshold.
type Phase string

const (
	PhaseActive   Phase = "active"
	PhaseInactive Phase = "inactive"
)

// Opposite returns the other phase.
func (p Phase) Opposite() Phase {
	if p == PhaseActive {
		return PhaseInactive
	}
	return PhaseActive
}

// PhaseState is the current observed condition of a device.
type PhaseState struct {
	Phase           Phase
	StartedAt       time.Time
	LastSampleWatts float64
}

// Elapsed returns the running duration of the current phase.
func (s PhaseState) Elapsed(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(s.StartedAt)
}

// PhaseRecord is a completed phase, immutable once emitted.
type PhaseRecord struct {
	Entity          string
	Phase           Phase
	DurationMinutes float64
	EndedAt         time.Time
}

// Observation is the outcome of feeding one sample to the detector.
type Observation struct {
	Transitioned bool
	// Closed is the record of the phase that just ended. It is nil when the
	// closed phase was shorter than the minimum interval; such phases are
	// never surfaced to statistics or persistence.
	Closed *PhaseRecord
}

// Detector tracks the current phase and debounces threshold crossings. A
// crossing is held as a candidate and commits only once the new side has
// persisted for the minimum interval; a candidate that reverts is discarded.
type Detector struct {
	entity      string
	threshold   float64
	minInterval time.Duration

	seeded         bool
	state          PhaseState
	candidate      Phase
	candidateSince time.Time
	candidateWatts float64
}

// NewDetector constructs a phase detector.
func NewDetector(entity string, thresholdWatt float64, minInterval time.Duration) (*Detector, error) {
	if entity == "" {
		return nil, errors.New("monitor: empty entity")
	}
	if thresholdWatt <= 0 {
		return nil, errors.New("monitor: threshold watt must be positive")
	}
	if minInterval <= 0 {
		return nil, errors.New("monitor: minimum interval must be positive")
	}
	return &Detector{entity: entity, threshold: thresholdWatt, minInterval: minInterval}, nil
}

// State returns the current phase state.
func (d *Detector) State() PhaseState {
	return d.state
}

// Seeded reports whether the detector has seen a sample yet.
func (d *Detector) Seeded() bool {
	return d.seeded
}

// Candidate returns the side currently under debounce and the time its first
// sample was seen. ok is false when no crossing is outstanding.
func (d *Detector) Candidate() (side Phase, since time.Time, ok bool) {
	if d.candidate == "" {
		return "", time.Time{}, false
	}
	return d.candidate, d.candidateSince, true
}

// Observe classifies a sample against the threshold and advances the phase
// state. The first sample seeds the current phase.
func (d *Detector) Observe(watts float64, now time.Time) Observation {
	side := d.classify(watts)

	if !d.seeded {
		d.seeded = true
		d.state = PhaseState{Phase: side, StartedAt: now, LastSampleWatts: watts}
		return Observation{}
	}

	if side == d.state.Phase {
		d.candidate = ""
		d.candidateSince = time.Time{}
		d.state.LastSampleWatts = watts
		return Observation{}
	}

	if d.candidate != side {
		d.candidate = side
		d.candidateSince = now
		d.candidateWatts = watts
		return Observation{}
	}

	d.candidateWatts = watts
	if now.Sub(d.candidateSince) < d.minInterval {
		return Observation{}
	}

	// The candidate side has outlived the debounce; commit the transition at
	// the moment the candidate was first seen.
	closedAt := d.candidateSince
	duration := closedAt.Sub(d.state.StartedAt)
	var closed *PhaseRecord
	if duration >= d.minInterval {
		closed = &PhaseRecord{
			Entity:          d.entity,
			Phase:           d.state.Phase,
			DurationMinutes: duration.Minutes(),
			EndedAt:         closedAt,
		}
	}
	d.state = PhaseState{Phase: side, StartedAt: closedAt, LastSampleWatts: watts}
	d.candidate = ""
	d.candidateSince = time.Time{}
	return Observation{Transitioned: true, Closed: closed}
}

func (d *Detector) classify(watts float64) Phase {
	if watts > d.threshold {
		return PhaseActive
	}
	return PhaseInactive
}

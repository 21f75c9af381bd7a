package monitor

import (
	"fmt"
	"time"
)

// AlertKind is a closed set of deviation findings.
type AlertKind string

const (
	AlertNone           AlertKind = "none"
	AlertActiveTooLong  AlertKind = "active_too_long"
	AlertActiveTooShort AlertKind = "active_too_short"
	AlertIdleTooLong    AlertKind = "idle_too_long"
	AlertIdleTooShort   AlertKind = "idle_too_short"
)

// Alert states persisted with phase summaries.
const (
	AlertStateOK      = "ok"
	AlertStateAlert   = "alert"
	AlertStatePending = "pending"
)

// Finding is an evaluator verdict with observability detail.
type Finding struct {
	Kind    AlertKind
	Message string
	Value   float64
	Lower   float64
	Upper   float64
}

// Limits returns the tolerated duration band for a phase, or false when the
// baseline for that phase is undefined.
func Limits(baseline Baseline, margin Margin, method StatisticMethod, phase Phase) (float64, float64, bool) {
	if !baseline.Defined(phase) {
		return 0, 0, false
	}
	statistic := baseline.Statistic(method, phase)
	return margin.Lower(statistic), margin.Upper(statistic), true
}

// EvaluateRunning checks the still-running phase for a "too long" deviation.
// Absence of baseline data never alerts, and a phase younger than the minimum
// interval is not judged.
func EvaluateRunning(state PhaseState, baseline Baseline, margin Margin, method StatisticMethod, minInterval time.Duration, now time.Time) (Finding, bool) {
	lower, upper, ok := Limits(baseline, margin, method, state.Phase)
	if !ok {
		return Finding{}, false
	}
	elapsed := state.Elapsed(now)
	if elapsed < minInterval {
		return Finding{}, false
	}
	minutes := elapsed.Minutes()
	if minutes <= upper {
		return Finding{}, false
	}
	return Finding{
		Kind:    tooLongKind(state.Phase),
		Message: fmt.Sprintf("%s too long: %.1fm > %.1fm", phaseLabel(state.Phase), minutes, upper),
		Value:   minutes,
		Lower:   lower,
		Upper:   upper,
	}, true
}

// EvaluateClosed checks a just-ended phase for a "too short" deviation.
// Shortness can only be judged once the phase is over.
func EvaluateClosed(record PhaseRecord, baseline Baseline, margin Margin, method StatisticMethod) (Finding, bool) {
	lower, upper, ok := Limits(baseline, margin, method, record.Phase)
	if !ok {
		return Finding{}, false
	}
	if record.DurationMinutes >= lower {
		return Finding{}, false
	}
	return Finding{
		Kind:    tooShortKind(record.Phase),
		Message: fmt.Sprintf("%s too short: %.1fm < %.1fm", phaseLabel(record.Phase), record.DurationMinutes, lower),
		Value:   record.DurationMinutes,
		Lower:   lower,
		Upper:   upper,
	}, true
}

func tooLongKind(phase Phase) AlertKind {
	if phase == PhaseActive {
		return AlertActiveTooLong
	}
	return AlertIdleTooLong
}

func tooShortKind(phase Phase) AlertKind {
	if phase == PhaseActive {
		return AlertActiveTooShort
	}
	return AlertIdleTooShort
}

func phaseLabel(phase Phase) string {
	if phase == PhaseActive {
		return "active"
	}
	return "idle"
}

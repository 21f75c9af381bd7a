package application

import (
	"time"

	monitor "cyclewatch/internal/monitor/domain"
)

// pendingAlert is a provisional short-phase finding awaiting confirmation by
// sustained behavior in the opposite phase.
type pendingAlert struct {
	finding  monitor.Finding
	raisedAt time.Time
}

// pendingSet holds at most one outstanding pending alert per shortness kind.
// A newer pending finding of the other kind supersedes the older one.
type pendingSet struct {
	activeShort *pendingAlert
	idleShort   *pendingAlert
}

// Set stores a pending finding and clears the other slot.
func (p *pendingSet) Set(finding monitor.Finding, now time.Time) {
	pending := &pendingAlert{finding: finding, raisedAt: now}
	if finding.Kind == monitor.AlertActiveTooShort {
		p.activeShort = pending
		p.idleShort = nil
		return
	}
	p.idleShort = pending
	p.activeShort = nil
}

// Outstanding reports whether any pending alert is held.
func (p *pendingSet) Outstanding() bool {
	return p.activeShort != nil || p.idleShort != nil
}

// Kinds returns the outstanding pending kinds.
func (p *pendingSet) Kinds() []monitor.AlertKind {
	var kinds []monitor.AlertKind
	if p.activeShort != nil {
		kinds = append(kinds, p.activeShort.finding.Kind)
	}
	if p.idleShort != nil {
		kinds = append(kinds, p.idleShort.finding.Kind)
	}
	return kinds
}

// ClearForPhase drops a pending alert whose confirmation phase ended before
// the buffer elapsed: when the device re-enters the phase that raised the
// pending alert, the interruption is ambiguous and the alert never fires.
func (p *pendingSet) ClearForPhase(newPhase monitor.Phase) []monitor.Finding {
	var cleared []monitor.Finding
	if newPhase == monitor.PhaseActive && p.activeShort != nil {
		cleared = append(cleared, p.activeShort.finding)
		p.activeShort = nil
	}
	if newPhase == monitor.PhaseInactive && p.idleShort != nil {
		cleared = append(cleared, p.idleShort.finding)
		p.idleShort = nil
	}
	return cleared
}

// Expire drops pending alerts that stayed unconfirmed longer than maxAge.
func (p *pendingSet) Expire(now time.Time, maxAge time.Duration) []monitor.Finding {
	if maxAge <= 0 {
		return nil
	}
	var expired []monitor.Finding
	if p.activeShort != nil && now.Sub(p.activeShort.raisedAt) > maxAge {
		expired = append(expired, p.activeShort.finding)
		p.activeShort = nil
	}
	if p.idleShort != nil && now.Sub(p.idleShort.raisedAt) > maxAge {
		expired = append(expired, p.idleShort.finding)
		p.idleShort = nil
	}
	return expired
}

// Confirm fires pending alerts whose opposite phase has run continuously for
// at least minInterval since the pending alert was set.
func (p *pendingSet) Confirm(state monitor.PhaseState, minInterval time.Duration, now time.Time) []monitor.Finding {
	var fired []monitor.Finding
	if p.activeShort != nil && confirmed(p.activeShort, monitor.PhaseInactive, state, minInterval, now) {
		fired = append(fired, p.activeShort.finding)
		p.activeShort = nil
	}
	if p.idleShort != nil && confirmed(p.idleShort, monitor.PhaseActive, state, minInterval, now) {
		fired = append(fired, p.idleShort.finding)
		p.idleShort = nil
	}
	return fired
}

func confirmed(pending *pendingAlert, confirmingPhase monitor.Phase, state monitor.PhaseState, minInterval time.Duration, now time.Time) bool {
	if state.Phase != confirmingPhase {
		return false
	}
	if state.Elapsed(now) < minInterval {
		return false
	}
	return now.Sub(pending.raisedAt) >= minInterval
}

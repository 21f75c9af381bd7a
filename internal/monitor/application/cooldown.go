package application

import (
	"time"

	monitor "cyclewatch/internal/monitor/domain"
)

// Cooldown enforces minimum spacing between repeated alerts of the same kind.
type Cooldown struct {
	interval  time.Duration
	lastFired map[monitor.AlertKind]time.Time
}

// NewCooldown constructs a cooldown controller.
func NewCooldown(interval time.Duration) *Cooldown {
	return &Cooldown{
		interval:  interval,
		lastFired: make(map[monitor.AlertKind]time.Time),
	}
}

// Admit reports whether an alert of the given kind may fire at now. An
// admitted alert is recorded as the kind's last firing.
func (c *Cooldown) Admit(kind monitor.AlertKind, now time.Time) bool {
	if c == nil {
		return false
	}
	if c.interval > 0 {
		if last, ok := c.lastFired[kind]; ok && now.Sub(last) < c.interval {
			return false
		}
	}
	c.lastFired[kind] = now
	return true
}

// LastFired returns when the kind last fired.
func (c *Cooldown) LastFired(kind monitor.AlertKind) (time.Time, bool) {
	if c == nil {
		return time.Time{}, false
	}
	last, ok := c.lastFired[kind]
	return last, ok
}

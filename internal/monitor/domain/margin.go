package monitor

// Margin is the tolerated deviation from baseline, resolved once at
// configuration load. Absolute minutes take precedence over a percentage.
type Margin struct {
	minutes  float64
	fraction float64
}

// ResolveMargin normalizes the configured margin pair. Both values absent
// yields a zero margin.
func ResolveMargin(marginMinutes, marginPercent float64) Margin {
	if marginMinutes > 0 {
		return Margin{minutes: marginMinutes}
	}
	if marginPercent > 0 {
		return Margin{fraction: marginPercent / 100}
	}
	return Margin{}
}

// Lower returns the lower tolerance bound for a baseline value.
func (m Margin) Lower(value float64) float64 {
	if m.minutes > 0 {
		lower := value - m.minutes
		if lower < 0 {
			return 0
		}
		return lower
	}
	return value * (1 - m.fraction)
}

// Upper returns the upper tolerance bound for a baseline value.
func (m Margin) Upper(value float64) float64 {
	if m.minutes > 0 {
		return value + m.minutes
	}
	return value * (1 + m.fraction)
}

package monitor

import (
	"errors"
	"sort"
)

// StatisticMethod selects which baseline statistic feeds the limit math.
type StatisticMethod string

const (
	StatisticMedian StatisticMethod = "median"
	StatisticMean   StatisticMethod = "mean"
)

// ParseStatisticMethod validates a statistic method, defaulting to median.
func ParseStatisticMethod(value string) (StatisticMethod, error) {
	switch StatisticMethod(value) {
	case "":
		return StatisticMedian, nil
	case StatisticMedian, StatisticMean:
		return StatisticMethod(value), nil
	default:
		return "", errors.New("monitor: statistic method must be median or mean")
	}
}

// Baseline holds learned typical phase durations in minutes. Both mean and
// median are always computed regardless of the configured statistic.
type Baseline struct {
	MeanActive      float64
	MedianActive    float64
	MeanInactive    float64
	MedianInactive  float64
	ActiveSamples   int
	InactiveSamples int
}

// Defined reports whether the baseline has data for the phase.
func (b Baseline) Defined(phase Phase) bool {
	if phase == PhaseActive {
		return b.ActiveSamples > 0
	}
	return b.InactiveSamples > 0
}

// Statistic returns the configured statistic for the phase.
func (b Baseline) Statistic(method StatisticMethod, phase Phase) float64 {
	if phase == PhaseActive {
		if method == StatisticMean {
			return b.MeanActive
		}
		return b.MedianActive
	}
	if method == StatisticMean {
		return b.MeanInactive
	}
	return b.MedianInactive
}

// ComputeBaseline derives a baseline from historical phase records.
func ComputeBaseline(records []PhaseRecord) Baseline {
	var active, inactive []float64
	for _, record := range records {
		if record.DurationMinutes <= 0 {
			continue
		}
		if record.Phase == PhaseActive {
			active = append(active, record.DurationMinutes)
		} else {
			inactive = append(inactive, record.DurationMinutes)
		}
	}
	return Baseline{
		MeanActive:      mean(active),
		MedianActive:    median(active),
		MeanInactive:    mean(inactive),
		MedianInactive:  median(inactive),
		ActiveSamples:   len(active),
		InactiveSamples: len(inactive),
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, value := range values {
		sum += value
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

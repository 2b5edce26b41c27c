package trends

import (
	"math"

	"github.com/kalambet/psychtrend/internal/stats"
)

// Direction labels.
const (
	Upward           = "upward"
	Downward         = "downward"
	Stable           = "stable"
	InsufficientData = "insufficient_data"
)

const (
	slopeThreshold       = 0.02
	defaultWindow        = 3
	changePointThreshold = 0.3
)

// DirectionResult is a least-squares fit of a score sequence.
type DirectionResult struct {
	Direction  string  `json:"direction"`
	Slope      float64 `json:"slope"`
	Confidence float64 `json:"confidence"`
}

// Direction fits a line through values. Confidence is the fit's R².
func Direction(values []float64) DirectionResult {
	if len(values) < 2 {
		return DirectionResult{Direction: InsufficientData}
	}

	fit := stats.LinearFit(values)
	dir := Stable
	switch {
	case fit.Slope > slopeThreshold:
		dir = Upward
	case fit.Slope < -slopeThreshold:
		dir = Downward
	}
	return DirectionResult{
		Direction:  dir,
		Slope:      stats.Round(fit.Slope, 4),
		Confidence: stats.Round(math.Max(0, fit.R2), 3),
	}
}

// MovingAverage is a trailing mean over window values. Series shorter than
// the window are returned unchanged.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 0 {
		window = defaultWindow
	}
	out := make([]float64, len(values))
	if len(values) < window {
		copy(out, values)
		return out
	}
	for i := range values {
		start := max(0, i-window+1)
		out[i] = stats.Round(stats.Mean(values[start:i+1]), 3)
	}
	return out
}

// ChangePoints returns interior indices whose jump from either neighbour
// exceeds threshold.
func ChangePoints(values []float64, threshold float64) []int {
	out := []int{}
	if len(values) < 3 {
		return out
	}
	for i := 1; i < len(values)-1; i++ {
		if math.Abs(values[i]-values[i-1]) > threshold || math.Abs(values[i+1]-values[i]) > threshold {
			out = append(out, i)
		}
	}
	return out
}

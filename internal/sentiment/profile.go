package sentiment

import "github.com/kalambet/psychtrend/internal/stats"

const (
	seriesSlopeThreshold = 0.05
	profileBand          = 0.2
)

// SeriesTrend summarizes a sequence of sentiment scores.
type SeriesTrend struct {
	Direction  string  `json:"direction"`
	Slope      float64 `json:"slope"`
	Volatility float64 `json:"volatility"`
	Average    float64 `json:"average"`
}

// Trend fits a line through scores. An empty series is stable at zero.
func Trend(scores []float64) SeriesTrend {
	if len(scores) == 0 {
		return SeriesTrend{Direction: "stable"}
	}

	slope := stats.LinearFit(scores).Slope
	dir := "stable"
	switch {
	case slope > seriesSlopeThreshold:
		dir = "upward"
	case slope < -seriesSlopeThreshold:
		dir = "downward"
	}
	return SeriesTrend{
		Direction:  dir,
		Slope:      stats.Round(slope, 4),
		Volatility: stats.Round(stats.Std(scores), 3),
		Average:    stats.Round(stats.Mean(scores), 3),
	}
}

// EmotionalProfile is the distribution of scores over polarity bands.
type EmotionalProfile struct {
	Dominant     Category             `json:"dominant_emotion"`
	Distribution map[Category]float64 `json:"emotion_distribution"`
	Range        float64              `json:"emotional_range"`
}

// Profile buckets scores at ±0.2. The dominant band must be a strict
// majority over both others, otherwise the profile is neutral.
func Profile(scores []float64) EmotionalProfile {
	p := EmotionalProfile{Dominant: Neutral, Distribution: map[Category]float64{}}
	if len(scores) == 0 {
		return p
	}

	var pos, neg, neu int
	lo, hi := scores[0], scores[0]
	for _, s := range scores {
		switch {
		case s > profileBand:
			pos++
		case s < -profileBand:
			neg++
		default:
			neu++
		}
		lo, hi = min(lo, s), max(hi, s)
	}

	n := float64(len(scores))
	p.Distribution[Positive] = stats.Round(float64(pos)/n, 2)
	p.Distribution[Negative] = stats.Round(float64(neg)/n, 2)
	p.Distribution[Neutral] = stats.Round(float64(neu)/n, 2)

	switch {
	case pos > neg && pos > neu:
		p.Dominant = Positive
	case neg > pos && neg > neu:
		p.Dominant = Negative
	}
	p.Range = stats.Round(hi-lo, 2)
	return p
}

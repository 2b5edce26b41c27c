// Package trends scores motivation, consistency, growth orientation and
// stress response over a session. Every aggregate is clamped through the
// ceilings of the session's gate.Context before a description is chosen.
package trends

import (
	"math"
	"strings"

	"github.com/kalambet/psychtrend/internal/gate"
	"github.com/kalambet/psychtrend/internal/record"
	"github.com/kalambet/psychtrend/internal/stats"
)

// Coping patterns reported by StressResponse.
const (
	ActiveCoping    = "active-coping"
	SupportSeeking  = "support-seeking"
	AvoidanceProne  = "avoidance-prone"
	BalancedCoping  = "balanced"
	insufficientMsg = "Insufficient data for analysis"

	lowQuality     = 0.5
	growthSession  = 0.30
	maxVolatility  = 0.3
	highBand       = 0.7
	lowBand        = 0.4
	motivationHigh = 0.6
)

// Result is one analyzed trend.
type Result struct {
	Key           string    `json:"key"`
	Name          string    `json:"name"`
	Score         float64   `json:"score"`
	Direction     string    `json:"trend_direction"`
	Description   string    `json:"description"`
	DataPoints    []float64 `json:"data_points"`
	ScoreCapped   bool      `json:"score_capped"`
	RawScore      float64   `json:"raw_score"`
	Cap           float64   `json:"cap"`
	Slope         float64   `json:"slope"`
	Confidence    float64   `json:"confidence"`
	MovingAverage []float64 `json:"moving_average,omitempty"`
	ChangePoints  []int     `json:"change_points,omitempty"`
	Pattern       string    `json:"pattern,omitempty"`
	Indicators    []string  `json:"indicators,omitempty"`
	Volatility    float64   `json:"volatility,omitempty"`
}

// Set is the four trends of one analysis.
type Set struct {
	Motivation     Result `json:"motivation"`
	Consistency    Result `json:"consistency"`
	Growth         Result `json:"growth"`
	StressResponse Result `json:"stress_response"`
}

// List returns the trends in report order.
func (s Set) List() []Result {
	return []Result{s.Motivation, s.Consistency, s.Growth, s.StressResponse}
}

// All runs every analyzer against the same context.
func All(responses []record.Response, ctx gate.Context) Set {
	return Set{
		Motivation:     Motivation(responses, ctx),
		Consistency:    Consistency(responses, ctx),
		Growth:         Growth(responses, ctx),
		StressResponse: StressResponse(responses, ctx),
	}
}

var (
	motivationKeywords = []string{
		"motivated", "inspired", "excited", "passionate", "driven", "determined",
		"goal", "achieve", "success", "accomplished",
	}
	consistencyKeywords = []string{
		"routine", "habit", "regular", "daily", "always", "consistent",
		"discipline", "practice", "maintain", "steady",
	}
	volatilityKeywords = []string{
		"change", "different", "varies", "sometimes", "unpredictable",
		"spontaneous", "flexible",
	}
	growthKeywords = []string{
		"learned", "growth", "improved", "developed", "grew", "progress",
		"challenge", "opportunity", "new", "skill", "knowledge", "better",
		"evolved", "adapted", "overcame", "self-improvement",
	}
	fixedMindsetKeywords = []string{
		"stuck", "can't", "impossible", "always been", "never could", "born",
		"natural", "talent", "gifted",
	}
	activeCopingKeywords = []string{
		"handled", "managed", "solved", "addressed", "faced", "overcame", "dealt",
		"took action", "worked through", "found solution",
	}
	avoidanceKeywords = []string{
		"avoided", "ignored", "gave up", "quit", "walked away", "couldn't handle",
		"too much",
	}
	supportKeywords = []string{
		"help", "support", "talked", "asked", "reached out", "team", "family",
		"friends", "mentor",
	}
)

// analysis carries the shared steps every analyzer runs after it has
// produced its per-response raw scores.
type analysis struct {
	key, name  string
	points     []float64
	adjustment float64
	sessionCap float64
	describe   func(score float64, dir string) string
	responses  []record.Response
	ctx        gate.Context
	pattern    string
	indicators []string
	volatility float64
}

func (a analysis) run() Result {
	capValue := gate.CapsFor(a.ctx).For(a.key)
	if len(a.responses) == 0 {
		score := stats.Round(min(0.5, capValue), 2)
		return Result{
			Key: a.key, Name: a.name, Score: score, RawScore: 0.5, Cap: capValue,
			Direction: InsufficientData, Description: insufficientMsg,
			DataPoints: []float64{}, ScoreCapped: score != 0.5, Pattern: a.pattern,
		}
	}

	points := make([]float64, len(a.points))
	for i, p := range a.points {
		p = stats.Clamp(p, 0, 1)
		if q := a.responses[i].InputQuality; q < lowQuality {
			p *= q / lowQuality
		}
		points[i] = stats.Round(p, 2)
	}

	raw := stats.Round(stats.Clamp(stats.Mean(points)-a.adjustment, 0, 1), 2)
	final := min(raw, capValue)
	if a.sessionCap > 0 {
		final = min(final, a.sessionCap)
	}
	final = stats.Round(stats.Clamp(final, 0, 1), 2)

	dir := Direction(points)
	return Result{
		Key:           a.key,
		Name:          a.name,
		Score:         final,
		Direction:     dir.Direction,
		Description:   a.describe(final, dir.Direction),
		DataPoints:    points,
		ScoreCapped:   final != raw,
		RawScore:      raw,
		Cap:           capValue,
		Slope:         dir.Slope,
		Confidence:    dir.Confidence,
		MovingAverage: MovingAverage(points, defaultWindow),
		ChangePoints:  ChangePoints(points, changePointThreshold),
		Pattern:       a.pattern,
		Indicators:    a.indicators,
		Volatility:    a.volatility,
	}
}

// Motivation scores enthusiasm from sentiment and goal language.
func Motivation(responses []record.Response, ctx gate.Context) Result {
	points := make([]float64, len(responses))
	for i, r := range responses {
		text := strings.ToLower(r.RawText)
		score := (r.SentimentScore + 1) / 2
		score += 0.1 * float64(countPresent(text, motivationKeywords))
		points[i] = min(1, score)
	}

	return analysis{
		key: gate.TrendMotivation, name: "Motivation Trend",
		points: points, responses: responses, ctx: ctx,
		describe: func(score float64, dir string) string {
			switch {
			case score < lowBand:
				return "Motivation signals are currently limited. Identifying small, achievable goals may help rebuild momentum."
			case dir == Downward:
				return "Motivation appears to be declining. Consider identifying sources of inspiration and setting smaller, achievable goals."
			case dir == Upward && score > motivationHigh:
				return "Shows increasing motivation over time, with growing enthusiasm for goals and achievements."
			default:
				return "Maintains steady motivation levels throughout experiences."
			}
		},
	}.run()
}

// Consistency scores routine language, penalized by answer-to-answer
// sentiment swings.
func Consistency(responses []record.Response, ctx gate.Context) Result {
	points := make([]float64, len(responses))
	for i, r := range responses {
		text := strings.ToLower(r.RawText)
		score := 0.5
		score += 0.08 * float64(countPresent(text, consistencyKeywords))
		score -= 0.05 * float64(countPresent(text, volatilityKeywords))
		points[i] = score
	}

	var penalty float64
	if len(responses) > 1 {
		var changes float64
		for i := 1; i < len(responses); i++ {
			changes += math.Abs(responses[i].SentimentScore - responses[i-1].SentimentScore)
		}
		penalty = min(maxVolatility, changes/float64(len(responses)-1))
	}

	return analysis{
		key: gate.TrendConsistency, name: "Consistency Score",
		points: points, adjustment: penalty, responses: responses, ctx: ctx,
		volatility: stats.Round(penalty, 3),
		describe: func(score float64, _ string) string {
			switch {
			case score > highBand:
				return "Demonstrates strong consistency in behavior and routines. Shows reliable patterns."
			case score > lowBand:
				return "Maintains moderate consistency with some variability. Balanced between routine and flexibility."
			default:
				return "Shows high variability in patterns. May benefit from establishing more consistent routines."
			}
		},
	}.run()
}

// Growth scores learning language against fixed-mindset language.
func Growth(responses []record.Response, ctx gate.Context) Result {
	points := make([]float64, len(responses))
	seen := map[string]bool{}
	var indicators []string
	for i, r := range responses {
		text := strings.ToLower(r.RawText)
		score := 0.5
		for _, kw := range growthKeywords {
			if strings.Contains(text, kw) {
				score += 0.07
				if !seen[kw] {
					seen[kw] = true
					indicators = append(indicators, kw)
				}
			}
		}
		score -= 0.1 * float64(countPresent(text, fixedMindsetKeywords))
		points[i] = score
	}
	if len(indicators) > 5 {
		indicators = indicators[:5]
	}

	var sessionCap float64
	if ctx.UncertaintyCount >= 3 || ctx.FearCount >= 2 {
		sessionCap = growthSession
	}

	return analysis{
		key: gate.TrendGrowth, name: "Growth Orientation",
		points: points, sessionCap: sessionCap, responses: responses, ctx: ctx,
		indicators: indicators,
		describe: func(score float64, _ string) string {
			switch {
			case score > highBand:
				return "Shows strong growth orientation with focus on learning and development."
			case score > lowBand:
				return "Demonstrates balanced approach to growth with openness to learning."
			default:
				return "May benefit from adopting more growth-oriented perspectives."
			}
		},
	}.run()
}

// StressResponse scores coping style. The pattern comes from keyword
// tallies alone and does not depend on the numeric score.
func StressResponse(responses []record.Response, ctx gate.Context) Result {
	points := make([]float64, len(responses))
	var active, support, avoidance int
	for i, r := range responses {
		text := strings.ToLower(r.RawText)
		a := countPresent(text, activeCopingKeywords)
		s := countPresent(text, supportKeywords)
		v := countPresent(text, avoidanceKeywords)
		active += a
		support += s
		avoidance += v

		lift := (r.SentimentScore + 1) / 10
		switch {
		case a > 0:
			points[i] = 0.7 + lift
		case s > 0:
			points[i] = 0.6 + lift
		case v > 0:
			points[i] = 0.4 + lift
		default:
			points[i] = 0.5 + lift
		}
	}
	pattern := copingPattern(active, support, avoidance)

	return analysis{
		key: gate.TrendStressResponse, name: "Stress Response",
		points: points, responses: responses, ctx: ctx, pattern: pattern,
		describe: func(score float64, _ string) string {
			if score < lowBand && pattern != AvoidanceProne {
				return "Currently experiencing difficulty with stressful situations. Building a few reliable coping strategies may help."
			}
			return copingDescriptions[pattern]
		},
	}.run()
}

var copingDescriptions = map[string]string{
	ActiveCoping:   "Tends to address challenges directly with problem-solving approach.",
	SupportSeeking: "Values collaboration and seeks help when facing challenges.",
	AvoidanceProne: "May benefit from developing more direct coping strategies.",
	BalancedCoping: "Shows balanced approach to handling stressful situations.",
}

func copingPattern(active, support, avoidance int) string {
	switch {
	case active > support && active > avoidance:
		return ActiveCoping
	case support > active && support > avoidance:
		return SupportSeeking
	case avoidance > 0:
		return AvoidanceProne
	default:
		return BalancedCoping
	}
}

func countPresent(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

package gate

import (
	"fmt"
	"strings"

	"github.com/kalambet/psychtrend/internal/stats"
)

// Trend names used as cap keys.
const (
	TrendMotivation     = "motivation"
	TrendConsistency    = "consistency"
	TrendGrowth         = "growth"
	TrendStressResponse = "stress_response"
)

// Archetype names the gate refers to.
const (
	Achiever   = "achiever"
	Innovator  = "innovator"
	Stabilizer = "stabilizer"
	Developing = "developing"
	Exploring  = "exploring"
	Emerging   = "emerging"
)

// Caps holds per-trend score ceilings in [0,1].
type Caps struct {
	Motivation     float64 `json:"motivation"`
	Consistency    float64 `json:"consistency"`
	Growth         float64 `json:"growth"`
	StressResponse float64 `json:"stress_response"`
}

// For returns the ceiling for a trend name; unknown names are uncapped.
func (c Caps) For(trend string) float64 {
	switch trend {
	case TrendMotivation:
		return c.Motivation
	case TrendConsistency:
		return c.Consistency
	case TrendGrowth:
		return c.Growth
	case TrendStressResponse:
		return c.StressResponse
	}
	return 1
}

var (
	uncapped = Caps{Motivation: 1, Consistency: 1, Growth: 1, StressResponse: 1}
	baseline = Caps{Motivation: 0.45, Consistency: 0.30, Growth: 0.45, StressResponse: 0.45}
)

const secondaryCap = 0.35

// CapsFor returns the trend ceilings for a context. Secondary indicator
// rules only ever lower a ceiling.
func CapsFor(ctx Context) Caps {
	if !ctx.IsNegativeDominant {
		return uncapped
	}

	c := baseline
	if ctx.StressCount >= 3 {
		c.Motivation = min(c.Motivation, secondaryCap)
		c.StressResponse = min(c.StressResponse, secondaryCap)
	}
	if ctx.FearCount >= 2 {
		c.StressResponse = min(c.StressResponse, secondaryCap)
		c.Growth = min(c.Growth, secondaryCap)
	}
	if ctx.LowMotivationCount >= 2 {
		c.Motivation = min(c.Motivation, 0.30)
	}
	if ctx.UncertaintyCount >= 3 {
		c.Growth = min(c.Growth, secondaryCap)
		c.Consistency = min(c.Consistency, 0.25)
	}

	c.Motivation = stats.Clamp(c.Motivation, 0, 1)
	c.Consistency = stats.Clamp(c.Consistency, 0, 1)
	c.Growth = stats.Clamp(c.Growth, 0, 1)
	c.StressResponse = stats.Clamp(c.StressResponse, 0, 1)
	return c
}

// Blocked returns the archetypes that must not appear for this context.
func Blocked(ctx Context) map[string]bool {
	blocked := map[string]bool{}
	if !ctx.HasAchievementEvidence {
		blocked[Achiever] = true
	}
	if ctx.IsNegativeDominant {
		blocked[Achiever] = true
		blocked[Innovator] = true
		if ctx.StressCount >= 2 {
			blocked[Stabilizer] = true
		}
	}
	return blocked
}

// Preferred returns the neutral archetypes to boost, in priority order.
func Preferred(ctx Context) []string {
	if !ctx.IsNegativeDominant {
		return nil
	}

	var out []string
	if ctx.UncertaintyCount >= 2 {
		out = append(out, Exploring)
	}
	if ctx.LowMotivationCount >= 1 {
		out = append(out, Developing)
	}
	if ctx.FearCount >= 1 {
		out = append(out, Emerging)
	}
	if len(out) == 0 {
		out = []string{Developing, Exploring}
	}
	return out
}

// ToneGuidance is prompt text steering generated prose toward cautious,
// evidence-based wording. It is empty unless the context is negative
// dominant.
func ToneGuidance(ctx Context) string {
	if !ctx.IsNegativeDominant {
		return ""
	}

	var b strings.Builder
	b.WriteString("\nIMPORTANT TONE GUIDANCE (based on detected negative sentiment):\n")
	b.WriteString("- Use cautious, evidence-based language\n")
	b.WriteString("- Do NOT apply optimism bias or positive reframing\n")
	b.WriteString("- Reflect the emotional tone accurately\n")
	b.WriteString("- Use phrases like: \"currently experiencing\", \"shows signs of\", \"may be facing challenges with\"\n")
	b.WriteString("- Do NOT interpret stress or pressure as achievement\n")
	b.WriteString("- Do NOT assume resilience without explicit evidence\n")
	if len(ctx.AttentionAreas) > 0 {
		fmt.Fprintf(&b, "\nBehavioral Attention Areas to highlight: %s\n", strings.Join(ctx.AttentionAreas, ", "))
	}
	return b.String()
}

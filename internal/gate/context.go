// Package gate derives the session-wide negative sentiment context and the
// score ceilings and archetype rules that follow from it. Every analyzer in
// one request must be handed the same Context value.
package gate

import (
	"strings"

	"github.com/kalambet/psychtrend/internal/record"
	"github.com/kalambet/psychtrend/internal/stats"
)

// Attention area labels, in report order.
const (
	AreaMotivation = "motivation stability"
	AreaConfidence = "confidence"
	AreaStress     = "stress handling"
	AreaEmotional  = "emotional regulation"
)

const (
	negativeScoreThreshold = -0.1
	lowQualityThreshold    = 0.5
	negativeRatioThreshold = 0.3
)

var (
	uncertaintyKeywords = []string{
		"don't know", "not sure", "uncertain", "confused", "unclear", "maybe",
		"perhaps", "idk", "dunno", "no idea", "unsure", "hard to say", "can't tell",
		"i guess", "possibly", "doubtful", "hesitant",
	}
	stressKeywords = []string{
		"stress", "stressed", "pressure", "overwhelmed", "exhausted", "tired", "burnt out",
		"anxious", "worried", "tense", "overworked", "demanding", "hectic",
		"struggling", "difficult", "hard time", "tough", "draining", "burden",
	}
	fearKeywords = []string{
		"afraid", "scared", "fear", "worried", "discouraged", "hopeless", "give up",
		"gave up", "can't", "cannot", "impossible", "won't work", "fail", "failed",
		"failure", "losing", "lost", "stuck", "trapped", "helpless", "pointless",
		"useless", "worthless", "no point",
	}
	lowMotivationKeywords = []string{
		"don't want", "unmotivated", "lazy", "bored", "apathetic", "indifferent",
		"lack of interest", "no motivation", "forced", "have to", "must",
		"obligation", "reluctant", "unwilling", "dread", "hate",
	}
	noAchievementKeywords = []string{
		"nothing", "didn't accomplish", "no progress", "haven't done",
		"nothing special", "not much", "same old", "routine", "boring", "mundane",
		"ordinary", "unremarkable", "mediocre", "average",
	}
	achievementEvidence = []string{
		"achieved", "accomplished", "proud", "success", "won", "earned",
		"completed", "finished", "reached", "goal", "milestone", "breakthrough",
		"recognition", "award", "promoted", "excelled", "best", "first place",
	}
	growthEvidence = []string{
		"learned", "grew", "improved", "developed", "progressed", "better",
		"enhanced", "expanded", "evolved", "transformed", "mastered",
	}
)

// Context is the negative sentiment context of a whole session.
type Context struct {
	IsNegativeDominant     bool     `json:"is_negative_dominant"`
	NegativeRatio          float64  `json:"negative_ratio"`
	UncertaintyCount       int      `json:"uncertainty_count"`
	StressCount            int      `json:"stress_count"`
	FearCount              int      `json:"fear_count"`
	LowMotivationCount     int      `json:"low_motivation_count"`
	NoAchievementCount     int      `json:"no_achievement_count"`
	HasAchievementEvidence bool     `json:"has_achievement_evidence"`
	HasGrowthEvidence      bool     `json:"has_growth_evidence"`
	AttentionAreas         []string `json:"attention_areas"`
}

// IndicatorTotal is the sum of the five indicator counts.
func (c Context) IndicatorTotal() int {
	return c.UncertaintyCount + c.StressCount + c.FearCount + c.LowMotivationCount + c.NoAchievementCount
}

// Analyze computes the context for a response list. Each keyword counts at
// most once however often it appears. The result depends only on the
// responses, so repeated calls agree.
func Analyze(responses []record.Response) Context {
	ctx := Context{AttentionAreas: []string{}}
	if len(responses) == 0 {
		return ctx
	}

	text := record.CombinedText(responses)
	ctx.UncertaintyCount = countPresent(text, uncertaintyKeywords)
	ctx.StressCount = countPresent(text, stressKeywords)
	ctx.FearCount = countPresent(text, fearKeywords)
	ctx.LowMotivationCount = countPresent(text, lowMotivationKeywords)
	ctx.NoAchievementCount = countPresent(text, noAchievementKeywords)
	ctx.HasAchievementEvidence = countPresent(text, achievementEvidence) > 0
	ctx.HasGrowthEvidence = countPresent(text, growthEvidence) > 0

	var negative int
	for _, r := range responses {
		if r.SentimentScore < negativeScoreThreshold {
			negative++
		}
		if r.InputQuality < lowQualityThreshold {
			negative++
		}
	}
	ctx.NegativeRatio = stats.Round(float64(negative)/float64(2*len(responses)), 2)

	ctx.IsNegativeDominant = ctx.NegativeRatio > negativeRatioThreshold ||
		ctx.IndicatorTotal() >= 3 ||
		(ctx.StressCount >= 2 && ctx.FearCount >= 1) ||
		ctx.LowMotivationCount >= 2

	if ctx.LowMotivationCount >= 1 || ctx.StressCount >= 2 {
		ctx.AttentionAreas = append(ctx.AttentionAreas, AreaMotivation)
	}
	if ctx.UncertaintyCount >= 2 {
		ctx.AttentionAreas = append(ctx.AttentionAreas, AreaConfidence)
	}
	if ctx.StressCount >= 1 || ctx.FearCount >= 1 {
		ctx.AttentionAreas = append(ctx.AttentionAreas, AreaStress)
	}
	if ctx.FearCount >= 2 || (ctx.StressCount >= 1 && ctx.FearCount >= 1) {
		ctx.AttentionAreas = append(ctx.AttentionAreas, AreaEmotional)
	}
	return ctx
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

package predictor

import (
	"strings"

	"github.com/kalambet/psychtrend/internal/record"
	"github.com/kalambet/psychtrend/internal/stats"
)

// Features is the flat feature set the scorers read.
type Features struct {
	RoutineMentions     int     `json:"routine_mentions"`
	HabitMentions       int     `json:"habit_mentions"`
	SentimentStability  float64 `json:"sentiment_stability"`
	DisciplineKeywords  int     `json:"discipline_keywords"`
	ChangeMentions      int     `json:"change_mentions"`
	OvercomeKeywords    int     `json:"overcome_keywords"`
	FlexibilityKeywords int     `json:"flexibility_keywords"`
	LearningKeywords    int     `json:"learning_keywords"`
	ImprovementMentions int     `json:"improvement_mentions"`
	GoalOrientation     int     `json:"goal_orientation"`
	AvgSentiment        float64 `json:"avg_sentiment"`
	SentimentTrend      float64 `json:"sentiment_trend"`
	PositiveRatio       float64 `json:"positive_ratio"`
	AvgQuality          float64 `json:"avg_quality"`
	LowQualityRatio     float64 `json:"low_quality_ratio"`
}

// neutralFeatures is used when there is nothing to extract from.
var neutralFeatures = Features{SentimentStability: 0.5, PositiveRatio: 0.5, AvgQuality: 1}

// ExtractFeatures tallies word occurrences in the combined text and
// extracted keyword themes, and summarizes sentiment and quality.
func ExtractFeatures(responses []record.Response) Features {
	if len(responses) == 0 {
		return neutralFeatures
	}

	text := record.CombinedText(responses)
	kw := record.KeywordCounts(responses)
	scores := record.Scores(responses)
	qualities := record.Qualities(responses)
	count := func(words ...string) int {
		n := 0
		for _, w := range words {
			n += strings.Count(text, w)
		}
		return n
	}

	f := Features{
		RoutineMentions:     count("routine", "regular", "daily"),
		HabitMentions:       count("habit", "always", "every"),
		SentimentStability:  0.5,
		DisciplineKeywords:  kw["self-improvement"] + count("discipline", "consistent"),
		ChangeMentions:      count("change", "adapt", "adjust"),
		OvercomeKeywords:    kw["resilience"] + count("overcame"),
		FlexibilityKeywords: count("flexible", "open"),
		LearningKeywords:    kw["growth"] + count("learned"),
		ImprovementMentions: count("improve", "better", "progress"),
		GoalOrientation:     kw["achievement"] + count("goal"),
		AvgSentiment:        stats.Mean(scores),
		AvgQuality:          stats.Mean(qualities),
	}
	if len(scores) > 1 {
		f.SentimentStability = 1 - min(1, stats.Std(scores)*2)
		f.SentimentTrend = scores[len(scores)-1] - scores[0]
	}

	var positive, lowQuality int
	for i := range responses {
		if scores[i] > 0.2 {
			positive++
		}
		if qualities[i] < 0.3 {
			lowQuality++
		}
	}
	n := float64(len(responses))
	f.PositiveRatio = float64(positive) / n
	f.LowQualityRatio = float64(lowQuality) / n
	return f
}

// Package report assembles the analyzers into one session analysis and
// renders it as a report.
package report

import (
	"time"

	"github.com/kalambet/psychtrend/internal/clustering"
	"github.com/kalambet/psychtrend/internal/gate"
	"github.com/kalambet/psychtrend/internal/predictor"
	"github.com/kalambet/psychtrend/internal/record"
	"github.com/kalambet/psychtrend/internal/sentiment"
	"github.com/kalambet/psychtrend/internal/trends"
)

// DefaultMinResponses is how many structured answers an analysis needs.
const DefaultMinResponses = 3

// Status values for an Analysis.
const (
	StatusComplete         = "complete"
	StatusInsufficientData = "insufficient_data"
)

// Analysis is everything the analyzers derive from one session. Context is
// computed once and every analyzer saw that same value.
type Analysis struct {
	SessionID        string                     `json:"session_id"`
	UserName         string                     `json:"user_name"`
	Status           string                     `json:"status"`
	Message          string                     `json:"message,omitempty"`
	Timestamp        time.Time                  `json:"analysis_timestamp"`
	ResponseCount    int                        `json:"response_count"`
	Context          gate.Context               `json:"sentiment_context"`
	Caps             gate.Caps                  `json:"score_caps"`
	Aggregate        record.Aggregate           `json:"aggregated_data"`
	Trends           trends.Set                 `json:"trends"`
	Clusters         clustering.Profile         `json:"behavioral_clusters"`
	Predictions      []predictor.Prediction     `json:"predictions"`
	EmotionalProfile sentiment.EmotionalProfile `json:"emotional_profile"`
	SentimentTrend   sentiment.SeriesTrend      `json:"sentiment_trend"`
	Strengths        []string                   `json:"strengths"`
	GrowthAreas      []string                   `json:"growth_areas"`
	AttentionAreas   []string                   `json:"attention_areas"`
}

// Analyze runs every analyzer over responses. It never fails; callers that
// need a minimum amount of data check Sufficient first.
func Analyze(sessionID, userName string, responses []record.Response, now time.Time) Analysis {
	ctx := gate.Analyze(responses)
	scores := record.Scores(responses)

	return Analysis{
		SessionID:        sessionID,
		UserName:         userName,
		Status:           StatusComplete,
		Timestamp:        now.UTC(),
		ResponseCount:    len(responses),
		Context:          ctx,
		Caps:             gate.CapsFor(ctx),
		Aggregate:        record.Summarize(responses),
		Trends:           trends.All(responses, ctx),
		Clusters:         clustering.Build(responses, ctx),
		Predictions:      predictor.All(responses),
		EmotionalProfile: sentiment.Profile(scores),
		SentimentTrend:   sentiment.Trend(scores),
		Strengths:        predictor.Strengths(responses),
		GrowthAreas:      predictor.GrowthAreas(responses),
		AttentionAreas:   ctx.AttentionAreas,
	}
}

// Insufficient is the placeholder returned instead of an analysis when a
// session has too few answers.
func Insufficient(sessionID string, count int) Analysis {
	return Analysis{
		SessionID:     sessionID,
		Status:        StatusInsufficientData,
		Message:       "Need more responses for meaningful analysis",
		ResponseCount: count,
	}
}

// Sufficient reports whether there is enough data for analysis.
func Sufficient(responses []record.Response, min int) bool {
	if min <= 0 {
		min = DefaultMinResponses
	}
	return len(responses) >= min
}

// PrimaryArchetype is the top affinity, if any.
func (a Analysis) PrimaryArchetype() (clustering.Affinity, bool) {
	if len(a.Clusters.Archetypes) == 0 {
		return clustering.Affinity{}, false
	}
	return a.Clusters.Archetypes[0], true
}

// Package record defines the structured per-turn answer that the analyzers
// consume and the step that builds it from raw chat text.
package record

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/kalambet/psychtrend/internal/sentiment"
	"github.com/kalambet/psychtrend/internal/stats"
)

const maxEventDescription = 200

// ErrIncomplete is returned for answers with nothing to analyze.
var ErrIncomplete = errors.New("I didn't catch that. Could you please share a bit more?")

// Response is one structured answer. It is never modified after Structure
// returns it.
type Response struct {
	Category          string             `json:"category"`
	RawText           string             `json:"raw_text"`
	EventDescription  string             `json:"event_description"`
	Timestamp         time.Time          `json:"timestamp"`
	SentimentScore    float64            `json:"sentiment_score"`
	SentimentCategory sentiment.Category `json:"sentiment_category"`
	Keywords          []string           `json:"keywords"`
	InputQuality      float64            `json:"input_quality"`
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// Validate rejects answers too short to carry any signal.
func Validate(text string) error {
	if len([]rune(strings.TrimSpace(text))) < 2 {
		return ErrIncomplete
	}
	return nil
}

// Structure scores raw answer text and packs it into a Response.
func Structure(raw, category string, now time.Time) Response {
	res := sentiment.Analyze(raw)
	return Response{
		Category:          category,
		RawText:           raw,
		EventDescription:  EventDescription(raw),
		Timestamp:         now.UTC(),
		SentimentScore:    res.Score,
		SentimentCategory: res.Category,
		Keywords:          ExtractKeywords(raw),
		InputQuality:      sentiment.Quality(raw),
	}
}

// EventDescription collapses whitespace and truncates long answers.
func EventDescription(text string) string {
	cleaned := whitespaceRE.ReplaceAllString(strings.TrimSpace(text), " ")
	r := []rune(cleaned)
	if len(r) <= maxEventDescription {
		return cleaned
	}
	return string(r[:maxEventDescription-3]) + "..."
}

// Texts returns the raw text of every response, in order.
func Texts(responses []Response) []string {
	out := make([]string, len(responses))
	for i, r := range responses {
		out[i] = r.RawText
	}
	return out
}

// CombinedText lowercases and space-joins all raw answers.
func CombinedText(responses []Response) string {
	return strings.ToLower(strings.Join(Texts(responses), " "))
}

// Scores returns the sentiment score of every response, in order.
func Scores(responses []Response) []float64 {
	out := make([]float64, len(responses))
	for i, r := range responses {
		out[i] = r.SentimentScore
	}
	return out
}

// Qualities returns the input quality of every response, in order.
func Qualities(responses []Response) []float64 {
	out := make([]float64, len(responses))
	for i, r := range responses {
		out[i] = r.InputQuality
	}
	return out
}

// KeywordCounts tallies extracted keywords across all responses.
func KeywordCounts(responses []Response) map[string]int {
	counts := make(map[string]int)
	for _, r := range responses {
		for _, kw := range r.Keywords {
			counts[kw]++
		}
	}
	return counts
}

// CategorySummary groups the responses given in one conversation category.
type CategorySummary struct {
	Responses    []Response `json:"responses"`
	AvgSentiment float64    `json:"avg_sentiment"`
	Keywords     []string   `json:"keywords"`
}

// TimelinePoint is one entry of the sentiment timeline.
type TimelinePoint struct {
	Category  string    `json:"category"`
	Sentiment float64   `json:"sentiment"`
	Timestamp time.Time `json:"timestamp"`
}

// Aggregate is the per-session rollup used by reports.
type Aggregate struct {
	TotalResponses   int                         `json:"total_responses"`
	Categories       map[string]*CategorySummary `json:"categories"`
	OverallSentiment float64                     `json:"overall_sentiment"`
	AllKeywords      []string                    `json:"all_keywords"`
	Timeline         []TimelinePoint             `json:"sentiment_timeline"`
}

// Summarize groups responses by category and builds the sentiment timeline.
func Summarize(responses []Response) Aggregate {
	agg := Aggregate{
		Categories:  map[string]*CategorySummary{},
		AllKeywords: []string{},
		Timeline:    []TimelinePoint{},
	}
	if len(responses) == 0 {
		return agg
	}

	seen := map[string]bool{}
	catSeen := map[string]map[string]bool{}
	for _, r := range responses {
		cat := r.Category
		if cat == "" {
			cat = "unknown"
		}
		cs, ok := agg.Categories[cat]
		if !ok {
			cs = &CategorySummary{Keywords: []string{}}
			agg.Categories[cat] = cs
			catSeen[cat] = map[string]bool{}
		}
		cs.Responses = append(cs.Responses, r)
		for _, kw := range r.Keywords {
			if !catSeen[cat][kw] {
				catSeen[cat][kw] = true
				cs.Keywords = append(cs.Keywords, kw)
			}
			if !seen[kw] {
				seen[kw] = true
				agg.AllKeywords = append(agg.AllKeywords, kw)
			}
		}
		agg.Timeline = append(agg.Timeline, TimelinePoint{Category: cat, Sentiment: r.SentimentScore, Timestamp: r.Timestamp})
	}

	for _, cs := range agg.Categories {
		cs.AvgSentiment = stats.Round(stats.Mean(Scores(cs.Responses)), 3)
	}
	agg.TotalResponses = len(responses)
	agg.OverallSentiment = stats.Round(stats.Mean(Scores(responses)), 3)
	return agg
}

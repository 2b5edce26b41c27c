// Package sentiment scores free text with weighted lexicons and estimates how
// substantive an answer is.
package sentiment

import (
	"math"
	"regexp"
	"strings"

	"github.com/kalambet/psychtrend/internal/stats"
)

// Category is the coarse polarity bucket for a score.
type Category string

const (
	Positive Category = "positive"
	Neutral  Category = "neutral"
	Negative Category = "negative"
)

const (
	categoryThreshold = 0.15
	negationFactor    = 0.7
	lookback          = 2

	fastUnit          = 0.6
	fastNegationScale = 0.5
)

var tokenRE = regexp.MustCompile(`[\w']+|[.,!?;]`)

// WordScore is a lexicon hit and its final signed contribution.
type WordScore struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// Result is the output of the canonical scorer.
type Result struct {
	Score        float64     `json:"score"`
	Magnitude    float64     `json:"magnitude"`
	Category     Category    `json:"category"`
	Contributing []WordScore `json:"contributing_words"`
}

// CategoryOf buckets a score. Every caller that needs a category for a score
// goes through here so the thresholds cannot drift between scorers.
func CategoryOf(score float64) Category {
	switch {
	case score > categoryThreshold:
		return Positive
	case score < -categoryThreshold:
		return Negative
	default:
		return Neutral
	}
}

// Tokenize lowercases text and splits it into word and punctuation tokens.
func Tokenize(text string) []string {
	return tokenRE.FindAllString(strings.ToLower(text), -1)
}

// Analyze is the canonical scorer. It looks back up to two tokens from every
// lexicon hit for negation and intensity modifiers.
func Analyze(text string) Result {
	res := Result{Category: Neutral, Contributing: []WordScore{}}
	if strings.TrimSpace(text) == "" {
		return res
	}

	tokens := Tokenize(text)
	var sum, absSum float64
	for i, tok := range tokens {
		base, ok := positiveLexicon[tok]
		if !ok {
			base, ok = negativeLexicon[tok]
		}
		if !ok {
			continue
		}

		modifier := 1.0
		negated := false
		for j := max(0, i-lookback); j < i; j++ {
			prev := tokens[j]
			if negations[prev] || strings.Contains(prev, "'t") {
				negated = true
			}
			if f, ok := intensifiers[prev]; ok {
				modifier = f
			} else if f, ok := diminishers[prev]; ok {
				modifier = f
			} else if j+1 < i {
				if f, ok := diminishers[prev+" "+tokens[j+1]]; ok {
					modifier = f
				}
			}
		}

		score := base * modifier
		if negated {
			score = -score * negationFactor
		}
		sum += score
		absSum += math.Abs(score)
		res.Contributing = append(res.Contributing, WordScore{Word: tok, Score: stats.Round(score, 3)})
	}

	if n := len(res.Contributing); n > 0 {
		res.Score = stats.Round(stats.Clamp(sum/float64(n), -1, 1), 3)
		res.Magnitude = stats.Round(stats.Clamp(absSum/float64(n), 0, 1), 3)
	}
	res.Category = CategoryOf(res.Score)
	return res
}

// AnalyzeFast is the cheap variant used on the chat hot path. It only checks
// the immediately preceding word for negation and intensity.
func AnalyzeFast(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	words := strings.Fields(strings.ToLower(text))
	var sum float64
	var hits int
	for i, raw := range words {
		word := stripNonWord(raw)
		var sign float64
		switch {
		case fastPositive[word]:
			sign = 1
		case fastNegative[word]:
			sign = -1
		default:
			continue
		}

		modifier := 1.0
		negated := false
		if i > 0 {
			prev := words[i-1]
			if fastNegations[stripNonWord(prev)] || strings.Contains(prev, "'t") {
				negated = true
			}
			// Two-word modifiers ("kind of", "a bit") span the previous pair.
			pair := prev
			if i > 1 {
				pair = words[i-2] + " " + prev
			}
			for _, m := range fastModifiers {
				if strings.Contains(prev, m.word) || (strings.Contains(m.word, " ") && strings.HasSuffix(pair, m.word)) {
					modifier = m.factor
					break
				}
			}
		}

		score := sign * fastUnit * modifier
		if negated {
			score = -score * fastNegationScale
		}
		sum += score
		hits++
	}
	if hits == 0 {
		return 0
	}
	return stats.Round(stats.Clamp(sum/float64(hits), -1, 1), 3)
}

func stripNonWord(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return r
		}
		return -1
	}, s)
}

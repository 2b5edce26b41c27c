// Package clustering matches a session against the archetype catalog and
// summarizes answers per conversation category.
package clustering

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"github.com/kalambet/psychtrend/internal/gate"
	"github.com/kalambet/psychtrend/internal/record"
	"github.com/kalambet/psychtrend/internal/stats"
)

const (
	keywordWeight   = 0.12
	traitWeight     = 0.08
	preferredBoost  = 0.3
	negativePenalty = 0.6
	minAffinity     = 0.15
	minEvidence     = 2
	topN            = 3
	fallbackScore   = 0.5
)

// Affinity is how strongly a session matches one archetype.
type Affinity struct {
	Name        string   `json:"cluster_name"`
	Affinity    float64  `json:"affinity"`
	Traits      []string `json:"traits"`
	Description string   `json:"description"`
	IsNeutral   bool     `json:"is_neutral,omitempty"`
}

var (
	balanced = Affinity{
		Name:        "balanced",
		Affinity:    fallbackScore,
		Traits:      []string{"adaptable", "moderate", "flexible"},
		Description: "Shows balanced behavioral patterns across categories",
	}
	unknown = Affinity{
		Name:        "unknown",
		Affinity:    fallbackScore,
		Traits:      []string{},
		Description: "Insufficient data",
	}
)

// Affinities scores the built-in catalog against responses.
func Affinities(responses []record.Response, ctx gate.Context) []Affinity {
	return Score(catalog, responses, ctx)
}

// Score ranks archetypes for a session and returns at most the top three.
// Blocked entries are never scored. When nothing clears the threshold a
// single neutral fallback is returned.
func Score(archetypes []Archetype, responses []record.Response, ctx gate.Context) []Affinity {
	if len(responses) == 0 {
		return []Affinity{unknown}
	}

	blocked := gate.Blocked(ctx)
	preferred := gate.Preferred(ctx)
	text := record.CombinedText(responses)
	counts := record.KeywordCounts(responses)
	keys := slices.Sorted(maps.Keys(counts))

	var out []Affinity
	for _, a := range archetypes {
		if blocked[a.Name] {
			continue
		}

		var score float64
		matches := 0
		for _, kw := range a.Keywords {
			if strings.Contains(text, kw) {
				matches++
				score += keywordWeight
			}
		}
		for _, kw := range keys {
			if containsTrait(strings.ToLower(kw), a.Traits) {
				score += traitWeight * float64(counts[kw])
			}
		}

		if a.RequiresEvidence && matches < minEvidence {
			continue
		}
		if slices.Contains(preferred, a.Name) {
			score += preferredBoost
		}
		if ctx.IsNegativeDominant && !a.IsNeutral {
			score *= negativePenalty
		}

		affinity := stats.Round(stats.Clamp(score, 0, 1), 2)
		if affinity > minAffinity {
			out = append(out, Affinity{
				Name:        a.Name,
				Affinity:    affinity,
				Traits:      a.Traits,
				Description: a.Description,
				IsNeutral:   a.IsNeutral,
			})
		}
	}

	if len(out) == 0 {
		if ctx.IsNegativeDominant {
			dev, _ := Lookup(gate.Developing)
			return []Affinity{{
				Name:        dev.Name,
				Affinity:    fallbackScore,
				Traits:      dev.Traits,
				Description: dev.Description,
				IsNeutral:   true,
			}}
		}
		return []Affinity{balanced}
	}

	slices.SortStableFunc(out, func(a, b Affinity) int {
		return cmp.Compare(b.Affinity, a.Affinity)
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

func containsTrait(keyword string, traits []string) bool {
	for _, t := range traits {
		if strings.Contains(keyword, t) {
			return true
		}
	}
	return false
}

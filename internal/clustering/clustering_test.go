package clustering

import (
	"slices"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/kalambet/psychtrend/internal/gate"
	"github.com/kalambet/psychtrend/internal/record"
)

func structured(texts ...string) []record.Response {
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	out := make([]record.Response, len(texts))
	for i, text := range texts {
		out[i] = record.Structure(text, "career", base.Add(time.Duration(i)*time.Minute))
	}
	return out
}

func names(as []Affinity) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.Name
	}
	return out
}

func TestAffinities_AchievementEvidence(t *testing.T) {
	rs := structured("I achieved my biggest goal and felt proud, we worked as a team to finish the project")
	got := Affinities(rs, gate.Analyze(rs))
	if !slices.Contains(names(got), "achiever") {
		t.Errorf("archetypes = %v, want achiever", names(got))
	}
}

func TestAffinities_DistressPrefersNeutral(t *testing.T) {
	const distress = "I'm stressed, overwhelmed, scared I'll fail, don't know what to do"
	rs := structured(distress, distress, distress)
	got := Affinities(rs, gate.Analyze(rs))

	if len(got) == 0 || !got[0].IsNeutral {
		t.Fatalf("archetypes = %+v, want a neutral leader", got)
	}
	for _, name := range names(got) {
		if name == "achiever" || name == "innovator" || name == "stabilizer" {
			t.Errorf("blocked archetype %q returned", name)
		}
	}
}

func TestAffinities_AchieverNeedsEvidence(t *testing.T) {
	gofakeit.Seed(5)
	for i := 0; i < 100; i++ {
		var texts []string
		n := gofakeit.Number(1, 5)
		for j := 0; j < n; j++ {
			texts = append(texts, gofakeit.Sentence(gofakeit.Number(3, 30)))
		}
		if gofakeit.Bool() {
			texts = append(texts, "winning first place was the best, I want to achieve more success")
		}
		rs := structured(texts...)
		ctx := gate.Analyze(rs)
		if slices.Contains(names(Affinities(rs, ctx)), "achiever") && !ctx.HasAchievementEvidence {
			t.Fatalf("achiever returned without evidence for %q", texts)
		}
	}
}

func TestAffinities_RequiresTwoMatches(t *testing.T) {
	rs := structured("my goal was clear and I got an award")
	ctx := gate.Context{HasAchievementEvidence: true}
	if slices.Contains(names(Affinities(rs, ctx)), "achiever") {
		t.Error("one keyword hit should not qualify achiever")
	}
}

func TestAffinities_TopThreeSorted(t *testing.T) {
	rs := structured(
		"I love to learn new things and try different experiences, always discovering something creative",
		"Our team works together, we help and support people like family and friends",
		"I adapt to change, stay flexible, adjust quickly and overcome what I handle",
		"My routine is consistent and steady, I maintain a regular schedule and organize everything",
	)
	got := Affinities(rs, gate.Context{})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(got), got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Affinity > got[i-1].Affinity {
			t.Errorf("not sorted: %+v", got)
		}
	}
}

func TestScore_Fallbacks(t *testing.T) {
	only := []Archetype{{Name: "x", Keywords: []string{"zzzz"}}}
	rs := structured("a quiet ordinary afternoon")

	neg := Score(only, rs, gate.Context{IsNegativeDominant: true})
	if len(neg) != 1 || neg[0].Name != gate.Developing || neg[0].Affinity != 0.5 {
		t.Errorf("negative fallback = %+v", neg)
	}

	pos := Score(only, rs, gate.Context{})
	if len(pos) != 1 || pos[0].Name != "balanced" || pos[0].Affinity != 0.5 {
		t.Errorf("neutral fallback = %+v", pos)
	}

	if empty := Affinities(nil, gate.Context{}); len(empty) != 1 || empty[0].Name != "unknown" {
		t.Errorf("empty = %+v", empty)
	}
}

func TestScore_NegativePenaltySparesNeutral(t *testing.T) {
	only := []Archetype{
		{Name: "connector", Keywords: []string{"team", "help", "family"}},
		{Name: "exploring", Keywords: []string{"not sure", "figuring out", "considering"}, IsNeutral: true},
	}
	rs := structured("not sure, figuring out my team, considering asking family for help")
	got := Score(only, rs, gate.Context{IsNegativeDominant: true})

	byName := map[string]float64{}
	for _, a := range got {
		byName[a.Name] = a.Affinity
	}
	// connector: 3 hits * 0.12 * 0.6; exploring: 3 hits * 0.12 + default preferred boost.
	if byName["connector"] != 0.22 {
		t.Errorf("connector = %v, want 0.22", byName["connector"])
	}
	if byName["exploring"] != 0.66 {
		t.Errorf("exploring = %v, want 0.66", byName["exploring"])
	}
}

func TestCategories(t *testing.T) {
	rs := []record.Response{
		{Category: "career", SentimentScore: 0.5, Keywords: []string{"teamwork", "achievement"}},
		{Category: "career", SentimentScore: 0.2, Keywords: []string{"achievement", "growth", "passion"}},
		{Category: "habits", SentimentScore: -0.1},
	}
	got := Categories(rs)
	career := got["career"]
	if career.ResponseCount != 2 || career.AvgSentiment != 0.35 {
		t.Errorf("career = %+v", career)
	}
	if !slices.Equal(career.TopKeywords, []string{"achievement", "teamwork", "growth"}) {
		t.Errorf("top keywords = %v", career.TopKeywords)
	}
	if h := got["habits"]; h.ResponseCount != 1 || len(h.TopKeywords) != 0 {
		t.Errorf("habits = %+v", h)
	}
}

func TestFeatures(t *testing.T) {
	if got := Features(nil); len(got) != 0 {
		t.Errorf("empty features = %v", got)
	}
	rs := []record.Response{
		{RawText: "I learn and grow with my team", SentimentScore: 0.6},
		{RawText: "a hard challenge", SentimentScore: 0.2},
	}
	got := Features(rs)
	want := []float64{0.7, 0.2, 0.4, 0.4, 0.2, 0}
	if !slices.Equal(got, want) {
		t.Errorf("features = %v, want %v", got, want)
	}
}

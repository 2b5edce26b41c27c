package gate

import (
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/kalambet/psychtrend/internal/record"
)

func responses(texts ...string) []record.Response {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]record.Response, len(texts))
	for i, text := range texts {
		out[i] = record.Structure(text, "career", now.Add(time.Duration(i)*time.Minute))
	}
	return out
}

const distress = "I'm stressed, overwhelmed, scared I'll fail, don't know what to do"

func TestAnalyze_Empty(t *testing.T) {
	ctx := Analyze(nil)
	if ctx.IsNegativeDominant || ctx.NegativeRatio != 0 || ctx.IndicatorTotal() != 0 {
		t.Errorf("empty context = %+v", ctx)
	}
	if ctx.AttentionAreas == nil || len(ctx.AttentionAreas) != 0 {
		t.Errorf("attention areas = %#v, want empty non-nil", ctx.AttentionAreas)
	}
	if CapsFor(ctx) != uncapped {
		t.Errorf("caps = %+v, want all 1.0", CapsFor(ctx))
	}
}

func TestAnalyze_DistressScenario(t *testing.T) {
	ctx := Analyze(responses(distress, distress, distress))

	if !ctx.IsNegativeDominant {
		t.Fatal("expected negative dominant context")
	}
	if ctx.StressCount < 2 || ctx.FearCount < 2 || ctx.UncertaintyCount < 1 {
		t.Errorf("counts = stress %d fear %d uncertainty %d", ctx.StressCount, ctx.FearCount, ctx.UncertaintyCount)
	}
	want := []string{AreaMotivation, AreaStress, AreaEmotional}
	if !slices.Equal(ctx.AttentionAreas, want) {
		t.Errorf("attention areas = %v, want %v", ctx.AttentionAreas, want)
	}

	caps := CapsFor(ctx)
	if caps.Motivation > 0.35 || caps.Growth > 0.35 || caps.Consistency > 0.30 || caps.StressResponse > 0.35 {
		t.Errorf("caps = %+v", caps)
	}

	blocked := Blocked(ctx)
	for _, name := range []string{Achiever, Innovator, Stabilizer} {
		if !blocked[name] {
			t.Errorf("%s should be blocked", name)
		}
	}

	for _, name := range Preferred(ctx) {
		if name != Developing && name != Exploring && name != Emerging {
			t.Errorf("unexpected preferred archetype %q", name)
		}
	}
	if len(Preferred(ctx)) == 0 {
		t.Error("expected preferred archetypes")
	}
}

func TestAnalyze_StemsCountAlongsideWords(t *testing.T) {
	// Keywords are matched as substrings and counted once each, so an
	// inflected word also hits its stem.
	ctx := Analyze(responses("I felt stressed after I failed the exam"))
	if ctx.StressCount != 2 {
		t.Errorf("stress count = %d, want 2 (stress, stressed)", ctx.StressCount)
	}
	if ctx.FearCount != 2 {
		t.Errorf("fear count = %d, want 2 (fail, failed)", ctx.FearCount)
	}

	// "I guess" is case-folded before matching.
	if got := Analyze(responses("I guess it went fine")).UncertaintyCount; got != 1 {
		t.Errorf("uncertainty count = %d, want 1", got)
	}

	// One distress answer is enough to tighten the motivation cap.
	one := Analyze(responses(distress))
	if one.FearCount < 2 || CapsFor(one).Motivation > 0.35 {
		t.Errorf("single distress answer: fear %d, caps %+v", one.FearCount, CapsFor(one))
	}
}

func TestAnalyze_AchievementScenario(t *testing.T) {
	ctx := Analyze(responses("I achieved my biggest goal and felt proud, we worked as a team to finish the project"))
	if !ctx.HasAchievementEvidence {
		t.Error("expected achievement evidence")
	}
	if ctx.IsNegativeDominant {
		t.Errorf("context should not be negative dominant: %+v", ctx)
	}
	if Blocked(ctx)[Achiever] {
		t.Error("achiever should be eligible")
	}
	if Preferred(ctx) != nil {
		t.Errorf("preferred = %v, want none", Preferred(ctx))
	}
}

func TestAnalyze_DismissiveAnswers(t *testing.T) {
	ctx := Analyze(responses("no", "no", "no"))
	// Every answer is low quality, so half of all signals are negative.
	if ctx.NegativeRatio != 0.5 {
		t.Errorf("negative ratio = %v, want 0.5", ctx.NegativeRatio)
	}
	if !ctx.IsNegativeDominant {
		t.Error("quality-driven ratio above 0.3 should flag negative dominance")
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	gofakeit.Seed(42)
	for i := 0; i < 25; i++ {
		var texts []string
		n := gofakeit.Number(0, 6)
		for j := 0; j < n; j++ {
			texts = append(texts, gofakeit.Sentence(gofakeit.Number(1, 20)))
		}
		if gofakeit.Bool() {
			texts = append(texts, distress)
		}
		rs := responses(texts...)
		a, b := Analyze(rs), Analyze(rs)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("Analyze not idempotent:\n%+v\n%+v", a, b)
		}
	}
}

func TestCapsFor_NeverAboveBaseline(t *testing.T) {
	gofakeit.Seed(7)
	for i := 0; i < 200; i++ {
		ctx := randomContext(true)
		c := CapsFor(ctx)
		if c.Motivation > baseline.Motivation || c.Consistency > baseline.Consistency ||
			c.Growth > baseline.Growth || c.StressResponse > baseline.StressResponse {
			t.Fatalf("caps %+v exceed baseline for %+v", c, ctx)
		}
		for _, v := range []float64{c.Motivation, c.Consistency, c.Growth, c.StressResponse} {
			if v < 0 || v > 1 {
				t.Fatalf("cap %v out of range", v)
			}
		}
	}
}

func TestCapsFor_MonotonicInStress(t *testing.T) {
	gofakeit.Seed(11)
	for i := 0; i < 200; i++ {
		ctx := randomContext(true)
		before := CapsFor(ctx)
		ctx.StressCount += gofakeit.Number(1, 4)
		after := CapsFor(ctx)
		if after.Motivation > before.Motivation || after.Consistency > before.Consistency ||
			after.Growth > before.Growth || after.StressResponse > before.StressResponse {
			t.Fatalf("raising stress raised a cap: %+v -> %+v", before, after)
		}
	}
}

func TestCapsFor_SecondaryRules(t *testing.T) {
	ctx := Context{IsNegativeDominant: true, LowMotivationCount: 2, UncertaintyCount: 3}
	c := CapsFor(ctx)
	want := Caps{Motivation: 0.30, Consistency: 0.25, Growth: 0.35, StressResponse: 0.45}
	if c != want {
		t.Errorf("caps = %+v, want %+v", c, want)
	}
	if c.For("unknown") != 1 {
		t.Error("unknown trend should be uncapped")
	}
}

func TestBlocked_AchieverNeedsEvidence(t *testing.T) {
	if !Blocked(Context{})[Achiever] {
		t.Error("achiever should be blocked without evidence")
	}
	b := Blocked(Context{HasAchievementEvidence: true, IsNegativeDominant: true, StressCount: 1})
	if !b[Achiever] || !b[Innovator] || b[Stabilizer] {
		t.Errorf("blocked = %v", b)
	}
}

func TestPreferred_Default(t *testing.T) {
	got := Preferred(Context{IsNegativeDominant: true, NoAchievementCount: 3})
	if !slices.Equal(got, []string{Developing, Exploring}) {
		t.Errorf("preferred = %v", got)
	}
	got = Preferred(Context{IsNegativeDominant: true, UncertaintyCount: 2, LowMotivationCount: 1, FearCount: 1})
	if !slices.Equal(got, []string{Exploring, Developing, Emerging}) {
		t.Errorf("preferred = %v", got)
	}
}

func TestToneGuidance(t *testing.T) {
	if ToneGuidance(Context{}) != "" {
		t.Error("guidance should be empty for a neutral context")
	}
	g := ToneGuidance(Context{IsNegativeDominant: true, AttentionAreas: []string{AreaStress, AreaConfidence}})
	if !strings.Contains(g, "Do NOT apply optimism bias") || !strings.Contains(g, "stress handling, confidence") {
		t.Errorf("guidance = %q", g)
	}
}

func randomContext(negative bool) Context {
	return Context{
		IsNegativeDominant: negative,
		UncertaintyCount:   gofakeit.Number(0, 6),
		StressCount:        gofakeit.Number(0, 6),
		FearCount:          gofakeit.Number(0, 6),
		LowMotivationCount: gofakeit.Number(0, 6),
		NoAchievementCount: gofakeit.Number(0, 6),
	}
}

package trends

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
		out[i] = record.Structure(text, "habits", base.Add(time.Duration(i)*time.Minute))
	}
	return out
}

const upbeat = "I am motivated, inspired, excited, passionate and determined to achieve my goal"

func TestAll_Empty(t *testing.T) {
	set := All(nil, gate.Analyze(nil))
	for _, r := range set.List() {
		if r.Direction != InsufficientData {
			t.Errorf("%s direction = %s, want insufficient_data", r.Name, r.Direction)
		}
		if r.Score != 0.5 || r.ScoreCapped {
			t.Errorf("%s score = %v capped = %v", r.Name, r.Score, r.ScoreCapped)
		}
		if r.Description != insufficientMsg {
			t.Errorf("%s description = %q", r.Name, r.Description)
		}
	}
}

func TestMotivation_CappedUnderNegativeContext(t *testing.T) {
	rs := structured(upbeat, upbeat)
	ctx := gate.Context{IsNegativeDominant: true}

	r := Motivation(rs, ctx)
	if r.RawScore != 1 {
		t.Fatalf("raw score = %v, want 1", r.RawScore)
	}
	if r.Score != 0.45 || !r.ScoreCapped {
		t.Errorf("score = %v capped = %v, want 0.45 capped", r.Score, r.ScoreCapped)
	}
	if r.Description != "Maintains steady motivation levels throughout experiences." {
		t.Errorf("description = %q", r.Description)
	}

	uncapped := Motivation(rs, gate.Context{})
	if uncapped.Score != 1 || uncapped.ScoreCapped {
		t.Errorf("uncapped score = %v capped = %v", uncapped.Score, uncapped.ScoreCapped)
	}
}

func TestAll_NegativeDominantNeverExceedsBaseline(t *testing.T) {
	gofakeit.Seed(3)
	baselines := map[string]float64{
		gate.TrendMotivation: 0.45, gate.TrendConsistency: 0.30,
		gate.TrendGrowth: 0.45, gate.TrendStressResponse: 0.45,
	}
	for i := 0; i < 50; i++ {
		texts := []string{upbeat, "I handled every challenge, learned new skills and improved daily with a steady routine"}
		n := gofakeit.Number(0, 4)
		for j := 0; j < n; j++ {
			texts = append(texts, gofakeit.Sentence(gofakeit.Number(3, 25)))
		}
		rs := structured(texts...)
		ctx := gate.Analyze(rs)
		ctx.IsNegativeDominant = true

		for _, r := range All(rs, ctx).List() {
			if r.Score > baselines[r.Key] {
				t.Fatalf("%s score %v exceeds baseline %v", r.Key, r.Score, baselines[r.Key])
			}
			if r.ScoreCapped != (r.Score != r.RawScore) {
				t.Fatalf("%s capped flag %v inconsistent with %v vs %v", r.Key, r.ScoreCapped, r.Score, r.RawScore)
			}
		}
	}
}

func TestAll_DismissiveAnswersSuppressScores(t *testing.T) {
	rs := structured("no", "no", "no")
	set := All(rs, gate.Analyze(rs))

	if set.Consistency.Score >= 0.3 {
		t.Errorf("consistency = %v, want below 0.3", set.Consistency.Score)
	}
	if set.Growth.Score >= 0.3 {
		t.Errorf("growth = %v, want below 0.3", set.Growth.Score)
	}
	if set.Consistency.Description != "Shows high variability in patterns. May benefit from establishing more consistent routines." {
		t.Errorf("consistency description = %q", set.Consistency.Description)
	}
}

func TestGrowth_SessionReduction(t *testing.T) {
	rs := structured("I learned a new skill and improved, it was a real opportunity for growth")
	r := Growth(rs, gate.Context{FearCount: 2})
	if r.Score != 0.30 || !r.ScoreCapped {
		t.Errorf("score = %v capped = %v, want 0.30 capped", r.Score, r.ScoreCapped)
	}
	if r.Description != "May benefit from adopting more growth-oriented perspectives." {
		t.Errorf("description = %q", r.Description)
	}
	if len(r.Indicators) == 0 || len(r.Indicators) > 5 {
		t.Errorf("indicators = %v", r.Indicators)
	}
}

func TestStressResponse_Patterns(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"I handled it and managed the deadline", ActiveCoping},
		{"I asked my family for help", SupportSeeking},
		{"I avoided it and gave up", AvoidanceProne},
		{"It was a regular week at the office", BalancedCoping},
	}
	for _, tt := range tests {
		r := StressResponse(structured(tt.text), gate.Context{})
		if r.Pattern != tt.want {
			t.Errorf("pattern(%q) = %s, want %s", tt.text, r.Pattern, tt.want)
		}
	}
}

func TestConsistency_VolatilityPenalty(t *testing.T) {
	rs := []record.Response{
		{RawText: "my daily routine", SentimentScore: 0.8, InputQuality: 1},
		{RawText: "my daily routine", SentimentScore: -0.8, InputQuality: 1},
	}
	r := Consistency(rs, gate.Context{})
	// 0.66 per answer, minus the 0.3 volatility ceiling.
	if r.RawScore != 0.36 {
		t.Errorf("raw = %v, want 0.36", r.RawScore)
	}
	if r.Volatility != 0.3 {
		t.Errorf("volatility = %v, want 0.3", r.Volatility)
	}
}

func TestDirection(t *testing.T) {
	if d := Direction([]float64{0.5}); d.Direction != InsufficientData {
		t.Errorf("single point = %+v", d)
	}
	up := Direction([]float64{0.1, 0.2, 0.3})
	if up.Direction != Upward || up.Slope != 0.1 || up.Confidence != 1 {
		t.Errorf("up = %+v", up)
	}
	if d := Direction([]float64{0.5, 0.51, 0.5}); d.Direction != Stable {
		t.Errorf("flat = %+v", d)
	}
	if d := Direction([]float64{0.9, 0.6, 0.3}); d.Direction != Downward {
		t.Errorf("down = %+v", d)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{1, 2, 3, 4}, 3)
	if !slices.Equal(got, []float64{1, 1.5, 2, 3}) {
		t.Errorf("moving average = %v", got)
	}
	short := MovingAverage([]float64{1, 2}, 3)
	if !slices.Equal(short, []float64{1, 2}) {
		t.Errorf("short series = %v", short)
	}
}

func TestChangePoints(t *testing.T) {
	got := ChangePoints([]float64{0, 0.5, 0.5, 0.5}, 0.3)
	if !slices.Equal(got, []int{1}) {
		t.Errorf("change points = %v", got)
	}
	if got := ChangePoints([]float64{0, 1}, 0.3); len(got) != 0 {
		t.Errorf("short series change points = %v", got)
	}
}

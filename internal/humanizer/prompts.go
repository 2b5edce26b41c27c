package humanizer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kalambet/psychtrend/internal/report"
)

const forbiddenRules = `FORBIDDEN TERMS (never use these):
- diagnosis, disorder, mental illness, depression, anxiety disorder
- bipolar, schizophrenia, therapy, medication, clinical, psychiatric
- treatment, symptoms, patient, mentally ill, pathological
- OCD, PTSD, ADHD (as diagnoses), neurotic, psychotic`

const baseSystem = `You are an assistant for a behavioral insight system.

STRICT RULES YOU MUST FOLLOW:
1. NEVER use clinical, medical, or psychological diagnostic language
2. NEVER make diagnoses or suggest mental health conditions
3. Use ONLY the data provided - do not invent information
4. Be supportive and constructive
5. Focus on behavioral patterns and growth opportunities

` + forbiddenRules

const normalizeSystem = `You are an input normalizer. You convert unclear or minimal user responses into clear, neutral statements.

RULES:
1. If the input is dismissive (e.g. "no", "idk", "kk", "meh"), classify it as low quality
2. Preserve the original meaning - NEVER add new information
3. Keep the normalized output to 1-2 sentences
4. Do not interpret, analyze, or add emotional content
5. Return valid JSON only`

const questionSystem = `You are a friendly conversation assistant helping someone reflect on their life experiences.

RULES:
1. Generate warm, open-ended follow-up questions
2. NEVER ask about trauma, mental health, therapy, or medication
3. NEVER use clinical language
4. Keep questions conversational and focused on growth and learning`

const insightSystem = `You are a behavioral insight writer. You explain data trends in clear, accurate language.

STRICT RULES:
1. Use ONLY the numerical data provided and include the actual score
2. NEVER make clinical diagnoses
3. Frame everything as behavioral patterns, not conditions
4. Use phrases like "your responses suggest" or "the data indicates"
5. Keep explanations to 2-3 sentences

ANTI-BIAS RULES:
6. Do NOT reframe low scores positively by default
7. If the score is below 0.45, reflect this accurately with cautious wording
8. Do NOT interpret stress, pressure, or survival as achievements
9. Do NOT assume resilience without explicit evidence

` + forbiddenRules

const reportSystem = `You are a professional behavioral insight report writer.

CRITICAL RULES:
1. Use ONLY the analysis data provided
2. NEVER use clinical, diagnostic, or medical language
3. Frame insights as behavioral patterns and tendencies
4. Include actual numbers and scores from the data
5. Always include the disclaimer about the non-clinical nature of the report

ANTI-OPTIMISM RULES:
6. If scores are below 0.45, reflect this accurately
7. Do NOT interpret survival, pressure, or struggle as achievement
8. Do NOT assume resilience, discipline, or motivation without explicit evidence
9. If the sentiment context shows negative dominance, use cautious wording

Tone by score:
- 0.7 and above: supportive and encouraging
- 0.45 to 0.69: balanced, acknowledge strengths and areas for attention
- below 0.45: cautious and empathetic, acknowledge challenges without minimizing

` + forbiddenRules

func normalizePrompt(input, category string) string {
	return fmt.Sprintf(`Convert this user response to a clear statement.

User said: %q
The question was about: %s

Set "normalized" to a clear version of what they said, or to an empty string if the input is too vague to normalize.
Set "quality" to high, medium, or low.`, input, category)
}

func questionPrompt(answer, category, previous string) string {
	return fmt.Sprintf(`Based on this conversation, suggest a follow-up question.

User's response: %q
Current topic: %s
Previous question: %q

Generate ONE follow-up question that encourages deeper reflection, is warm and supportive, and stays on the topic of %s.
Return ONLY the question.`, answer, category, previous, category)
}

func insightPrompt(name string, t report.TrendSummary) string {
	dir := t.Direction
	if dir == "" {
		dir = "stable"
	}
	return fmt.Sprintf(`Explain this behavioral trend in friendly, clear language.

TREND DATA:
- Name: %s
- Score: %.2f (scale 0.0 to 1.0, higher is generally more positive)
- Direction: %s (upward/stable/downward)
- Description: %s

Write 2-3 sentences explaining what this means. Include the actual score.
Do not add information that is not present above.`, name, t.Score, dir, t.Description)
}

func summaryPrompt(a report.Analysis, r report.Report) string {
	archetype, description := "Balanced", "Shows balanced behavioral patterns"
	if p := r.BehavioralProfile.Primary; p != nil {
		archetype, description = report.Title(p.Name), p.Description
	}
	trend := func(key string) string {
		t := r.TrendAnalysis[key]
		dir := t.Direction
		if dir == "" {
			dir = "stable"
		}
		return fmt.Sprintf("%.2f (%s)", t.Score, dir)
	}
	return fmt.Sprintf(`Generate an executive summary for this behavioral insight report.

ANALYSIS DATA:
- User name: %s
- Responses analyzed: %d
- Overall sentiment: %.2f (scale -1 to +1)
- Primary archetype: %s
- Archetype description: %s
- Key trends:
  * Motivation: %s
  * Consistency: %s
  * Growth orientation: %s

Write a 3-4 sentence summary that mentions the number of responses, the primary archetype, the overall sentiment tendency, and one key trend observation.
End with: "Note: This is not a medical or psychological diagnosis."`,
		r.UserName, r.ResponseCount, a.Aggregate.OverallSentiment, archetype, description,
		trend(report.KeyMotivation), trend(report.KeyConsistency), trend(report.KeyGrowth))
}

func fullReportPrompt(a report.Analysis, r report.Report) string {
	trendsJSON, _ := json.MarshalIndent(r.TrendAnalysis, "", "  ")
	predictionsJSON, _ := json.MarshalIndent(r.Predictions, "", "  ")

	archetype, description, secondary := "Balanced", "Balanced profile", "None"
	if p := r.BehavioralProfile.Primary; p != nil {
		archetype, description = report.Title(p.Name), p.Description
	}
	if s := r.BehavioralProfile.Secondary; len(s) > 0 {
		names := make([]string, 0, 2)
		for _, aff := range s[:min(len(s), 2)] {
			names = append(names, report.Title(aff.Name))
		}
		secondary = strings.Join(names, ", ")
	}
	attention := "None identified"
	if len(r.AttentionAreas) > 0 {
		attention = bullets(r.AttentionAreas)
	}

	return fmt.Sprintf(`Generate a behavioral insight report.

USER: %s
RESPONSES ANALYZED: %d

=== TREND ANALYSIS ===
%s

=== BEHAVIORAL PROFILE ===
Primary archetype: %s
Description: %s
Secondary patterns: %s

=== PREDICTIONS ===
%s

=== IDENTIFIED STRENGTHS ===
%s

=== GROWTH OPPORTUNITIES ===
%s

=== BEHAVIORAL ATTENTION AREAS ===
%s

%s

Write a structured markdown report with these sections:

## Your Behavioral Profile
2-3 sentences about the archetype. If it is a neutral archetype (developing, exploring, emerging), describe it as a transitional phase.

## Key Trends
Each trend with its actual score. Use cautious language for scores below 0.45.

## Your Strengths
Only strengths with supporting evidence.

## Opportunities for Growth
Honest about challenges shown in the data.

## Behavioral Attention Areas
Discuss the attention areas above, if any.

## Summary
1-2 sentences matching the tone to the overall scores.

---
**Important**: This report provides behavioral insights for self-reflection only. It is not a medical, clinical, or psychological diagnosis. For professional guidance, please consult a qualified professional.`,
		r.UserName, r.ResponseCount, trendsJSON, archetype, description, secondary,
		predictionsJSON, bullets(r.Strengths), bullets(r.GrowthOpportunities), attention, a.ToneGuidance())
}

func strengthPrompt(strength, userName string) string {
	return fmt.Sprintf(`Rewrite this strength in an encouraging, personal way.

Original: %q
Context: part of a behavioral insight report for %s.

Write ONE warm sentence that does not add information beyond the original.
Return only the rewritten sentence.`, strength, userName)
}

func growthPrompt(area, userName string) string {
	return fmt.Sprintf(`Rewrite this growth opportunity in a supportive, actionable way.

Original: %q
Context: part of a behavioral insight report for %s.

Write ONE sentence that frames it as an opportunity, not a weakness, without clinical language.
Return only the rewritten sentence.`, area, userName)
}

func bullets(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- " + item)
	}
	return b.String()
}

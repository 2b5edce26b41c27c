package humanizer

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ForbiddenTerms is clinical and diagnostic vocabulary that must never reach
// the user.
var ForbiddenTerms = []string{
	"diagnosis", "diagnosed", "diagnose", "disorder", "mental illness", "depression",
	"anxiety disorder", "bipolar", "schizophrenia", "therapy", "medication", "clinical",
	"psychiatric", "treatment", "symptoms", "patient", "mentally ill", "pathological",
	"neurotic", "psychotic", "manic", "personality disorder", "ptsd", "ocd", "adhd",
	"autism spectrum", "narcissistic", "borderline",
}

// replacements covers every entry in ForbiddenTerms.
var replacements = map[string]string{
	"diagnosis":            "insight",
	"diagnosed":            "identified",
	"diagnose":             "identify",
	"disorder":             "pattern",
	"mental illness":       "behavioral tendency",
	"depression":           "low mood tendency",
	"anxiety disorder":     "stress response pattern",
	"bipolar":              "variable mood",
	"schizophrenia":        "difficult experience",
	"therapy":              "professional support",
	"medication":           "support strategies",
	"clinical":             "behavioral",
	"psychiatric":          "professional",
	"treatment":            "approach",
	"symptoms":             "indicators",
	"patient":              "individual",
	"mentally ill":         "facing challenges",
	"pathological":         "persistent",
	"neurotic":             "sensitive",
	"psychotic":            "intense",
	"manic":                "high-energy",
	"personality disorder": "personality pattern",
	"ptsd":                 "lasting stress response",
	"ocd":                  "strong attention to detail",
	"adhd":                 "energetic focus style",
	"autism spectrum":      "individual style",
	"narcissistic":         "self-focused",
	"borderline":           "intense",
}

// forbidden matches whole forbidden terms case-insensitively. Alternatives
// are ordered longest first so "anxiety disorder" wins over "disorder".
var forbidden = func() *regexp.Regexp {
	terms := slices.Clone(ForbiddenTerms)
	slices.SortStableFunc(terms, func(a, b string) int { return cmp.Compare(len(b), len(a)) })
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}()

// Validate returns the forbidden terms found in text, lower-cased and
// de-duplicated in order of appearance. An empty result means text is safe.
func Validate(text string) []string {
	var found []string
	for _, m := range forbidden.FindAllString(text, -1) {
		term := strings.ToLower(m)
		if !slices.Contains(found, term) {
			found = append(found, term)
		}
	}
	return found
}

// Sanitize replaces every forbidden term with its neutral counterpart,
// keeping a leading capital.
func Sanitize(text string) string {
	return forbidden.ReplaceAllStringFunc(text, func(m string) string {
		repl := replacements[strings.ToLower(m)]
		if r, _ := utf8.DecodeRuneInString(m); unicode.IsUpper(r) {
			first, size := utf8.DecodeRuneInString(repl)
			repl = string(unicode.ToUpper(first)) + repl[size:]
		}
		return repl
	})
}

// screen sanitizes text only when it needs it.
func screen(text string) (string, []string) {
	found := Validate(text)
	if len(found) == 0 {
		return text, nil
	}
	return Sanitize(text), found
}

package record

import (
	"regexp"
	"strings"
)

// Keyword themes in the order they are reported.
var keywordPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"achievement", regexp.MustCompile(`\b(achieved|accomplished|succeeded|won|completed|finished|earned)\b`)},
	{"growth", regexp.MustCompile(`\b(grew|learned|improved|developed|progressed|advanced|evolved)\b`)},
	{"challenge", regexp.MustCompile(`\b(struggled|overcame|faced|dealt with|handled|managed|survived)\b`)},
	{"passion", regexp.MustCompile(`\b(love|passionate|enjoy|excited|interested|fascinated)\b`)},
	{"resilience", regexp.MustCompile(`\b(resilient|persistent|determined|persevered|bounced back)\b`)},
	{"leadership", regexp.MustCompile(`\b(led|managed|directed|organized|coordinated|mentored)\b`)},
	{"creativity", regexp.MustCompile(`\b(created|designed|innovated|invented|built|developed)\b`)},
	{"teamwork", regexp.MustCompile(`\b(team|collaborated|together|group|helped|supported)\b`)},
	{"self-improvement", regexp.MustCompile(`\b(self-taught|practice|routine|habit|discipline)\b`)},
	{"adaptation", regexp.MustCompile(`\b(adapted|adjusted|changed|flexible|transitioned)\b`)},
}

// ExtractKeywords returns the themes whose trigger words appear in text.
func ExtractKeywords(text string) []string {
	lower := strings.ToLower(text)
	out := []string{}
	for _, p := range keywordPatterns {
		if p.re.MatchString(lower) {
			out = append(out, p.name)
		}
	}
	return out
}

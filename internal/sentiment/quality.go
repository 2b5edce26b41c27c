package sentiment

import (
	"strings"
	"unicode"
)

// MeaningfulThreshold is the lowest quality still treated as a real answer.
const MeaningfulThreshold = 0.3

var dismissiveWords = toSet(
	"no", "ok", "okay", "k", "kk", "yes", "yeah", "yep", "yup", "nope", "nah",
	"idk", "dunno", "meh", "sure", "fine", "good", "maybe", "whatever", "nothing",
	"none", "hmm", "hm", "lol", "n/a", "na", "pass", "skip", "same", "nm",
)

var stopWords = toSet(
	"i", "a", "an", "the", "and", "or", "but", "so", "to", "of", "in", "on", "at",
	"it", "is", "was", "be", "am", "are", "me", "my", "you", "just", "not", "do",
	"don't", "really", "very", "that", "this", "what", "know", "think", "guess",
	"well", "um", "uh", "like", "oh",
)

// Short tokens that are real words rather than keyboard noise.
var shortAllowed = toSet("i", "a", "ok", "no")

// Quality estimates how substantive an answer is, in [0,1]. Rules are
// evaluated in order and the first match wins. Only the short real words in
// shortAllowed skip the two noise rules, so "no" and "ok" rate as dismissive
// (0.2) while "yes" or "hm" still rate as noise.
func Quality(text string) float64 {
	s := strings.ToLower(strings.TrimSpace(text))
	words := strings.Fields(s)
	bare := strings.Trim(s, ".,!?;: ")

	switch {
	case len([]rune(s)) <= 2 && !shortAllowed[bare]:
		return 0.1
	case isRepeatedChar(s):
		return 0.1
	case isShortAlnum(s) && !shortAllowed[s]:
		return 0.15
	case dismissiveWords[bare]:
		return 0.2
	case len(words) <= 3 && allIn(words, dismissiveWords):
		return 0.2
	case len(s) < 10 && len(words) < 3:
		return 0.3
	case len(words) < 5 && allIn(words, dismissiveWords, stopWords):
		return 0.25
	case len(words) < 5:
		return 0.5
	case len(words) < 10:
		return 0.7
	default:
		return 1.0
	}
}

// IsMeaningful reports whether a quality score reflects a real answer.
func IsMeaningful(q float64) bool {
	return q >= MeaningfulThreshold
}

func isRepeatedChar(s string) bool {
	r := []rune(s)
	if len(r) == 0 {
		return true
	}
	for _, c := range r[1:] {
		if c != r[0] {
			return false
		}
	}
	return true
}

func isShortAlnum(s string) bool {
	r := []rune(s)
	if len(r) < 1 || len(r) > 4 {
		return false
	}
	for _, c := range r {
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) {
			return false
		}
	}
	return true
}

func allIn(words []string, sets ...map[string]bool) bool {
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:")
		found := false
		for _, set := range sets {
			if set[w] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

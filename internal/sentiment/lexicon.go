package sentiment

// Weighted lexicons for the canonical scorer. Weights express intensity.
var positiveLexicon = map[string]float64{
	"amazing": 0.9, "wonderful": 0.9, "excellent": 0.9, "fantastic": 0.9,
	"incredible": 0.9, "outstanding": 0.9, "brilliant": 0.9, "exceptional": 0.9,
	"thrilled": 0.95, "ecstatic": 0.95, "overjoyed": 0.95,
	"happy": 0.7, "glad": 0.7, "pleased": 0.7, "satisfied": 0.7,
	"proud": 0.75, "confident": 0.7, "motivated": 0.7, "inspired": 0.75,
	"successful": 0.8, "accomplished": 0.8, "achieved": 0.8, "love": 0.8, "passionate": 0.8,
	"enjoy": 0.7, "excited": 0.75, "grateful": 0.75, "thankful": 0.75,
	"blessed": 0.7, "resilient": 0.7, "determined": 0.7,
	"focused": 0.65, "creative": 0.65, "innovative": 0.65, "productive": 0.65,
	"good": 0.5, "nice": 0.5, "fine": 0.4, "okay": 0.35, "ok": 0.35,
	"better": 0.5, "improved": 0.55, "learned": 0.5, "grew": 0.55,
	"interesting": 0.45, "helpful": 0.5, "useful": 0.45,
	"comfortable": 0.5, "calm": 0.5, "relaxed": 0.55,
}

var negativeLexicon = map[string]float64{
	"terrible": -0.9, "horrible": -0.9, "awful": -0.9, "devastating": -0.95,
	"miserable": -0.9, "hopeless": -0.9, "desperate": -0.85, "traumatic": -0.95,
	"unbearable": -0.9, "sad": -0.7, "unhappy": -0.7, "depressed": -0.8, "disappointed": -0.7,
	"frustrated": -0.7, "angry": -0.75, "upset": -0.65,
	"stressed": -0.7, "anxious": -0.7, "worried": -0.65, "nervous": -0.6,
	"failed": -0.75, "failure": -0.75, "rejected": -0.7,
	"overwhelmed": -0.7, "exhausted": -0.65, "burned": -0.7, "struggled": -0.6,
	"difficult": -0.55, "challenging": -0.5,
	"lonely": -0.7, "isolated": -0.7, "hurt": -0.7,
	"bad": -0.5, "hard": -0.45, "tough": -0.45, "problem": -0.4, "issue": -0.35,
	"concern": -0.35, "doubt": -0.45,
	"confused": -0.45, "uncertain": -0.45, "stuck": -0.5, "tired": -0.4, "bored": -0.35,
}

var negations = map[string]bool{
	"not": true, "n't": true, "never": true, "no": true, "neither": true,
	"hardly": true, "barely": true, "without": true,
}

var intensifiers = map[string]float64{
	"very": 1.3, "really": 1.3, "extremely": 1.5, "incredibly": 1.5,
	"absolutely": 1.5, "totally": 1.3, "completely": 1.4,
}

// Two-word diminishers are keyed by "first second" and matched on the
// adjacent token pair.
var diminishers = map[string]float64{
	"somewhat": 0.6, "slightly": 0.5, "a bit": 0.6, "kind of": 0.6,
	"sort of": 0.6, "barely": 0.4, "hardly": 0.4,
}

// Word lists for the fast scorer. Membership only, no weights.
var fastPositive = toSet(
	"happy", "great", "excellent", "amazing", "wonderful", "fantastic", "love",
	"enjoy", "success", "successful", "achieved", "proud", "excited", "passionate",
	"motivated", "inspired", "accomplished", "grateful", "thankful", "blessed",
	"confident", "strong", "resilient", "determined", "focused", "creative",
	"innovative", "learned", "grew", "improved", "overcame", "won", "best",
	"better", "positive", "optimistic", "hopeful", "energetic", "productive",
)

var fastNegative = toSet(
	"sad", "difficult", "hard", "challenging", "struggled", "failed", "failure",
	"stressed", "anxious", "worried", "frustrated", "disappointed", "unhappy",
	"confused", "lost", "stuck", "overwhelmed", "tired", "exhausted", "burned",
	"rejected", "afraid", "scared", "nervous", "doubt", "uncertain", "weak",
	"lonely", "isolated", "hurt", "pain", "problem", "issue", "mistake", "regret",
)

var fastNegations = toSet("not", "n't", "never", "no", "neither", "nobody", "nothing")

// Ordered so that longer modifiers are tried before their substrings.
var fastModifiers = []struct {
	word   string
	factor float64
}{
	{"incredibly", 2.0}, {"extremely", 2.0}, {"absolutely", 2.0}, {"completely", 2.0},
	{"somewhat", 0.5}, {"slightly", 0.5}, {"totally", 1.5}, {"really", 1.5},
	{"kind of", 0.5}, {"a bit", 0.5}, {"very", 1.5},
}

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

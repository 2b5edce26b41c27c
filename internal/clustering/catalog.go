package clustering

// Archetype is a catalog entry. RequiresEvidence entries need at least two
// keyword hits to be scored at all. Neutral entries escape the negative
// sentiment penalty and can receive the preferred boost.
type Archetype struct {
	Name             string   `json:"name"`
	Traits           []string `json:"traits"`
	Keywords         []string `json:"keywords"`
	Description      string   `json:"description"`
	RequiresEvidence bool     `json:"requires_evidence,omitempty"`
	IsNeutral        bool     `json:"is_neutral,omitempty"`
}

var catalog = []Archetype{
	{
		Name:             "achiever",
		Traits:           []string{"goal-oriented", "persistent", "growth-minded", "competitive"},
		Keywords:         []string{"achieve", "goal", "success", "accomplish", "win", "best", "first"},
		Description:      "Driven by goals and measurable achievements",
		RequiresEvidence: true,
	},
	{
		Name:        "explorer",
		Traits:      []string{"curious", "adventurous", "open-minded", "creative"},
		Keywords:    []string{"new", "learn", "discover", "try", "experience", "different", "creative"},
		Description: "Motivated by new experiences and learning",
	},
	{
		Name:        "connector",
		Traits:      []string{"collaborative", "empathetic", "supportive", "relationship-focused"},
		Keywords:    []string{"team", "together", "help", "support", "people", "friend", "family"},
		Description: "Values relationships and team collaboration",
	},
	{
		Name:        "stabilizer",
		Traits:      []string{"consistent", "reliable", "methodical", "structured"},
		Keywords:    []string{"routine", "consistent", "steady", "regular", "maintain", "organize"},
		Description: "Prefers stability and established routines",
	},
	{
		Name:        "adapter",
		Traits:      []string{"flexible", "resilient", "pragmatic", "resourceful"},
		Keywords:    []string{"adapt", "change", "flexible", "adjust", "overcome", "handle"},
		Description: "Thrives in changing environments",
	},
	{
		Name:             "innovator",
		Traits:           []string{"creative", "visionary", "independent", "problem-solver"},
		Keywords:         []string{"create", "build", "design", "innovate", "idea", "solution", "improve"},
		Description:      "Focuses on creating and improving",
		RequiresEvidence: true,
	},
	{
		Name:        "developing",
		Traits:      []string{"growing", "learning", "building", "progressing"},
		Keywords:    []string{"trying", "working on", "getting better", "learning"},
		Description: "Currently in a developmental phase, building skills and direction",
		IsNeutral:   true,
	},
	{
		Name:        "exploring",
		Traits:      []string{"searching", "questioning", "uncertain", "open"},
		Keywords:    []string{"not sure", "figuring out", "exploring", "considering"},
		Description: "Currently exploring options and directions",
		IsNeutral:   true,
	},
	{
		Name:        "emerging",
		Traits:      []string{"transitioning", "evolving", "adapting", "changing"},
		Keywords:    []string{"changing", "transition", "shift", "moving"},
		Description: "In transition, with patterns still forming",
		IsNeutral:   true,
	},
	{
		Name:        "uncertain",
		Traits:      []string{"questioning", "reflective", "undecided", "contemplative"},
		Keywords:    []string{"unsure", "confused", "unclear", "questioning"},
		Description: "Currently facing uncertainty about direction or goals",
		IsNeutral:   true,
	},
}

// DefaultCatalog returns a copy of the built-in archetype catalog.
func DefaultCatalog() []Archetype {
	out := make([]Archetype, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a built-in archetype by name.
func Lookup(name string) (Archetype, bool) {
	for _, a := range catalog {
		if a.Name == name {
			return a, true
		}
	}
	return Archetype{}, false
}

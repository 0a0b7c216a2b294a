package insight

// Insight is the structured extraction from a single message. It lives for
// one pipeline run: merged into the profile once, then discarded.
type Insight struct {
	Topics             []string          `json:"topics"`
	People             []PersonMention   `json:"people"`
	Interests          []InterestMention `json:"interests"`
	PersonalityTraits  []string          `json:"personality_traits"`
	CommunicationStyle map[string]any    `json:"communication_style"`
	Stories            []StoryMention    `json:"stories"`
}

// PersonMention is a person referenced in the message.
type PersonMention struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Context      string `json:"context"`
}

// InterestMention is an interest the speaker demonstrated.
type InterestMention struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// StoryMention is a narrative or experience shared in the message.
type StoryMention struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	People      []string `json:"people"`
	Location    string   `json:"location"`
	Tags        []string `json:"tags"`
}

// Zero returns an Insight with all collections empty. It is the safe
// fallback when extraction fails: the pipeline learns nothing new but
// keeps running.
func Zero() Insight {
	return Insight{
		Topics:             []string{},
		People:             []PersonMention{},
		Interests:          []InterestMention{},
		PersonalityTraits:  []string{},
		CommunicationStyle: map[string]any{},
		Stories:            []StoryMention{},
	}
}

// IsZero reports whether the insight carries no extracted facts at all.
func (i Insight) IsZero() bool {
	return len(i.Topics) == 0 &&
		len(i.People) == 0 &&
		len(i.Interests) == 0 &&
		len(i.PersonalityTraits) == 0 &&
		len(i.CommunicationStyle) == 0 &&
		len(i.Stories) == 0
}

// Package relevance selects the subset of a user's stored facts that are
// pertinent to the current message. Matching is deterministic substring
// containment over normalized strings: facts are short noun phrases and the
// extractor's phrasing varies, so containment favors recall over precision
// at this data scale.
package relevance

import (
	"strings"

	"github.com/confidant-ai/confidant/internal/insight"
	"github.com/confidant-ai/confidant/internal/profile"
)

// Normalize lowercases and trims a string for comparison.
func Normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

// Matches reports whether two strings match after normalization: one must
// be a substring of the other. The test is symmetric and reflexive for
// non-empty strings; empty strings never match anything.
func Matches(a, b string) bool {
	a, b = Normalize(a), Normalize(b)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// Selection is the relevance-filtered subset of a candidate bundle.
// Ordering follows the candidates' storage order; each entry appears at
// most once regardless of how many rules matched it.
type Selection struct {
	Interests []profile.Interest
	People    []profile.Person
	Stories   []profile.Story
}

// Select filters the candidate bundle down to entries relevant to the
// insight. Pure function: no I/O, same inputs always give the same output.
func Select(ins insight.Insight, candidates profile.Bundle) Selection {
	topics := topicSet(ins)
	mentioned := mentionedPeople(ins)

	sel := Selection{
		Interests: []profile.Interest{},
		People:    []profile.Person{},
		Stories:   []profile.Story{},
	}

	for _, interest := range candidates.Interests {
		if anyMatch(topics, interest.Name) || anyMatch(topics, interest.Summary) {
			sel.Interests = append(sel.Interests, interest)
		}
	}

	relevantNames := map[string]bool{}
	for _, person := range candidates.People {
		if anyMatch(mentioned, person.Name) {
			sel.People = append(sel.People, person)
			relevantNames[person.Name] = true
		}
	}

	for _, story := range candidates.Stories {
		if storyRelevant(story, topics, relevantNames) {
			sel.Stories = append(sel.Stories, story)
		}
	}

	return sel
}

// storyRelevant applies the three story rules: a linked relevant person
// whose name appears in the description, a topic matching title+description,
// or a topic matching any tag.
func storyRelevant(story profile.Story, topics []string, relevantNames map[string]bool) bool {
	for _, name := range story.People {
		if relevantNames[name] && Matches(name, story.Description) {
			return true
		}
	}

	text := story.Title + " " + story.Description
	if anyMatch(topics, text) {
		return true
	}

	for _, tag := range story.Tags {
		if anyMatch(topics, tag) {
			return true
		}
	}
	return false
}

// topicSet gathers the insight's declared topics plus the names of the
// interests it demonstrated, normalized and deduplicated.
func topicSet(ins insight.Insight) []string {
	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		n := Normalize(s)
		if n != "" && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, t := range ins.Topics {
		add(t)
	}
	for _, in := range ins.Interests {
		add(in.Name)
	}
	return out
}

func mentionedPeople(ins insight.Insight) []string {
	var out []string
	seen := map[string]bool{}
	for _, p := range ins.People {
		n := Normalize(p.Name)
		if n != "" && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func anyMatch(needles []string, target string) bool {
	for _, n := range needles {
		if Matches(n, target) {
			return true
		}
	}
	return false
}

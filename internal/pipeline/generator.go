package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/confidant-ai/confidant/internal/llm"
)

// ApologyResponse is the fallback reply when generation fails outright.
const ApologyResponse = "I apologize, but I encountered an error while processing your message. Could you please try again?"

// historyLimit caps how many prior turns are sent to the model.
const historyLimit = 5

// Turn is one prior message in the conversation history.
type Turn struct {
	Role    llm.Role `json:"role"`
	Content string   `json:"content"`
}

// Generator drafts a reply to the user's message using the assembled
// profile context.
type Generator struct {
	provider llm.Provider
	model    string
}

// NewGenerator creates a generator using the given provider and model.
func NewGenerator(provider llm.Provider, model string) *Generator {
	return &Generator{provider: provider, model: model}
}

// Draft produces a response to the message. On provider failure it
// returns ApologyResponse together with a Degradation; the run goes on.
// A non-empty systemPrompt overrides the context-aware prompt entirely.
func (g *Generator) Draft(ctx context.Context, message string, history []Turn, systemPrompt string, pc ProfileContext) (string, *Degradation) {
	if systemPrompt == "" {
		systemPrompt = buildSystemPrompt(pc)
	}

	messages := []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}
	start := 0
	if len(history) > historyLimit {
		start = len(history) - historyLimit
	}
	for _, turn := range history[start:] {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: 0.8,
	})
	if err != nil {
		return ApologyResponse, &Degradation{Phase: PhaseGenerating, Reason: err.Error()}
	}

	draft := strings.TrimSpace(resp.Content)
	if draft == "" {
		return ApologyResponse, &Degradation{Phase: PhaseGenerating, Reason: "provider returned an empty response"}
	}
	return draft, nil
}

// buildSystemPrompt folds the profile context into the assistant's
// instructions. Empty sections are omitted entirely.
func buildSystemPrompt(pc ProfileContext) string {
	parts := []string{
		"You are a friendly and helpful AI assistant with access to the following context about the user:",
	}

	if pc.Profile != nil {
		if len(pc.Profile.PersonalityTraits) > 0 {
			parts = append(parts, "Personality traits: "+strings.Join(pc.Profile.PersonalityTraits, ", "))
		}
		if style := styleText(pc.Profile.CommunicationStyle); style != "" {
			parts = append(parts, "Communication style: "+style)
		}
	}

	if len(pc.Interests) > 0 {
		names := make([]string, len(pc.Interests))
		for i, interest := range pc.Interests {
			names[i] = interest.Name
		}
		parts = append(parts, "Recent interests: "+strings.Join(names, ", "))
	}

	if len(pc.People) > 0 {
		people := make([]string, len(pc.People))
		for i, p := range pc.People {
			if p.Relationship != "" {
				people[i] = fmt.Sprintf("%s (%s)", p.Name, p.Relationship)
			} else {
				people[i] = p.Name
			}
		}
		parts = append(parts, "Known people: "+strings.Join(people, ", "))
	}

	if len(pc.Stories) > 0 {
		titles := make([]string, len(pc.Stories))
		for i, s := range pc.Stories {
			titles[i] = s.Title
		}
		parts = append(parts, "Recent stories: "+strings.Join(titles, ", "))
	}

	parts = append(parts,
		"Use this context to provide more personalized and relevant responses.",
		"Maintain a consistent tone matching their communication style.",
		"Reference relevant past interactions when appropriate.",
		"Be empathetic and understanding of their perspective.",
	)

	return strings.Join(parts, "\n")
}

// styleText renders a communication style map as stable, readable text.
// Keys are sorted so the same style always produces the same prompt.
func styleText(style map[string]any) string {
	if len(style) == 0 {
		return ""
	}

	keys := make([]string, 0, len(style))
	for k := range style {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, styleValue(style[k])))
	}
	return strings.Join(parts, "; ")
}

func styleValue(v any) string {
	switch val := v.(type) {
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(val, ", ")
	default:
		return fmt.Sprint(v)
	}
}

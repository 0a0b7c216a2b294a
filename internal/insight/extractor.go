package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/confidant-ai/confidant/internal/llm"
)

// Extraction is the outcome of one extraction attempt. Degraded reports
// whether the zero-value fallback was substituted for a real extraction,
// with Reason saying why.
type Extraction struct {
	Insight  Insight
	Degraded bool
	Reason   string
}

// Extractor turns free-text messages into structured insights via the LLM.
type Extractor struct {
	provider llm.Provider
	model    string
}

// NewExtractor creates an Extractor using the given provider and model.
func NewExtractor(provider llm.Provider, model string) *Extractor {
	return &Extractor{provider: provider, model: model}
}

const extractorSystemPrompt = `You are an expert at extracting structured insights from conversations, focusing on people, interests, and communication patterns.`

// Extract sends the message to the LLM and parses the structured insight.
// It never fails: any provider error or malformed output degrades to the
// zero-value insight so the pipeline continues with "no new facts learned".
func (e *Extractor) Extract(ctx context.Context, message string) Extraction {
	prompt := buildExtractionPrompt(message)

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model: e.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: extractorSystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		return Extraction{
			Insight:  Zero(),
			Degraded: true,
			Reason:   fmt.Sprintf("extraction call failed: %v", err),
		}
	}

	ins, err := parseInsight(resp.Content)
	if err != nil {
		return Extraction{
			Insight:  Zero(),
			Degraded: true,
			Reason:   fmt.Sprintf("extraction output unparseable: %v", err),
		}
	}

	return Extraction{Insight: ins}
}

func buildExtractionPrompt(message string) string {
	var b strings.Builder

	b.WriteString("Extract key insights from this message.\n\n")
	fmt.Fprintf(&b, "Message: %s\n\n", message)
	b.WriteString(`Please extract and structure the following elements:
1. Topics discussed (specific subjects, technologies, concepts)
2. People mentioned (names, relationship to the speaker, any context about them)
3. Interests demonstrated (what the speaker shows interest in)
4. Personality traits revealed (how the speaker expresses themselves)
5. Communication style shown (how they prefer to communicate)
6. Stories or experiences shared (any narratives or events)

Format the response as a JSON object with these exact keys:
{
    "topics": ["string"],
    "people": [{ "name": "string", "relationship": "string", "context": "string" }],
    "interests": [{ "name": "string", "summary": "string" }],
    "personality_traits": ["string"],
    "communication_style": { "key_aspects": ["string"] },
    "stories": [{
        "title": "string",
        "description": "string",
        "people": ["string"],
        "location": "string",
        "tags": ["string"]
    }]
}

Extract only what is explicitly present or strongly implied in the message. Do not invent or assume details.`)

	return b.String()
}

// parseInsight parses the LLM output leniently: models sometimes wrap the
// JSON in markdown fences or prose, so the outermost braces are located first.
func parseInsight(content string) (Insight, error) {
	jsonStr := content
	if idx := strings.Index(content, "{"); idx >= 0 {
		jsonStr = content[idx:]
	}
	if idx := strings.LastIndex(jsonStr, "}"); idx >= 0 {
		jsonStr = jsonStr[:idx+1]
	}

	var ins Insight
	if err := json.Unmarshal([]byte(jsonStr), &ins); err != nil {
		return Zero(), err
	}

	// Normalize nil collections so downstream code never branches on nil.
	if ins.Topics == nil {
		ins.Topics = []string{}
	}
	if ins.People == nil {
		ins.People = []PersonMention{}
	}
	if ins.Interests == nil {
		ins.Interests = []InterestMention{}
	}
	if ins.PersonalityTraits == nil {
		ins.PersonalityTraits = []string{}
	}
	if ins.CommunicationStyle == nil {
		ins.CommunicationStyle = map[string]any{}
	}
	if ins.Stories == nil {
		ins.Stories = []StoryMention{}
	}

	return ins, nil
}

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/confidant-ai/confidant/internal/llm"
)

const adjustorSystemPrompt = "You adjust AI responses to match user communication styles while preserving content and the AI's perspective."

// Adjustor restyles a drafted reply to match the user's communication
// preferences.
type Adjustor struct {
	provider llm.Provider
	model    string
}

// NewAdjustor creates an adjustor using the given provider and model.
func NewAdjustor(provider llm.Provider, model string) *Adjustor {
	return &Adjustor{provider: provider, model: model}
}

// Adjust rewrites the draft in the user's style. When no style is known
// the draft passes through untouched. On provider failure the unchanged
// draft is returned together with a Degradation; the run goes on.
func (a *Adjustor) Adjust(ctx context.Context, draft string, style map[string]any) (string, *Degradation) {
	if len(style) == 0 {
		return draft, nil
	}

	prompt := fmt.Sprintf(`Adjust this AI response to match the user's communication style while maintaining the AI's perspective.

AI Response to Adjust: %s

User's Communication Style: %s

Instructions:
1. Keep the AI's perspective (third-person)
2. Maintain all key information and intent
3. Adjust vocabulary and tone to match user's style
4. Keep engagement elements (questions, examples)
5. Make it feel natural and conversational

Adjust the response now.`, draft, styleText(style))

	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Model: a.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: adjustorSystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: 0.4,
	})
	if err != nil {
		return draft, &Degradation{Phase: PhaseAdjusting, Reason: err.Error()}
	}

	adjusted := strings.TrimSpace(resp.Content)
	if adjusted == "" {
		return draft, &Degradation{Phase: PhaseAdjusting, Reason: "provider returned an empty response"}
	}
	return adjusted, nil
}

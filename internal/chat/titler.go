package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/confidant-ai/confidant/internal/llm"
)

// DefaultTitle is used when title generation fails or produces nothing usable.
const DefaultTitle = "New Chat"

const titlerSystemPrompt = `You generate short titles for chat conversations. ` +
	`Given the first message of a conversation, respond with a concise title of at most five words. ` +
	`Respond with the title only, no quotes and no punctuation at the end.`

// Titler generates chat titles from the opening message.
type Titler struct {
	provider llm.Provider
	model    string
}

// NewTitler creates a titler using the given provider and model.
func NewTitler(provider llm.Provider, model string) *Titler {
	return &Titler{provider: provider, model: model}
}

// Title generates a title for a chat from its first message. It never
// returns an error: any failure falls back to DefaultTitle.
func (t *Titler) Title(ctx context.Context, firstMessage string) string {
	if strings.TrimSpace(firstMessage) == "" {
		return DefaultTitle
	}

	resp, err := t.provider.Complete(ctx, llm.CompletionRequest{
		Model: t.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: titlerSystemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf("First message: %s", firstMessage)},
		},
		MaxTokens:   32,
		Temperature: 0.3,
	})
	if err != nil {
		return DefaultTitle
	}

	title := strings.TrimSpace(strings.Trim(strings.TrimSpace(resp.Content), `"'`))
	if title == "" {
		return DefaultTitle
	}
	return title
}

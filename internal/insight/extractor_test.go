package insight

import (
	"context"
	"errors"
	"testing"

	"github.com/confidant-ai/confidant/internal/llm"
)

const sampleExtraction = `{
  "topics": ["machine learning", "AI ethics"],
  "people": [{"name": "Sarah", "relationship": "friend", "context": "passionate about AI ethics"}],
  "interests": [{"name": "machine learning", "summary": "ML and AI topics"}],
  "personality_traits": ["curious"],
  "communication_style": {"key_aspects": ["enthusiastic"]},
  "stories": [{"title": "ML chat", "description": "Talked with Sarah about ML", "people": ["Sarah"], "location": "", "tags": ["ml"]}]
}`

func TestExtractParsesStructuredOutput(t *testing.T) {
	mock := llm.NewMockProvider("test")
	mock.Response.Content = sampleExtraction

	ex := NewExtractor(mock, "test-model")
	result := ex.Extract(context.Background(), "I had a conversation with Sarah about machine learning.")

	if result.Degraded {
		t.Fatalf("unexpected degradation: %s", result.Reason)
	}
	ins := result.Insight
	if len(ins.Topics) != 2 || ins.Topics[0] != "machine learning" {
		t.Errorf("unexpected topics: %v", ins.Topics)
	}
	if len(ins.People) != 1 || ins.People[0].Name != "Sarah" {
		t.Errorf("unexpected people: %v", ins.People)
	}
	if len(ins.Stories) != 1 || ins.Stories[0].People[0] != "Sarah" {
		t.Errorf("unexpected stories: %v", ins.Stories)
	}

	// The extractor must request structured output at low temperature.
	if len(mock.Calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(mock.Calls))
	}
	if !mock.Calls[0].JSONMode {
		t.Error("expected JSONMode request")
	}
}

func TestExtractStripsMarkdownFences(t *testing.T) {
	mock := llm.NewMockProvider("test")
	mock.Response.Content = "Here is the extraction:\n```json\n" + sampleExtraction + "\n```\n"

	ex := NewExtractor(mock, "test-model")
	result := ex.Extract(context.Background(), "msg")

	if result.Degraded {
		t.Fatalf("unexpected degradation: %s", result.Reason)
	}
	if len(result.Insight.Interests) != 1 {
		t.Errorf("unexpected interests: %v", result.Insight.Interests)
	}
}

func TestExtractDegradesOnMalformedOutput(t *testing.T) {
	mock := llm.NewMockProvider("test")
	mock.Response.Content = "I could not produce JSON, sorry."

	ex := NewExtractor(mock, "test-model")
	result := ex.Extract(context.Background(), "msg")

	if !result.Degraded {
		t.Fatal("expected degraded extraction")
	}
	if !result.Insight.IsZero() {
		t.Errorf("expected zero insight, got %+v", result.Insight)
	}
}

func TestExtractDegradesOnProviderError(t *testing.T) {
	mock := llm.NewMockProvider("test")
	mock.Err = errors.New("rate limited")

	ex := NewExtractor(mock, "test-model")
	result := ex.Extract(context.Background(), "msg")

	if !result.Degraded {
		t.Fatal("expected degraded extraction")
	}
	if !result.Insight.IsZero() {
		t.Errorf("expected zero insight, got %+v", result.Insight)
	}
}

func TestParseInsightNormalizesNilCollections(t *testing.T) {
	ins, err := parseInsight(`{"topics": null}`)
	if err != nil {
		t.Fatalf("parseInsight: %v", err)
	}
	if ins.Topics == nil || ins.People == nil || ins.Interests == nil ||
		ins.PersonalityTraits == nil || ins.CommunicationStyle == nil || ins.Stories == nil {
		t.Error("expected all collections non-nil")
	}
	if !ins.IsZero() {
		t.Error("expected zero insight")
	}
}

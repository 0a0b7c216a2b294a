package mcp

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/confidant-ai/confidant/internal/chat"
	"github.com/confidant-ai/confidant/internal/db"
	"github.com/confidant-ai/confidant/internal/llm"
	"github.com/confidant-ai/confidant/internal/pipeline"
	"github.com/confidant-ai/confidant/internal/profile"
)

// scriptedProvider returns a fixed response per call index.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	p.calls++
	if i < len(p.responses) {
		return &llm.CompletionResponse{Content: p.responses[i]}, nil
	}
	return &llm.CompletionResponse{Content: "ok"}, nil
}

const extractionJSON = `{
	"topics": ["cooking"],
	"people": [],
	"interests": [{"name": "cooking", "summary": "Learning to cook"}],
	"personality_traits": [],
	"communication_style": {},
	"stories": []
}`

func newTestServer(t *testing.T, provider llm.Provider) *Server {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	profiles := profile.NewStore(database)
	runner := pipeline.NewRunner(provider, "test-model", profiles)
	return NewServer(runner, profiles, chat.NewStore(database))
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"process_message", processMessageTool, "process_message"},
		{"get_profile", getProfileTool, "get_profile"},
		{"list_chats", listChatsTool, "list_chats"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
}

func TestHandleProcessMessage(t *testing.T) {
	provider := &scriptedProvider{responses: []string{extractionJSON, "a personalized reply"}}
	srv := newTestServer(t, provider)
	ctx := context.Background()

	t.Run("basic message", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"user_id": "user-1",
			"content": "I tried a new pasta recipe",
		}

		result, err := srv.handleProcessMessage(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}

		text := resultText(t, result)
		if !strings.Contains(text, "a personalized reply") {
			t.Errorf("result missing reply: %s", text)
		}
		if !strings.Contains(text, "cooking") {
			t.Errorf("result missing insight: %s", text)
		}
	})

	t.Run("missing user_id", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"content": "hello"}

		result, err := srv.handleProcessMessage(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected tool error for missing user_id")
		}
	})

	t.Run("unknown chat", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"user_id": "user-1",
			"content": "hello",
			"chat_id": "nope",
		}

		result, err := srv.handleProcessMessage(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected tool error for unknown chat")
		}
	})
}

func TestHandleGetProfile(t *testing.T) {
	provider := &scriptedProvider{responses: []string{extractionJSON, "reply"}}
	srv := newTestServer(t, provider)
	ctx := context.Background()

	t.Run("empty profile", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"user_id": "nobody"}

		result, err := srv.handleGetProfile(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		if !strings.Contains(resultText(t, result), "No profile stored") {
			t.Errorf("expected empty-profile message")
		}
	})

	t.Run("after processing", func(t *testing.T) {
		proc := mcp.CallToolRequest{}
		proc.Params.Arguments = map[string]any{
			"user_id": "user-1",
			"content": "I love cooking",
		}
		if _, err := srv.handleProcessMessage(ctx, proc); err != nil {
			t.Fatalf("process: %v", err)
		}

		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"user_id": "user-1"}

		result, err := srv.handleGetProfile(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(resultText(t, result), "cooking") {
			t.Errorf("profile missing interest: %s", resultText(t, result))
		}
	})
}

func TestHandleListChats(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})
	ctx := context.Background()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"user_id": "user-1"}

	result, err := srv.handleListChats(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(resultText(t, result), "No chats found") {
		t.Errorf("expected no-chats message, got %s", resultText(t, result))
	}

	if _, err := srv.chats.CreateChat(ctx, "user-1", "Dinner ideas"); err != nil {
		t.Fatalf("CreateChat: %v", err)
	}

	result, err = srv.handleListChats(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(resultText(t, result), "Dinner ideas") {
		t.Errorf("expected chat title in result, got %s", resultText(t, result))
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty result content")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type: %T", result.Content[0])
	}
	return tc.Text
}

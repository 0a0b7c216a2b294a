package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/confidant-ai/confidant/internal/llm"
	"github.com/confidant-ai/confidant/internal/pipeline"
)

// handleProcessMessage runs the full pipeline for one message.
func (s *Server) handleProcessMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user_id"), nil
	}
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: content"), nil
	}

	if err := s.profiles.EnsureProfile(ctx, userID, ""); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ensuring profile: %v", err)), nil
	}

	var history []pipeline.Turn
	chatID := request.GetString("chat_id", "")
	if chatID != "" {
		c, err := s.chats.GetChat(ctx, chatID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading chat: %v", err)), nil
		}
		if c == nil {
			return mcp.NewToolResultError(fmt.Sprintf("unknown chat_id %q", chatID)), nil
		}
		stored, err := s.chats.GetMessages(ctx, chatID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading history: %v", err)), nil
		}
		for _, m := range stored {
			history = append(history, pipeline.Turn{Role: llm.Role(m.Role), Content: m.Content})
		}
	}

	result, err := s.runner.RunToCompletion(ctx, pipeline.Request{
		UserID:  userID,
		ChatID:  chatID,
		Content: content,
		History: history,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("pipeline failed: %v", err)), nil
	}

	if chatID != "" {
		if _, err := s.chats.AddMessage(ctx, chatID, "user", content); err == nil {
			s.chats.AddMessage(ctx, chatID, "assistant", result.Response)
		}
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// handleGetProfile returns everything stored about a user.
func (s *Server) handleGetProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user_id"), nil
	}

	bundle, err := s.profiles.ReadBundle(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reading profile: %v", err)), nil
	}
	if bundle.Empty() {
		return mcp.NewToolResultText(fmt.Sprintf("No profile stored for user %q yet.", userID)), nil
	}

	out, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding profile: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// handleListChats lists a user's chats.
func (s *Server) handleListChats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user_id"), nil
	}

	chats, err := s.chats.ListChats(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing chats: %v", err)), nil
	}
	if len(chats) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No chats found for user %q.", userID)), nil
	}

	out, err := json.MarshalIndent(chats, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding chats: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

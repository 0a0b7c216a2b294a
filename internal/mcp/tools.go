package mcp

import "github.com/mark3labs/mcp-go/mcp"

// processMessageTool defines the process_message MCP tool.
var processMessageTool = mcp.NewTool("process_message",
	mcp.WithDescription("Process a user message through the enrichment pipeline: extract insights, update the user's profile, and return a personalized response."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("Identifier of the user the message belongs to"),
	),
	mcp.WithString("content",
		mcp.Required(),
		mcp.Description("The message text to process"),
	),
	mcp.WithString("chat_id",
		mcp.Description("Existing chat to continue; omit to process without conversation history"),
	),
)

// getProfileTool defines the get_profile MCP tool.
var getProfileTool = mcp.NewTool("get_profile",
	mcp.WithDescription("Get everything stored about a user: personality traits, communication style, interests, people, and recent stories."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("Identifier of the user"),
	),
)

// listChatsTool defines the list_chats MCP tool.
var listChatsTool = mcp.NewTool("list_chats",
	mcp.WithDescription("List a user's chats, most recently updated first."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("Identifier of the user"),
	),
)

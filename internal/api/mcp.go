package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bernatferragut/bernatbot/internal/pipeline"
)

const (
	resourceKnowledgeBase = "bernat://knowledge-base"
	resourcePersonality   = "bernat://personality"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Conversations *pipeline.Conversations
	Version       string
}

// NewMCPServer creates an MCP server exposing the chat pipeline as tools and
// the loaded documents as resources.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"bernatbot",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("bernatbot answers questions about Bernat from a local knowledge base, falling back to a hosted model."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask a question about Bernat. Pass conversation_id to continue a conversation."),
			mcp.WithString("message", mcp.Description("The question or message"), mcp.Required()),
			mcp.WithString("conversation_id", mcp.Description("Conversation to continue; omitted starts a new one")),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("classify",
			mcp.WithDescription("Classify a message as clean, abusive or sensitive under the content-safety policy."),
			mcp.WithString("message", mcp.Description("Message to classify"), mcp.Required()),
		),
		mcpClassify(deps),
	)

	s.AddResource(
		mcp.NewResource(
			resourceKnowledgeBase,
			"Knowledge Base",
			mcp.WithResourceDescription("Facts, FAQs and triggers used to answer locally"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceKnowledgeBase(deps),
	)

	s.AddResource(
		mcp.NewResource(
			resourcePersonality,
			"Personality Profile",
			mcp.WithResourceDescription("Personality profile that shapes replies"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourcePersonality(deps),
	)

	return s
}

type askResult struct {
	ConversationID string   `json:"conversation_id"`
	Reply          string   `json:"reply"`
	Source         string   `json:"source"`
	Category       string   `json:"category"`
	WarningCount   int      `json:"warning_count"`
	Resources      []string `json:"resources,omitempty"`
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}
		convID := req.GetString("conversation_id", "")
		if len(convID) > maxConversationIDLen {
			return mcpError(fmt.Sprintf("conversation_id must be at most %d characters", maxConversationIDLen)), nil
		}

		turn, err := deps.Conversations.Send(ctx, convID, message)
		if errors.Is(err, pipeline.ErrMalformedRequest) {
			return mcpError("message must not be empty"), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to process message: %v", err)), nil
		}

		b, err := json.Marshal(askResult{
			ConversationID: turn.ConversationID,
			Reply:          turn.Text,
			Source:         string(turn.Source),
			Category:       string(turn.Category),
			WarningCount:   turn.WarningCount,
			Resources:      turn.Resources,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal reply: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpClassify(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}
		return mcpText(string(deps.Conversations.Pipeline().Classify(message))), nil
	}
}

func mcpResourceKnowledgeBase(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource(req.Params.URI, deps.Conversations.Pipeline().Store().KnowledgeBase())
	}
}

func mcpResourcePersonality(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource(req.Params.URI, deps.Conversations.Pipeline().Store().Document())
	}
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

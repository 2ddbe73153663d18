package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestNewMCPServer(t *testing.T) {
	s := NewMCPServer(MCPDeps{Conversations: newTestConversations(t, nil, nil)})
	if s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

func TestMCPTool_Ask(t *testing.T) {
	deps := MCPDeps{Conversations: newTestConversations(t, stubModel{reply: "unused"}, nil)}
	handler := mcpAsk(deps)

	result, err := handler(context.Background(), makeCallToolRequest("ask", map[string]interface{}{
		"message": "What is Bernat's job?",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var got askResult
	if err := json.Unmarshal([]byte(toolText(t, result)), &got); err != nil {
		t.Fatalf("parsing result: %v", err)
	}
	if got.Reply != "He is an engineer." || got.Source != "knowledge" || got.ConversationID == "" {
		t.Errorf("result = %+v", got)
	}
}

func TestMCPTool_Ask_ContinuesConversation(t *testing.T) {
	deps := MCPDeps{Conversations: newTestConversations(t, nil, nil)}
	handler := mcpAsk(deps)
	args := map[string]interface{}{"message": "badword", "conversation_id": "mcp-1"}

	handler(context.Background(), makeCallToolRequest("ask", args))
	result, _ := handler(context.Background(), makeCallToolRequest("ask", args))

	var got askResult
	json.Unmarshal([]byte(toolText(t, result)), &got)
	if got.WarningCount != 2 {
		t.Errorf("WarningCount = %d, want 2", got.WarningCount)
	}
}

func TestMCPTool_Ask_MissingMessage(t *testing.T) {
	handler := mcpAsk(MCPDeps{Conversations: newTestConversations(t, nil, nil)})

	for _, args := range []map[string]interface{}{{}, {"message": "   "}} {
		result, err := handler(context.Background(), makeCallToolRequest("ask", args))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Errorf("args %v: expected tool error", args)
		}
	}
}

func TestMCPTool_Classify(t *testing.T) {
	handler := mcpClassify(MCPDeps{Conversations: newTestConversations(t, nil, nil)})

	tests := map[string]string{
		"hello there":       "clean",
		"you are a BADWORD": "abusive",
	}
	for msg, want := range tests {
		result, err := handler(context.Background(), makeCallToolRequest("classify", map[string]interface{}{"message": msg}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := toolText(t, result); got != want {
			t.Errorf("classify(%q) = %q, want %q", msg, got, want)
		}
	}
}

func TestMCPResources(t *testing.T) {
	deps := MCPDeps{Conversations: newTestConversations(t, nil, nil)}

	contents, err := mcpResourceKnowledgeBase(deps)(context.Background(), makeReadResourceRequest(resourceKnowledgeBase))
	if err != nil {
		t.Fatalf("knowledge base resource: %v", err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(text, "He is an engineer.") {
		t.Errorf("knowledge base resource = %s", text)
	}

	contents, err = mcpResourcePersonality(deps)(context.Background(), makeReadResourceRequest(resourcePersonality))
	if err != nil {
		t.Fatalf("personality resource: %v", err)
	}
	res := contents[0].(mcp.TextResourceContents)
	if res.URI != resourcePersonality || !strings.Contains(res.Text, "personality_profile") {
		t.Errorf("personality resource = %+v", res)
	}
}

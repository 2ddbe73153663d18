package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bernatferragut/bernatbot/internal/config"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestAsk(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/chat": `{"conversation_id":"conv-1","reply":"He is an engineer.","source":"knowledge","category":"clean","stage":"clean","warning_count":0}`,
	})

	reply, err := ask(ctx, ts.client(), "conv-1", "what does bernat do")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Reply != "He is an engineer." || reply.Source != "knowledge" {
		t.Errorf("reply = %+v", reply)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Method != "POST" || r.Path != "/api/chat" {
		t.Errorf("request = %s %s, want POST /api/chat", r.Method, r.Path)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["conversation_id"] != "conv-1" {
		t.Errorf("body.conversation_id = %v, want conv-1", body["conversation_id"])
	}
	if body["message"] != "what does bernat do" {
		t.Errorf("body.message = %v", body["message"])
	}
}

func TestAsk_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		w.Write([]byte(`{"error":{"message":"message is required and must not be empty","type":"invalid_request_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{baseURL: ts.URL, httpClient: ts.Client()}
	_, err := ask(ctx, client, "", " ")
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error = %q, want it to contain '400'", err.Error())
	}
}

func TestAskCommand_MissingArgs(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"ask"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing args")
	}
	if !strings.Contains(err.Error(), "arg") {
		t.Errorf("error = %q, want it to mention args", err.Error())
	}
}

func TestPurgeCommand_RequiresConfirm(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"interactions", "purge", "conv-1"})
	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "--confirm") {
		t.Errorf("err = %v, want a --confirm error", err)
	}
}

func TestStatusCommand_Running(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/health": `{"status":"ok","timestamp":"2025-01-01T00:00:00Z"}`,
	})

	resp, err := ts.client().get(ctx, "/api/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var health map[string]string
	if err := decodeJSON(resp, &health); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if health["status"] != "ok" {
		t.Errorf("status = %q, want ok", health["status"])
	}
}

func TestStatusCommand_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	_, err := ts.client().get(ctx, "/api/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestPrintReply(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = true

	var buf bytes.Buffer
	printReply(&buf, chatReply{
		Reply:        "This topic may be sensitive",
		Source:       "safeguard",
		Stage:        "first_warning",
		WarningCount: 1,
		Resources:    []string{"https://example.org/help"},
	})

	want := "This topic may be sensitive\n  → https://example.org/help\n[first_warning, warnings: 1]\n"
	if got := buf.String(); got != want {
		t.Errorf("printReply = %q, want %q", got, want)
	}
}

func TestInteractionsList(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /admin/interactions": `[{"id":"ix-00112233","conversation_id":"c1","created_at":"2025-01-01T00:00:00Z","user_message":"hello","source":"model","category":"clean"}]`,
	})

	resp, err := ts.client().get(ctx, "/admin/interactions?limit=20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var items []interactionSummary
	if err := decodeJSON(resp, &items); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 interaction, got %d", len(items))
	}
	if items[0].UserMessage != "hello" {
		t.Errorf("user_message = %q, want hello", items[0].UserMessage)
	}
	if ts.requests[0].Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", ts.requests[0].Auth)
	}
}

func TestFormatInteraction(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = true

	got := formatInteraction(interactionSummary{
		ID:          "0123456789abcdef",
		CreatedAt:   "2025-01-01T00:00:00Z",
		UserMessage: strings.Repeat("é", 90),
		Source:      "safeguard",
		Category:    "abusive",
	})
	if !strings.HasPrefix(got, "01234567  2025-01-01T00:00:00Z  safeguard/abusive") {
		t.Errorf("formatInteraction = %q", got)
	}
	if !strings.HasSuffix(got, strings.Repeat("é", 80)+"...") {
		t.Errorf("message not truncated on a rune boundary: %q", got)
	}
}

func TestAPIClient_NoTokenSendsNoAuth(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/greeting": `{"greeting":"Hola!"}`,
	})

	client := ts.client()
	client.token = ""
	resp, err := client.get(ctx, "/api/greeting")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if ts.requests[0].Auth != "" {
		t.Errorf("auth = %q, want none", ts.requests[0].Auth)
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":{"message":"invalid or missing bearer token","type":"authentication_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{
		baseURL:    ts.URL,
		token:      "bad-token",
		httpClient: ts.Client(),
	}

	resp, err := client.get(ctx, "/admin/interactions")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %q, want it to contain '401'", err.Error())
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 4000
	cfg.Upstream.APIKey = "sk-secret"

	keys := config.ShowAll(cfg)
	if len(keys) == 0 {
		t.Fatal("expected non-empty keys from ShowAll")
	}

	foundPort := false
	for _, k := range keys {
		if k.Key == "server.port" && k.Value == "4000" {
			foundPort = true
		}
		if strings.Contains(k.Value, "sk-secret") {
			t.Errorf("secret leaked in %s", k.Key)
		}
	}
	if !foundPort {
		t.Error("expected to find server.port=4000 in ShowAll output")
	}
}

func TestCountLabel(t *testing.T) {
	tests := []struct {
		count, limit int
		want         string
	}{
		{5, 100, "5"},
		{0, 100, "0"},
		{100, 100, "100+"},
		{150, 100, "150+"},
	}
	for _, tt := range tests {
		got := countLabel(tt.count, tt.limit)
		if got != tt.want {
			t.Errorf("countLabel(%d, %d) = %q, want %q", tt.count, tt.limit, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	tests := map[string]bool{
		"debug": true,
		"DEBUG": true,
		"info":  false,
		"":      false,
	}
	for level, debug := range tests {
		l := newLogger(level)
		if got := l.Enabled(ctx, -4); got != debug {
			t.Errorf("newLogger(%q) debug enabled = %v, want %v", level, got, debug)
		}
	}
}

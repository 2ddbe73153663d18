package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/bernatferragut/bernatbot/internal/api"
	"github.com/bernatferragut/bernatbot/internal/config"
)

type chatReply = api.ChatResponse

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send a message to the running server",
	Long: `Send a message to the running server and print the reply.

Examples:
  bernatbot ask "What does Bernat do?"
  bernatbot ask --conversation 3f2a... "And where does he live?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		convID, _ := cmd.Flags().GetString("conversation")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		reply, err := ask(cmd.Context(), client, convID, strings.Join(args, " "))
		if err != nil {
			return err
		}

		printReply(os.Stdout, reply)
		if convID == "" {
			printStatus("Conversation", "%s", reply.ConversationID)
		}
		return nil
	},
}

func ask(ctx context.Context, client *apiClient, convID, message string) (chatReply, error) {
	req := api.ChatRequest{ConversationID: convID, Message: message}
	resp, err := client.post(ctx, "/api/chat", req)
	if err != nil {
		return chatReply{}, err
	}
	var reply chatReply
	if err := decodeJSON(resp, &reply); err != nil {
		return chatReply{}, err
	}
	return reply, nil
}

func init() {
	askCmd.Flags().String("conversation", "", "conversation id to continue")
}

// --- greet ---

var greetCmd = &cobra.Command{
	Use:   "greet",
	Short: "Print the greeting shown to new conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/greeting")
		if err != nil {
			return err
		}

		var body map[string]string
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}
		fmt.Println(body["greeting"])
		return nil
	},
}

// --- end ---

var endCmd = &cobra.Command{
	Use:   "end <conversation-id>",
	Short: "End a conversation and reset its warnings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/api/conversations/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Ended conversation %s", args[0])
		return nil
	},
}

// --- interactions ---

var interactionsCmd = &cobra.Command{
	Use:   "interactions",
	Short: "Inspect the interaction log (requires the admin token)",
}

type interactionSummary struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	CreatedAt      string `json:"created_at"`
	UserMessage    string `json:"user_message"`
	Source         string `json:"source"`
	Category       string `json:"category"`
}

var interactionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent interactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		convID, _ := cmd.Flags().GetString("conversation")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/admin/interactions?limit=%d", limit)
		if convID != "" {
			path = fmt.Sprintf("/admin/conversations/%s/interactions?limit=%d", url.PathEscape(convID), limit)
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var items []interactionSummary
		if err := decodeJSON(resp, &items); err != nil {
			return err
		}

		if len(items) == 0 {
			fmt.Println("No interactions found.")
			return nil
		}
		for _, ix := range items {
			fmt.Println(formatInteraction(ix))
		}
		return nil
	},
}

func formatInteraction(ix interactionSummary) string {
	msg := ix.UserMessage
	if r := []rune(msg); len(r) > 80 {
		msg = string(r[:80]) + "..."
	}
	id := ix.ID
	if len(id) > 8 {
		id = id[:8]
	}
	source := ix.Source
	if ix.Category != "" && ix.Category != "clean" {
		source += "/" + ix.Category
	}
	return fmt.Sprintf("%s  %s  %-18s %s", colorize(colorCyan, id), ix.CreatedAt, source, msg)
}

var interactionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single interaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/admin/interactions/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var interaction any
		if err := decodeJSON(resp, &interaction); err != nil {
			return err
		}
		return printJSON(interaction)
	},
}

var interactionsPurgeCmd = &cobra.Command{
	Use:   "purge <conversation-id>",
	Short: "Delete every recorded interaction of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			return errors.New("refusing to delete without --confirm")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/admin/conversations/"+url.PathEscape(args[0])+"/interactions")
		if err != nil {
			return err
		}

		var result struct {
			Deleted int `json:"deleted"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Deleted %d interactions", result.Deleted)
		return nil
	},
}

func init() {
	interactionsListCmd.Flags().Int("limit", 20, "maximum number of interactions to list")
	interactionsListCmd.Flags().String("conversation", "", "only list this conversation, oldest first")
	interactionsPurgeCmd.Flags().Bool("confirm", false, "confirm deletion")
	interactionsCmd.AddCommand(interactionsListCmd)
	interactionsCmd.AddCommand(interactionsShowCmd)
	interactionsCmd.AddCommand(interactionsPurgeCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "$"+k.EnvVar))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the chat pipeline over MCP (stdio transport)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Conversations: a.conversations,
			Version:       version,
		})
		a.logger.Info("MCP server started (stdio transport)")
		if err := server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		return nil
	},
}

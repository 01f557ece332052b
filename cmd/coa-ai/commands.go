package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/crypticpy/COA-AI-Template/internal/config"
)

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show gateway and AI upstream status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	host := cfg.Server.Host
	if host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	baseURL := fmt.Sprintf("http://%s:%d/api/v1", host, cfg.Server.Port)

	if cfg.UseAzure() {
		printStatus("Provider", "azure (%s)", cfg.Azure.Endpoint)
	} else {
		printStatus("Provider", "compat (%s)", cfg.Compat.BaseURL)
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
		return nil
	}

	var health struct {
		Status      string `json:"status"`
		Environment string `json:"environment"`
		Version     string `json:"version"`
	}
	if err := decodeJSON(resp, &health); err != nil {
		printStatus("Server", "error (%v)", err)
		return nil
	}
	printStatus("Server", "running on port %d (%s, version %s)", cfg.Server.Port, health.Environment, health.Version)

	// The AI probe makes real upstream calls, so it gets a longer budget
	// than the liveness check.
	printStep("Probing AI upstream...")
	aiClient := &http.Client{Timeout: 20 * time.Second}
	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/health/ai", nil)
	if err != nil {
		return err
	}
	aiResp, err := aiClient.Do(req)
	if err != nil {
		printStatus("AI upstream", "unreachable (%v)", err)
		return nil
	}

	var ai struct {
		Status         string `json:"status"`
		Provider       string `json:"provider"`
		ChatCompletion string `json:"chat_completion"`
		Embeddings     string `json:"embeddings"`
	}
	if err := decodeJSON(aiResp, &ai); err != nil {
		printError("AI upstream degraded: %v", err)
		return nil
	}
	printStatus("AI upstream", "%s (%s)", ai.Status, ai.Provider)
	printStatus("Chat", "%s", ai.ChatCompletion)
	printStatus("Embeddings", "%s", ai.Embeddings)
	return nil
}

// --- complete ---

var completeCmd = &cobra.Command{
	Use:   "complete <prompt>",
	Short: "Run a chat completion through the gateway",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := strings.Join(args, " ")
		model, _ := cmd.Flags().GetString("model")
		system, _ := cmd.Flags().GetString("system")

		var messages []map[string]string
		if system != "" {
			messages = append(messages, map[string]string{"role": "system", "content": system})
		}
		messages = append(messages, map[string]string{"role": "user", "content": prompt})

		req := map[string]any{"messages": messages}
		if model != "" {
			req["model"] = model
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/completions", req)
		if err != nil {
			return err
		}

		var result struct {
			Content  string `json:"content"`
			Model    string `json:"model"`
			Attempts int    `json:"attempts"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.Attempts > 1 {
			printWarning("Upstream needed %d attempts", result.Attempts)
		}
		fmt.Println(result.Content)
		return nil
	},
}

func init() {
	completeCmd.Flags().String("model", "", "model to use (default: server's primary)")
	completeCmd.Flags().String("system", "", "system prompt")
}

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Summarize a document, URL, or text",
	Long: `Summarize a document, URL, or text through the gateway.

Examples:
  coa-ai analyze "long pasted text..."
  coa-ai analyze --url https://example.com/article
  coa-ai analyze --file ./report.pdf
  cat notes.md | coa-ai analyze`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		urlFlag, _ := cmd.Flags().GetString("url")
		prompt, _ := cmd.Flags().GetString("prompt")

		req, err := buildAnalyzeRequest(args, file, urlFlag, prompt, os.Stdin)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Analyzing...")
		resp, err := client.post(cmd.Context(), "/analyze", req)
		if err != nil {
			return err
		}

		var result struct {
			Analysis string `json:"analysis"`
			Model    string `json:"model"`
			Attempts int    `json:"attempts"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Analysis)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("file", "", "file path to analyze (.pdf and .html are extracted server-side)")
	analyzeCmd.Flags().String("url", "", "URL to fetch and analyze")
	analyzeCmd.Flags().String("prompt", "", "analysis instruction (default: summarize)")
}

// buildAnalyzeRequest assembles the analyze request body. PDF and HTML
// files are sent base64-encoded so the server's extractors handle them;
// everything else goes as plain text. stdin is only consumed when no other
// input is given.
func buildAnalyzeRequest(args []string, file, urlFlag, prompt string, stdin io.Reader) (map[string]any, error) {
	req := map[string]any{}
	if prompt != "" {
		req["prompt"] = prompt
	}

	switch {
	case urlFlag != "":
		req["url"] = urlFlag
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading file: %w", err)
		}
		switch strings.ToLower(filepath.Ext(file)) {
		case ".pdf":
			req["content_base64"] = base64.StdEncoding.EncodeToString(data)
			req["content_type"] = "application/pdf"
		case ".html", ".htm":
			req["content_base64"] = base64.StdEncoding.EncodeToString(data)
			req["content_type"] = "text/html"
		default:
			req["text"] = string(data)
		}
	case len(args) > 0:
		req["text"] = strings.Join(args, " ")
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		if len(strings.TrimSpace(string(data))) == 0 {
			return nil, fmt.Errorf("one of --file, --url, a text argument, or stdin input is required")
		}
		req["text"] = string(data)
	}
	return req, nil
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

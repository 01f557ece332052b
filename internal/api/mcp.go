package api

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/crypticpy/COA-AI-Template/internal/gateway"
	"github.com/crypticpy/COA-AI-Template/internal/provider"
)

// NewMCPServer exposes the completion gateway over the Model Context
// Protocol so local agents can use the same retrying upstream path as the
// HTTP API.
func NewMCPServer(gw *gateway.Gateway, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"coa-ai",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("COA AI gateway — resilient chat completions and quick text analysis."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("complete",
			mcp.WithDescription("Send a prompt to the configured model and return its reply. Transient upstream failures are retried automatically."),
			mcp.WithString("prompt", mcp.Description("User prompt"), mcp.Required()),
			mcp.WithString("system", mcp.Description("Optional system prompt")),
			mcp.WithString("model", mcp.Description("Optional model override")),
		),
		mcpComplete(gw),
	)

	s.AddTool(
		mcp.NewTool("analyze",
			mcp.WithDescription("Run a quick analysis of a block of text using the fast model."),
			mcp.WithString("text", mcp.Description("Text to analyze"), mcp.Required()),
			mcp.WithString("prompt", mcp.Description("Analysis instructions (defaults to a short summary)")),
		),
		mcpAnalyze(gw),
	)

	return s
}

func mcpComplete(gw *gateway.Gateway) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prompt, err := req.RequireString("prompt")
		if err != nil {
			return mcpError("prompt is required"), nil
		}

		var messages []gateway.Message
		if system := req.GetString("system", ""); system != "" {
			messages = append(messages, gateway.Message{Role: provider.RoleSystem, Content: system})
		}
		messages = append(messages, gateway.Message{Role: provider.RoleUser, Content: prompt})

		res, err := gw.Complete(ctx, gateway.Request{
			Model:    req.GetString("model", ""),
			Messages: messages,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("completion failed: %v", err)), nil
		}
		return mcpText(res.Content), nil
	}
}

func mcpAnalyze(gw *gateway.Gateway) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}
		prompt := req.GetString("prompt", defaultAnalysisPrompt)

		res, err := gw.QuickAnalysis(ctx, prompt, text)
		if err != nil {
			return mcpError(fmt.Sprintf("analysis failed: %v", err)), nil
		}
		return mcpText(res.Content), nil
	}
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

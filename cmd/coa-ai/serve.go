package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/crypticpy/COA-AI-Template/internal/api"
	"github.com/crypticpy/COA-AI-Template/internal/auth"
	"github.com/crypticpy/COA-AI-Template/internal/config"
	"github.com/crypticpy/COA-AI-Template/internal/gateway"
	"github.com/crypticpy/COA-AI-Template/internal/provider"
	"github.com/crypticpy/COA-AI-Template/internal/recovery"
	"github.com/crypticpy/COA-AI-Template/internal/webapp"
)

// Logical model names used against Azure, where the provider maps them to
// deployments. Compat endpoints override them through configuration.
const (
	defaultChatModel  = "gpt-4o-mini"
	defaultEmbedModel = "text-embedding-ada-002"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the AI gateway server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "coa-ai version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := provider.New(cfg)
	logger.Info("provider configured", "provider", p.Name())

	chatModel, embedModel := defaultChatModel, defaultEmbedModel
	gwOpts := []gateway.Option{
		gateway.WithMaxAttempts(cfg.Retry.MaxAttempts),
		gateway.WithBaseDelay(cfg.Retry.BaseDelay),
		gateway.WithMaxDelay(cfg.Retry.MaxDelay),
		gateway.WithLogger(logger),
	}
	if !cfg.UseAzure() {
		if cfg.Compat.ChatModel != "" {
			chatModel = cfg.Compat.ChatModel
			gwOpts = append(gwOpts, gateway.WithAnalysisModel(cfg.Compat.ChatModel))
		}
		if cfg.Compat.EmbedModel != "" {
			embedModel = cfg.Compat.EmbedModel
		}
	}
	gw := gateway.New(p, gwOpts...)

	// Serve the SPA when a webapp directory is configured.
	var webHandler *webapp.Handler
	if cfg.Webapp.Dir != "" {
		webHandler, err = webapp.New(webapp.Config{Dir: cfg.Webapp.Dir, Logger: logger})
		if err != nil {
			return fmt.Errorf("webapp: %w", err)
		}
		logger.Info("webapp serving enabled", "dir", cfg.Webapp.Dir)
	}

	// The recovery monitor runs even without a webapp: the beacon answer
	// tells the browser to reload itself; the server-side rescan is only
	// possible when we serve the assets ourselves.
	monitor := recovery.NewMonitor(recovery.Config{
		Reload: func() {
			if webHandler == nil {
				return
			}
			if err := webHandler.Rescan(); err != nil {
				logger.Error("asset rescan failed", "error", err)
			}
		},
		ResetAfter: cfg.Recovery.ResetAfter,
		Logger:     logger,
	})
	if webHandler != nil {
		webHandler.NotifyMiss = monitor.NotifyResourceError
	}
	monitor.Install()
	defer monitor.Stop()

	deps := api.Deps{
		Gateway:     gw,
		Provider:    p,
		Verifier:    auth.FromConfig(cfg.Auth),
		Monitor:     monitor,
		Environment: cfg.Environment,
		Version:     version,
		CORSOrigins: cfg.Origins(),
		ChatModel:   chatModel,
		EmbedModel:  embedModel,
		Logger:      logger,
	}
	if webHandler != nil {
		deps.Webapp = webHandler
	}
	handler := api.NewHandler(deps)

	// Expose the gateway tools over MCP (stdio transport in a goroutine).
	if cfg.MCP.Enabled {
		stdioSrv := server.NewStdioServer(api.NewMCPServer(gw, version))
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("MCP stdio server error", "error", err)
			}
		}()
		logger.Info("MCP server started (stdio transport)")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		logger.Info("coa-ai listening", "addr", addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	printSuccess("Server stopped")
	return nil
}

// Command dialogue-index attaches to a live chat-application page, keeps a
// synchronized outline of the conversation, and serves it as a side panel
// with click-to-scroll navigation.
//
// Usage:
//
//	dialogue-index -url https://chatgpt.com/c/...     # attach to one page
//	dialogue-index -config dialogue-index.yaml        # full configuration
//	dialogue-index -url ... -mcp                      # also serve MCP on stdio
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/BigYang-Web/dialogue-index/browser"
	"github.com/BigYang-Web/dialogue-index/config"
	"github.com/BigYang-Web/dialogue-index/engine"
	"github.com/BigYang-Web/dialogue-index/monitor"
	"github.com/BigYang-Web/dialogue-index/panel"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	pageURL := flag.String("url", "", "chat page URL to attach to")
	listen := flag.String("listen", "", "panel HTTP address (overrides config)")
	remote := flag.String("remote", "", "remote Chrome WebSocket URL (overrides config)")
	headful := flag.Bool("headful", false, "run a visible Chrome")
	serveMCP := flag.Bool("mcp", false, "serve MCP tools on stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *pageURL, *listen, *remote, *headful, *serveMCP); err != nil {
		logger.Error("dialogue-index: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, pageURL, listen, remote string, headful, serveMCP bool) error {
	cfg := &config.Config{}
	if configPath != "" {
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	cfg.ApplyDefaults()

	if pageURL != "" {
		cfg.PageURL = pageURL
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if remote != "" {
		cfg.Browser.Remote = remote
	}
	if headful {
		cfg.Browser.Headful = true
	}
	if cfg.PageURL == "" {
		fmt.Fprintln(os.Stderr, "usage: dialogue-index -url <chat page url> [-config <file>]")
		os.Exit(1)
	}

	registry, err := cfg.Registry()
	if err != nil {
		logger.Warn("dialogue-index: invalid site rule skipped", "error", err)
	}

	// Browser attachment.
	mgr := browser.NewManager(browser.Config{
		RemoteURL: cfg.Browser.Remote,
		Headful:   cfg.Browser.Headful,
		Logger:    logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return err
	}
	defer mgr.Close()

	tab, err := browser.OpenTab(ctx, mgr, cfg.PageURL, browser.TabOptions{
		Highlight: cfg.Highlight,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer tab.Close()

	// Consumer + engine.
	p := panel.New(logger)
	eng, err := engine.New(engine.Options{
		Source:   tab,
		Scroller: tab,
		Registry: registry,
		Sinks:    []monitor.Sink{p},
		Debounce: cfg.Debounce,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	p.SetSupported(eng.Supported())

	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer eng.Stop()

	if err := tab.Observe(ctx, browser.Signals{
		OnMutation:   eng.NotifyMutation,
		OnForeground: eng.NotifyForeground,
		OnNavigation: func(string) { eng.NotifyNavigation() },
	}); err != nil {
		return fmt.Errorf("observe page: %w", err)
	}

	// Optional MCP stdio surface.
	if serveMCP {
		srv := mcp.NewServer(&mcp.Implementation{
			Name:    "dialogue-index",
			Version: "1.0.0",
		}, nil)
		eng.RegisterMCP(srv)
		go func() {
			if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				logger.Error("dialogue-index: mcp server", "error", err)
			}
		}()
	}

	// Panel HTTP server.
	httpSrv := &http.Server{
		Addr:    cfg.Listen,
		Handler: panel.NewServer(p, eng).Handler(),
	}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutCtx)
	}()

	logger.Info("dialogue-index: panel listening",
		"addr", cfg.Listen, "page", cfg.PageURL, "supported", eng.Supported())

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

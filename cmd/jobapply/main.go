// Package main provides the CLI entry point for the job-apply agent: a
// chat-driven bot that drives a real browser through a job application
// form on the candidate's behalf.
//
// # Basic usage
//
// Run the bot against a config directory holding config.json,
// profile.json, resume/resume.pdf, and cover_letter/cover_letter.pdf:
//
//	jobapply serve --config-dir ./config
//
// serve validates the config directory (syntactically, then against
// live bot/LLM connectivity) before starting the chat listener. The
// onboarding wizard, list/config subcommands, and SQLite migrations
// that a full CLI would also carry are out of this module's scope; see
// spec.md §1.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/nexus/internal/artifacts"
	"github.com/haasonsaas/nexus/internal/channels/telegram"
	"github.com/haasonsaas/nexus/internal/config"
	"github.com/haasonsaas/nexus/internal/orchestrator"
	"github.com/haasonsaas/nexus/internal/storage"
)

// Build information, populated by ldflags during release builds.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command_failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "jobapply",
		Short:   "Autonomous job-application assistant",
		Version: fmt.Sprintf("%s (%s)", version, commit),
	}
	root.AddCommand(buildServeCmd())
	return root
}

func buildServeCmd() *cobra.Command {
	var configDir, dbPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Validate config and run the chat-driven apply loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configDir, dbPath)
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "./config", "directory containing config.json, profile.json, resume/, cover_letter/")
	cmd.Flags().StringVar(&dbPath, "db", "./jobapply.db", "path to the SQLite database file")
	return cmd
}

// runServe wires C1-C8 together: it validates config, opens
// persistence and the debug artifact store, builds the orchestrator
// (C4), attaches it to a Telegram chat dispatcher (C5), and blocks on
// the chat listener until the process receives an interrupt.
func runServe(ctx context.Context, configDir, dbPath string) error {
	logger := slog.Default()

	provider := config.NewProvider(configDir)
	if result := provider.Validate(); !result.OK() {
		for _, e := range result.Errors {
			logger.Error("config_invalid", "file", e.File, "field", e.Field, "message", e.Message)
		}
		return fmt.Errorf("config validation failed with %d error(s); see %s", len(result.Errors), configDir)
	}

	appCfg, err := provider.GetConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	connCtx, cancelConn := context.WithTimeout(ctx, connectivityCheckTimeout)
	defer cancelConn()
	conn := config.CheckConnectivity(connCtx, appCfg)
	if !conn.OK {
		for _, e := range conn.Errors {
			logger.Error("connectivity_check_failed", "error", e)
		}
		return fmt.Errorf("connectivity check failed: %v", conn.Errors)
	}
	logger.Info("connectivity_ok", "bot_username", conn.BotUsername)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && filepath.Dir(dbPath) != "." {
		return fmt.Errorf("create db directory: %w", err)
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	debugBase := filepath.Join(configDir, "debug_runs")
	artifactStore := artifacts.NewLocalStore(debugBase)

	orch := orchestrator.New(provider, store.Jobs(), store.Credentials(), artifactStore)

	dispatcher := telegram.NewDispatcher(appCfg.ChatID, store.Jobs(), orch, provider, logger)

	b, err := tgbot.New(appCfg.BotToken, tgbot.WithDefaultHandler(dispatcher.HandleUpdate))
	if err != nil {
		return fmt.Errorf("construct telegram bot: %w", err)
	}
	dispatcher.AttachBot(telegram.NewBotClient(b))

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("jobapply_serving", "config_dir", configDir, "db", dbPath, "debug_mode", appCfg.DebugMode)
	dispatcher.Listen(runCtx)
	logger.Info("jobapply_stopped")
	return nil
}

const connectivityCheckTimeout = 20 * time.Second

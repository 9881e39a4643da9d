package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vivekabot/internal/agent"
	"vivekabot/internal/bus"
	"vivekabot/internal/channel"
	"vivekabot/internal/config"
	"vivekabot/internal/domain"
	"vivekabot/internal/intent"
	"vivekabot/internal/ledger"
	"vivekabot/internal/metrics"
	"vivekabot/internal/persona"
	"vivekabot/internal/provider"
	"vivekabot/internal/search"
	"vivekabot/internal/store"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "vivekabot",
		Short: "Vivekabot: Telegram conversational assistant",
		Long:  "Vivekabot is a Go-based Telegram assistant with chat, image generation, voice, search, and a gift-economy ledger.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.vivekabot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(gatewayCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.General.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	out := os.Stderr
	if cfg.General.LogFile != "" {
		f, err := os.OpenFile(cfg.General.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Warn("cannot open log file, logging to stderr", "path", cfg.General.LogFile, "err", err)
		} else {
			out = f
		}
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Start the Telegram gateway",
		Long:  "Connects to Telegram and serves messages until interrupted. Press Ctrl+C to stop.",
		RunE:  runGateway,
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger = newLogger(cfg)

	// The Telegram token is the one hard requirement: without it there is
	// nothing to serve. Every other backend degrades per-feature.
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is not set (config: %s)", cfgPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messageBus := bus.New(100, logger)

	// Persistence is optional: an empty dbPath leaves the economy ledger and
	// memory log silently off.
	var flowStore domain.FlowStore
	if cfg.Store.DBPath != "" {
		s, err := store.NewSQLiteStore(cfg.Store.DBPath, logger)
		if err != nil {
			logger.Error("store unavailable, economy and memory disabled", "err", err)
		} else {
			flowStore = s
			defer s.Close()
		}
	} else {
		logger.Info("store not configured, economy and memory disabled")
	}

	p := persona.Load(cfg.Persona.Path, logger)
	classifier := intent.NewClassifier(p.IntentTriggers())

	brain := provider.NewGemini(provider.GeminiConfig{
		APIKey:  cfg.Brain.APIKey,
		APIBase: cfg.Brain.APIBase,
		Models:  cfg.Brain.Models,
		Logger:  logger,
	})
	// Model election happens once. A failed election is not fatal: the bot
	// runs and apologizes on chat turns.
	brain.SelectModel(ctx)

	artist := provider.NewReplicate(provider.ReplicateConfig{
		Token:           cfg.Art.Token,
		APIBase:         cfg.Art.APIBase,
		Model:           cfg.Art.Model,
		AspectRatio:     cfg.Art.AspectRatio,
		SafetyTolerance: cfg.Art.SafetyTolerance,
		Logger:          logger,
	})

	speaker := provider.NewElevenLabs(provider.ElevenLabsConfig{
		APIKey:  cfg.Speech.APIKey,
		VoiceID: cfg.Speech.VoiceID,
		Model:   cfg.Speech.Model,
		Logger:  logger,
	})

	var searcher agent.Searcher
	if cfg.Search.Enabled {
		searcher = search.New(search.Config{
			MaxResults: cfg.Search.MaxResults,
			Logger:     logger,
		})
	}

	composer := agent.NewComposer(brain, p.SystemPrompt())
	handler := agent.NewHandler(composer, agent.Services{
		Brain:      brain,
		Artist:     artist,
		Speaker:    speaker,
		Searcher:   searcher,
		Fetcher:    provider.NewFetcher(logger),
		Ledger:     ledger.New(flowStore, logger),
		Store:      flowStore,
		Classifier: classifier,
		Bus:        messageBus,
		Logger:     logger,
	})

	go handler.Run(ctx)

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/metrics", metrics.Collector.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			logger.Info("metrics server listening", "addr", cfg.Metrics.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "err", err)
			}
		}()
	}

	telegramCh := channel.NewTelegram(channel.TelegramConfig{
		Token:     cfg.Telegram.Token,
		AllowFrom: cfg.Telegram.AllowFrom,
		ParseMode: cfg.Telegram.ParseMode,
		Logger:    logger,
	})
	go func() {
		if err := telegramCh.Start(ctx, messageBus); err != nil {
			logger.Error("telegram channel error", "err", err)
			stop()
		}
	}()

	logger.Info("gateway started. Press Ctrl+C to stop.", "version", version)

	// Block until shutdown signal
	<-ctx.Done()
	logger.Info("shutting down gateway...")

	// Graceful shutdown with timeout
	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		telegramCh.Stop()
		if metricsSrv != nil {
			metricsSrv.Shutdown(shutdownCtx)
		}
		messageBus.Close()
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		shutdownErr = fmt.Errorf("shutdown timed out")
	}

	return shutdownErr
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backend configuration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}

			logger.Info("telegram", "configured", cfg.Telegram.Token != "")
			logger.Info("brain", "configured", cfg.Brain.APIKey != "", "models", cfg.Brain.Models)
			logger.Info("art", "configured", cfg.Art.Token != "", "model", cfg.Art.Model)
			logger.Info("speech", "configured", cfg.Speech.APIKey != "" && cfg.Speech.VoiceID != "")
			logger.Info("search", "enabled", cfg.Search.Enabled, "maxResults", cfg.Search.MaxResults)
			logger.Info("store", "configured", cfg.Store.DBPath != "", "path", cfg.Store.DBPath)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. brain.apiBase)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. search.maxResults 5)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}

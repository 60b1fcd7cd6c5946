package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/api"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/conf"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/data"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/infra/feishu"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/logger"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/server"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/service"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to Feishu and start alerting",
	Long: `Connect to Feishu over WebSocket, scan group messages for keywords and
send alerts and reminders. Also serves the HTTP API used by the other
commands and the MCP server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateFeishu(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		log, err := logger.New(cfg.Production, cfg.Debug)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logger.Sync(log) //nolint:errcheck

		return serve(cfg, log)
	},
}

func serve(cfg *conf.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engineCfg, enginePath, err := conf.LoadEngineConfig(cfg.EngineConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load engine config: %w", err)
	}
	if enginePath == "" {
		log.Info("engine_config_defaults")
	} else {
		log.Info("engine_config_loaded", zap.String("path", enginePath))
	}

	// Initialize repository layer
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck
	log.Info("keyword_store_opened", zap.String("backend", cfg.Keywords.Backend))

	snapshots, err := data.NewSnapshotRepo(cfg.Scheduler.SnapshotPath)
	if err != nil {
		return fmt.Errorf("failed to open snapshot file: %w", err)
	}

	feishuClient := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, log)
	notifier := data.NewFeishuRepo(feishuClient)

	// Initialize usecase layer
	ucs := biz.NewUsecases(store, data.NewReminderStore(), biz.Options{
		Engine:            engineCfg.NewEngine(),
		FallbackKeywords:  engineCfg.FallbackKeywords,
		DefaultRecipients: cfg.Alerts.DefaultRecipients,
		Reminder:          engineCfg.ReminderConfig(),
	}, log)

	// Initialize service layer
	scheduler := service.NewReminderScheduler(ucs.Reminder, snapshots, cfg.Scheduler.CleanupInterval, log)
	alertSvc := service.NewAlertService(ucs.Detect, scheduler, notifier, engineCfg.AckCommands, log)
	scheduler.SetListener(alertSvc)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if enginePath != "" {
		watcher := conf.NewEngineWatcher(enginePath, func(c *conf.EngineConfig) {
			ucs.Detect.SetEngine(c.NewEngine(), c.FallbackKeywords)
			alertSvc.SetAckCommands(c.AckCommands)
		}, log)
		if err := watcher.Start(ctx); err != nil {
			log.Warn("engine_config_watch_failed", zap.Error(err))
		}
	}

	// HTTP API for the CLI and the MCP server
	apiServer := api.NewServer(store, ucs.Detect, scheduler, notifier, cfg.API.Addr, log)
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Error("api_server_failed", zap.Error(err))
		}
	}()

	srv := server.NewFeishuServer(feishuClient, notifier, alertSvc, log)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	log.Info("keywordbot_started",
		zap.String("version", version),
		zap.String("api_addr", cfg.API.Addr),
		zap.Int("default_recipients", len(cfg.Alerts.DefaultRecipients)))

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "\nShutting down...")
	case err = <-errCh:
		if err != nil {
			log.Error("feishu_connection_failed", zap.Error(err))
		}
	}

	srv.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if stopErr := apiServer.Stop(shutdownCtx); stopErr != nil {
		log.Warn("api_server_stop_failed", zap.Error(stopErr))
	}
	return err
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/repo"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/conf"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/data"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/logger"
)

var (
	version      = "0.1.0"
	engineConfig string
	debug        bool
)

var rootCmd = &cobra.Command{
	Use:   "keywordbot",
	Short: "Keyword alerts for group chats",
	Long: `keywordbot watches group chats for keywords and alerts the people who care.

Matching tolerates typos, abbreviations, look-alike characters and phrase
variants. Alerted users get escalating reminders until they reply "ack"
in a private chat with the bot.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&engineConfig, "engine-config", "", "engine tables file (default searches configs/engine.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(keywordsCmd)
	rootCmd.AddCommand(remindersCmd)
	rootCmd.AddCommand(mcpCmd)
}

// loadConfig reads the environment and applies the persistent flags
func loadConfig() (*conf.Config, error) {
	cfg := conf.LoadFromEnv()
	if engineConfig != "" {
		cfg.EngineConfigPath = engineConfig
	}
	if debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured keyword backend
func openStore(cfg *conf.Config) (repo.KeywordStore, error) {
	store, err := data.NewKeywordStore(data.KeywordStoreOptions{
		Backend:     cfg.Keywords.Backend,
		DBPath:      cfg.Keywords.DBPath,
		RedisURL:    cfg.Keywords.RedisURL,
		RedisPrefix: cfg.Keywords.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyword store: %w", err)
	}
	return store, nil
}

// cliLogger logs to stderr so command output stays clean on stdout
func cliLogger(cfg *conf.Config) *zap.Logger {
	log, err := logger.NewStderrLogger(cfg.Debug)
	if err != nil {
		return zap.NewNop()
	}
	return log
}

package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration
type Config struct {
	// Feishu configuration
	Feishu FeishuConfig

	// Keyword registry configuration
	Keywords KeywordConfig

	// Alert routing configuration
	Alerts AlertConfig

	// Reminder scheduler configuration
	Scheduler SchedulerConfig

	// HTTP API configuration
	API APIConfig

	// Path of the engine tables file (empty searches the default locations)
	EngineConfigPath string

	// JSON logs instead of console logs
	Production bool

	// Debug mode
	Debug bool
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// KeywordConfig selects the keyword registry backend
type KeywordConfig struct {
	Backend     string // sqlite or redis
	DBPath      string
	RedisURL    string
	RedisPrefix string
}

// AlertConfig contains alert routing configuration
type AlertConfig struct {
	// Users alerted for global matches in groups nobody subscribed to
	DefaultRecipients []string
}

// SchedulerConfig contains reminder scheduler configuration
type SchedulerConfig struct {
	SnapshotPath    string
	CleanupInterval time.Duration
}

// APIConfig contains HTTP API configuration
type APIConfig struct {
	Addr string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".keywordbot")

	dbPath := os.Getenv("KEYWORD_DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "keywords.db")
	}

	snapshotPath := os.Getenv("SNAPSHOT_PATH")
	if snapshotPath == "" {
		snapshotPath = filepath.Join(dataDir, "reminders.json")
	}

	backend := os.Getenv("KEYWORD_BACKEND")
	if backend == "" {
		backend = "sqlite"
	}

	cleanupMinutes := 60
	if val := os.Getenv("CLEANUP_INTERVAL_MINUTES"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			cleanupMinutes = parsed
		}
	}

	apiAddr := os.Getenv("API_ADDR")
	if apiAddr == "" {
		apiAddr = "127.0.0.1:8765"
	}

	return &Config{
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
		},
		Keywords: KeywordConfig{
			Backend:     backend,
			DBPath:      dbPath,
			RedisURL:    os.Getenv("REDIS_URL"),
			RedisPrefix: os.Getenv("REDIS_PREFIX"),
		},
		Alerts: AlertConfig{
			DefaultRecipients: SplitList(os.Getenv("DEFAULT_RECIPIENTS")),
		},
		Scheduler: SchedulerConfig{
			SnapshotPath:    snapshotPath,
			CleanupInterval: time.Duration(cleanupMinutes) * time.Minute,
		},
		API: APIConfig{
			Addr: apiAddr,
		},
		EngineConfigPath: os.Getenv("ENGINE_CONFIG_PATH"),
		Production:       os.Getenv("LOG_FORMAT") == "json",
		Debug:            os.Getenv("DEBUG") == "true",
	}
}

// SplitList splits a comma separated list, dropping empty items
func SplitList(val string) []string {
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate validates the storage configuration
func (c *Config) Validate() error {
	switch c.Keywords.Backend {
	case "sqlite":
		if c.Keywords.DBPath == "" {
			return &ConfigError{Field: "KEYWORD_DB_PATH", Message: "required for the sqlite backend"}
		}
	case "redis":
		if c.Keywords.RedisURL == "" {
			return &ConfigError{Field: "REDIS_URL", Message: "required for the redis backend"}
		}
	default:
		return &ConfigError{Field: "KEYWORD_BACKEND", Message: "must be sqlite or redis"}
	}
	return nil
}

// ValidateFeishu checks the credentials needed to connect to Feishu
func (c *Config) ValidateFeishu() error {
	if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

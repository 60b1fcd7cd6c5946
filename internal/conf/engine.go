package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/matcher"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/usecase"
)

// EngineConfig contains the matcher tables and reminder settings loaded from YAML
type EngineConfig struct {
	Abbreviations    map[string]string   `yaml:"abbreviations"`
	Confusables      map[string]string   `yaml:"confusables"`
	StopWords        []string            `yaml:"stop_words"`
	Denylist         map[string][]string `yaml:"denylist"`
	FallbackKeywords []string            `yaml:"fallback_keywords"`
	AckCommands      []string            `yaml:"ack_commands"`
	Reminders        RemindersConfig     `yaml:"reminders"`
}

// RemindersConfig contains escalation settings
type RemindersConfig struct {
	Schedule        []time.Duration `yaml:"schedule"`
	AckWindow       time.Duration   `yaml:"ack_window"`
	RecordRetention time.Duration   `yaml:"record_retention"`
}

// DefaultAckCommands are private-chat messages that acknowledge reminders
var DefaultAckCommands = []string{"ack", "ok", "okay", "stop", "done", "got it", "seen", "received"}

// EngineConfigPaths returns the locations searched when no path is given
func EngineConfigPaths(configPath string) []string {
	if configPath != "" {
		return []string{configPath}
	}
	paths := []string{
		"configs/engine.yaml",
		"/etc/keywordbot/engine.yaml",
	}
	if execPath, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "engine.yaml"))
	}
	return paths
}

// LoadEngineConfig loads the engine tables from YAML.
// It returns the path it loaded, or "" when it fell back to defaults.
func LoadEngineConfig(configPath string) (*EngineConfig, string, error) {
	for _, p := range EngineConfigPaths(configPath) {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		config, err := ParseEngineConfig(data)
		if err != nil {
			return nil, p, fmt.Errorf("failed to parse %s: %w", p, err)
		}
		return config, p, nil
	}

	if configPath != "" {
		return nil, configPath, fmt.Errorf("engine config %s not found", configPath)
	}
	return DefaultEngineConfig(), "", nil
}

// ParseEngineConfig decodes and validates YAML engine tables
func ParseEngineConfig(data []byte) (*EngineConfig, error) {
	var config EngineConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	config.fillDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// DefaultEngineConfig returns the built-in engine configuration
func DefaultEngineConfig() *EngineConfig {
	tables := matcher.DefaultTables()
	reminders := usecase.DefaultReminderConfig()

	confusables := make(map[string]string, len(tables.Confusables))
	for from, to := range tables.Confusables {
		confusables[string(from)] = string(to)
	}

	return &EngineConfig{
		Abbreviations:    tables.Abbreviations,
		Confusables:      confusables,
		StopWords:        tables.StopWords,
		Denylist:         tables.Denylist,
		FallbackKeywords: usecase.DefaultFallbackKeywords,
		AckCommands:      DefaultAckCommands,
		Reminders: RemindersConfig{
			Schedule:        reminders.Schedule,
			AckWindow:       reminders.AckWindow,
			RecordRetention: reminders.RecordRetention,
		},
	}
}

// fillDefaults fills in default values for empty fields
func (c *EngineConfig) fillDefaults() {
	defaults := DefaultEngineConfig()

	if c.Abbreviations == nil {
		c.Abbreviations = defaults.Abbreviations
	}
	if c.Confusables == nil {
		c.Confusables = defaults.Confusables
	}
	if c.StopWords == nil {
		c.StopWords = defaults.StopWords
	}
	if c.Denylist == nil {
		c.Denylist = defaults.Denylist
	}
	if len(c.FallbackKeywords) == 0 {
		c.FallbackKeywords = defaults.FallbackKeywords
	}
	if len(c.AckCommands) == 0 {
		c.AckCommands = defaults.AckCommands
	}
	if len(c.Reminders.Schedule) == 0 {
		c.Reminders.Schedule = defaults.Reminders.Schedule
	}
	if c.Reminders.AckWindow == 0 {
		c.Reminders.AckWindow = defaults.Reminders.AckWindow
	}
	if c.Reminders.RecordRetention == 0 {
		c.Reminders.RecordRetention = defaults.Reminders.RecordRetention
	}
}

func (c *EngineConfig) validate() error {
	for from, to := range c.Confusables {
		if utf8.RuneCountInString(from) != 1 || utf8.RuneCountInString(to) != 1 {
			return fmt.Errorf("confusable %q -> %q: both sides must be a single character", from, to)
		}
	}
	for i, d := range c.Reminders.Schedule {
		if d <= 0 {
			return fmt.Errorf("reminders.schedule[%d]: must be positive, got %s", i, d)
		}
	}
	if c.Reminders.AckWindow < 0 || c.Reminders.RecordRetention < 0 {
		return fmt.Errorf("reminders: durations must not be negative")
	}
	return nil
}

// Tables converts to matcher tables
func (c *EngineConfig) Tables() matcher.Tables {
	confusables := make(map[rune]rune, len(c.Confusables))
	for from, to := range c.Confusables {
		f, _ := utf8.DecodeRuneInString(from)
		t, _ := utf8.DecodeRuneInString(to)
		confusables[f] = t
	}
	return matcher.Tables{
		Abbreviations: c.Abbreviations,
		Confusables:   confusables,
		StopWords:     c.StopWords,
		Denylist:      c.Denylist,
	}
}

// NewEngine builds a matching engine from the tables
func (c *EngineConfig) NewEngine() *matcher.Engine {
	return matcher.NewEngine(c.Tables())
}

// ReminderConfig converts to the scheduler configuration
func (c *EngineConfig) ReminderConfig() usecase.ReminderConfig {
	return usecase.ReminderConfig{
		Schedule:        c.Reminders.Schedule,
		AckWindow:       c.Reminders.AckWindow,
		RecordRetention: c.Reminders.RecordRetention,
	}
}

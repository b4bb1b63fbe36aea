package conf

import (
	"os"
	"path/filepath"
)

// Config represents application configuration
type Config struct {
	// Feishu configuration
	Feishu FeishuConfig

	// Store configuration
	Store StoreConfig

	// Watch behavior configuration
	Watch WatchConfig

	// Logging configuration
	Log LogConfig

	// Messages configuration (loaded from YAML)
	Messages *MessagesConfig

	// Debug mode
	Debug bool
}

// FeishuConfig contains Feishu app credentials
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// StoreConfig contains persistence configuration
type StoreConfig struct {
	DBPath string
}

// WatchConfig contains keyword watch behavior configuration
type WatchConfig struct {
	CommandPrefix   string // chat command that addresses the watch bot
	CaseInsensitive bool   // case-folded keyword matching
	ReconcileCron   string // cron spec for periodic store reconciliation
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	dbPath := os.Getenv("WATCH_DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".keyword-watch", "watch.db")
	}

	commandPrefix := os.Getenv("WATCH_COMMAND_PREFIX")
	if commandPrefix == "" {
		commandPrefix = "/watch"
	}

	reconcileCron := os.Getenv("WATCH_RECONCILE_CRON")
	if reconcileCron == "" {
		reconcileCron = "0 */6 * * *"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "text"
	}

	messages, _ := LoadMessagesConfig(os.Getenv("WATCH_MESSAGES_PATH"))

	return &Config{
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
		},
		Store: StoreConfig{
			DBPath: dbPath,
		},
		Watch: WatchConfig{
			CommandPrefix:   commandPrefix,
			CaseInsensitive: os.Getenv("WATCH_CASE_INSENSITIVE") == "true",
			ReconcileCron:   reconcileCron,
		},
		Log: LogConfig{
			Level:  logLevel,
			Format: logFormat,
		},
		Messages: messages,
		Debug:    os.Getenv("DEBUG") == "true",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
	}
	if c.Watch.CommandPrefix == "" {
		return &ConfigError{Field: "WATCH_COMMAND_PREFIX", Message: "must not be empty"}
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

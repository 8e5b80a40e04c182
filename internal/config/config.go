package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv        = "OCR_PORTAL_CONFIG"
	databaseURLEnv       = "DATABASE_URL"
	portEnv              = "PORT"
	logLevelEnv          = "LOG_LEVEL"
	notebookPathEnv      = "OCR_NOTEBOOK_PATH"
	recognizerBackendEnv = "OCR_RECOGNIZER_BACKEND"
	remoteEndpointEnv    = "OCR_REMOTE_ENDPOINT"
	remoteAPIKeyEnv      = "OCR_REMOTE_API_KEY"
	telegramTokenEnv     = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv    = "TELEGRAM_CHAT_ID"

	// DefaultNotebookName is the file name used for uploaded notebooks.
	DefaultNotebookName = "ocr_notebook.ipynb"
	// DefaultMaxUploadBytes caps document uploads at 10 MiB.
	DefaultMaxUploadBytes int64 = 10 << 20
)

// Config holds high-level settings required across the application.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Database      DatabaseConfig     `yaml:"database"`
	Storage       StorageConfig      `yaml:"storage"`
	Recognizer    RecognizerConfig   `yaml:"recognizer"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DatabaseConfig describes the relational store. An empty DSN selects the
// in-memory store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// StorageConfig controls where uploads live and how long orphans survive.
type StorageConfig struct {
	UploadDir         string        `yaml:"uploadDir"`
	MaxUploadBytes    int64         `yaml:"maxUploadBytes"`
	SweepInterval     time.Duration `yaml:"sweepInterval"`
	OrphanGracePeriod time.Duration `yaml:"orphanGracePeriod"`
}

// RecognizerConfig selects and configures the OCR backend.
type RecognizerConfig struct {
	Backend     string          `yaml:"backend"`
	Interpreter string          `yaml:"interpreter"`
	Script      string          `yaml:"script"`
	NotebookDir string          `yaml:"notebookDir"`
	Notebook    string          `yaml:"notebook"`
	Timeout     time.Duration   `yaml:"timeout"`
	Remote      RemoteConfig    `yaml:"remote"`
	Tesseract   TesseractConfig `yaml:"tesseract"`
}

// RemoteConfig points at an HTTP inference service.
type RemoteConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// TesseractConfig configures the in-process engine.
type TesseractConfig struct {
	Languages []string `yaml:"languages"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// LoggingConfig sets the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseURLEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(portEnv); v != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(notebookPathEnv); v != "" {
		c.Recognizer.Notebook = v
	}

	if v := os.Getenv(recognizerBackendEnv); v != "" {
		c.Recognizer.Backend = v
	}

	if v := os.Getenv(remoteEndpointEnv); v != "" {
		c.Recognizer.Remote.Endpoint = v
	}

	if v := os.Getenv(remoteAPIKeyEnv); v != "" {
		c.Recognizer.Remote.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}
	if override.Server.ShutdownTimeout > 0 {
		base.Server.ShutdownTimeout = override.Server.ShutdownTimeout
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Storage.UploadDir != "" {
		base.Storage.UploadDir = override.Storage.UploadDir
	}
	if override.Storage.MaxUploadBytes > 0 {
		base.Storage.MaxUploadBytes = override.Storage.MaxUploadBytes
	}
	if override.Storage.SweepInterval > 0 {
		base.Storage.SweepInterval = override.Storage.SweepInterval
	}
	if override.Storage.OrphanGracePeriod > 0 {
		base.Storage.OrphanGracePeriod = override.Storage.OrphanGracePeriod
	}

	if override.Recognizer.Backend != "" {
		base.Recognizer.Backend = override.Recognizer.Backend
	}
	if override.Recognizer.Interpreter != "" {
		base.Recognizer.Interpreter = override.Recognizer.Interpreter
	}
	if override.Recognizer.Script != "" {
		base.Recognizer.Script = override.Recognizer.Script
	}
	if override.Recognizer.NotebookDir != "" {
		base.Recognizer.NotebookDir = override.Recognizer.NotebookDir
	}
	if override.Recognizer.Notebook != "" {
		base.Recognizer.Notebook = override.Recognizer.Notebook
	}
	if override.Recognizer.Timeout > 0 {
		base.Recognizer.Timeout = override.Recognizer.Timeout
	}
	if override.Recognizer.Remote.Endpoint != "" {
		base.Recognizer.Remote.Endpoint = override.Recognizer.Remote.Endpoint
	}
	if override.Recognizer.Remote.APIKey != "" {
		base.Recognizer.Remote.APIKey = override.Recognizer.Remote.APIKey
	}
	if len(override.Recognizer.Tesseract.Languages) > 0 {
		base.Recognizer.Tesseract.Languages = override.Recognizer.Tesseract.Languages
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	notebookDir := "notebooks"
	return Config{
		Server: ServerConfig{Addr: ":5000", ShutdownTimeout: 10 * time.Second},
		Storage: StorageConfig{
			UploadDir:         "uploads",
			MaxUploadBytes:    DefaultMaxUploadBytes,
			SweepInterval:     time.Hour,
			OrphanGracePeriod: 24 * time.Hour,
		},
		Recognizer: RecognizerConfig{
			Backend:     "notebook",
			Interpreter: "python3",
			Script:      filepath.Join("python_ocr", "ocr_wrapper.py"),
			NotebookDir: notebookDir,
			Notebook:    filepath.Join(notebookDir, DefaultNotebookName),
			Timeout:     2 * time.Minute,
			Tesseract:   TesseractConfig{Languages: []string{"tam", "eng"}},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

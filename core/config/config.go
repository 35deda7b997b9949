package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// GenerationConfig selects and authenticates the text-generation provider.
type GenerationConfig struct {
	Provider  string `yaml:"provider" envconfig:"GENERATION_PROVIDER"`
	Model     string `yaml:"model" envconfig:"GENERATION_MODEL"`
	OpenAIKey string `yaml:"openai_api_key" envconfig:"OPENAI_API_KEY"`
	GeminiKey string `yaml:"gemini_api_key" envconfig:"GEMINI_API_KEY"`
	// TimeoutSeconds bounds one provider call; 0 waits as long as the provider does.
	TimeoutSeconds int `yaml:"timeout_seconds" envconfig:"GENERATION_TIMEOUT_SECONDS"`
}

// StorageConfig describes where the persona document lives.
type StorageConfig struct {
	Driver   string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	Path     string `yaml:"path" envconfig:"STORAGE_PATH"`
	Document string `yaml:"document" envconfig:"STORAGE_DOCUMENT"`
	Watch    bool   `yaml:"watch" envconfig:"STORAGE_WATCH"`
	// SessionCapacity caps the number of dialog sessions kept in memory.
	SessionCapacity int `yaml:"session_capacity" envconfig:"SESSION_CAPACITY"`
}

// DatabaseConfig holds postgres connection settings used by the postgres storage driver.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// ProviderOpenAI generates posts through the OpenAI chat completions API.
	ProviderOpenAI = "openai"
	// ProviderGemini generates posts through the Gemini API.
	ProviderGemini = "gemini"

	// StorageFile keeps the document in a JSON file.
	StorageFile = "file"
	// StoragePostgres keeps the document in a postgres row.
	StoragePostgres = "postgres"

	defaultOpenAIModel     = "gpt-3.5-turbo"
	defaultGeminiModel     = "gemini-2.0-flash"
	defaultDocumentPath    = "config.json"
	defaultDocumentName    = "default"
	defaultSessionCapacity = 4096
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "inline_query": inline query updates
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the whole process configuration.
type Config struct {
	Telegram   TelegramConfig   `yaml:"telegram"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Logging    LoggingConfig    `yaml:"logging"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Generation GenerationConfig `yaml:"generation"`
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
}

// Load reads configuration from .env, an optional YAML file and environment variables,
// then validates it. Both secrets are required.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read parses configuration without requiring secrets. Storage defaults are applied.
func Read(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// env-only deployment
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	if tok := os.Getenv("TELEGRAM_BOT_TOKEN"); tok != "" {
		cfg.Telegram.Token = tok
	}
	if err := normalizeStorage(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram token is required (TELEGRAM_BOT_TOKEN)")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if err := normalizeGeneration(&cfg.Generation); err != nil {
		return err
	}
	if err := normalizeStorage(cfg); err != nil {
		return err
	}

	allowed := map[string]struct{}{
		UpdateCallback:    {},
		UpdateMessage:     {},
		UpdateInlineQuery: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}

func normalizeGeneration(gen *GenerationConfig) error {
	provider := strings.ToLower(strings.TrimSpace(gen.Provider))
	if provider == "" {
		provider = ProviderOpenAI
	}
	switch provider {
	case ProviderOpenAI:
		if strings.TrimSpace(gen.OpenAIKey) == "" {
			return fmt.Errorf("generation api key is required (OPENAI_API_KEY)")
		}
		if gen.Model == "" {
			gen.Model = defaultOpenAIModel
		}
	case ProviderGemini:
		if strings.TrimSpace(gen.GeminiKey) == "" {
			return fmt.Errorf("generation api key is required (GEMINI_API_KEY)")
		}
		if gen.Model == "" {
			gen.Model = defaultGeminiModel
		}
	default:
		return fmt.Errorf("invalid generation.provider %q; allowed: openai, gemini", gen.Provider)
	}
	if gen.TimeoutSeconds < 0 {
		return fmt.Errorf("generation.timeout_seconds must be >= 0")
	}
	gen.Provider = provider
	return nil
}

func normalizeStorage(cfg *Config) error {
	st := &cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(st.Driver))
	if driver == "" {
		driver = StorageFile
	}
	switch driver {
	case StorageFile:
		if strings.TrimSpace(st.Path) == "" {
			st.Path = defaultDocumentPath
		}
	case StoragePostgres:
		if strings.TrimSpace(cfg.Database.Host) == "" || strings.TrimSpace(cfg.Database.Name) == "" {
			return fmt.Errorf("database.host and database.name are required when storage.driver is 'postgres'")
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 4
		}
		if cfg.Database.MigrationsDir == "" {
			cfg.Database.MigrationsDir = "migrations"
		}
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: file, postgres", st.Driver)
	}
	st.Driver = driver
	if st.Document == "" {
		st.Document = defaultDocumentName
	}
	if st.SessionCapacity <= 0 {
		st.SessionCapacity = defaultSessionCapacity
	}
	return nil
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
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

// DirectoryConfig points at the remote user directory admin API.
type DirectoryConfig struct {
	BaseURL        string `yaml:"base_url" envconfig:"DIRECTORY_BASE_URL"`
	AdminToken     string `yaml:"admin_token" envconfig:"DIRECTORY_ADMIN_TOKEN"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"DIRECTORY_TIMEOUT_SECONDS"`
	// SearchSuperset bounds how many accounts a search scans.
	SearchSuperset int `yaml:"search_superset" envconfig:"DIRECTORY_SEARCH_SUPERSET"`
	// ListLimit bounds the display-only listing.
	ListLimit int `yaml:"list_limit" envconfig:"DIRECTORY_LIST_LIMIT"`
}

// AccessConfig is the static allow-list.
type AccessConfig struct {
	AllowIDs     []int64  `yaml:"allow_ids" envconfig:"ACCESS_ALLOW_IDS"`
	AllowHandles []string `yaml:"allow_handles" envconfig:"ACCESS_ALLOW_HANDLES"`
}

// SessionConfig tunes the interaction sessions.
type SessionConfig struct {
	PageSize int `yaml:"page_size" envconfig:"SESSION_PAGE_SIZE"`
}

// DatabaseConfig holds the optional audit database connection settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	// MigrationsDir is resolved against the working directory when relative.
	MigrationsDir string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// Enabled reports whether an audit database is configured.
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.Host) != ""
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// Defaults applied by Normalize.
const (
	DefaultDirectoryTimeoutSeconds = 15
	DefaultSearchSuperset          = 1000
	DefaultListLimit               = 100
	DefaultPageSize                = 10
	DefaultMigrationsDir           = "migrations"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the whole bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Directory DirectoryConfig `yaml:"directory"`
	Access    AccessConfig    `yaml:"access"`
	Session   SessionConfig   `yaml:"session"`
	Database  DatabaseConfig  `yaml:"database"`
}

// Load reads configuration from a YAML file and environment variables.
// An empty path skips the file and relies on the environment only.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
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

	if err := normalizeDirectory(&cfg.Directory); err != nil {
		return err
	}
	normalizeAccess(&cfg.Access)

	if cfg.Session.PageSize < 0 {
		return fmt.Errorf("session.page_size must be >= 0")
	}
	if cfg.Session.PageSize == 0 {
		cfg.Session.PageSize = DefaultPageSize
	}

	if cfg.Database.Enabled() {
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 4
		}
		if cfg.Database.MigrationsDir == "" {
			cfg.Database.MigrationsDir = DefaultMigrationsDir
		}
		if cfg.Database.Name == "" {
			return fmt.Errorf("database.name is required when database.host is set")
		}
	}

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}

func normalizeDirectory(d *DirectoryConfig) error {
	d.BaseURL = strings.TrimRight(strings.TrimSpace(d.BaseURL), "/")
	d.AdminToken = strings.TrimSpace(d.AdminToken)
	if d.BaseURL == "" {
		return fmt.Errorf("directory.base_url is required")
	}
	u, err := url.Parse(d.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("directory.base_url %q must be an absolute http(s) URL", d.BaseURL)
	}
	if d.AdminToken == "" {
		return fmt.Errorf("directory.admin_token is required")
	}
	if d.TimeoutSeconds < 0 || d.SearchSuperset < 0 || d.ListLimit < 0 {
		return fmt.Errorf("directory timeouts and limits must be >= 0")
	}
	if d.TimeoutSeconds == 0 {
		d.TimeoutSeconds = DefaultDirectoryTimeoutSeconds
	}
	if d.SearchSuperset == 0 {
		d.SearchSuperset = DefaultSearchSuperset
	}
	if d.ListLimit == 0 {
		d.ListLimit = DefaultListLimit
	}
	return nil
}

func normalizeAccess(a *AccessConfig) {
	handles := a.AllowHandles[:0]
	for _, h := range a.AllowHandles {
		h = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
		if h != "" {
			handles = append(handles, h)
		}
	}
	a.AllowHandles = handles
}

// AllowListEmpty reports whether no actor can pass the access gate.
func (c *Config) AllowListEmpty() bool {
	return len(c.Access.AllowIDs) == 0 && len(c.Access.AllowHandles) == 0
}

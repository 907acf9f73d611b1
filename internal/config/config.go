package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath    string `yaml:"db_path" validate:"required"`
	OutputDir string `yaml:"output_dir" validate:"required"`
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=json console"`

	R25BaseURL       string `yaml:"r25_base_url" validate:"required,url"`
	R25Username      string `yaml:"r25_username"`
	R25Password      string `yaml:"r25_password"`
	R25QueryID       string `yaml:"r25_query_id"`
	R25TimeoutMs     int    `yaml:"r25_timeout_ms" validate:"min=1"`
	R25RateLimitRPS  int    `yaml:"r25_rate_limit_rps" validate:"min=1"`
	R25DetailWorkers int    `yaml:"r25_detail_workers" validate:"min=1,max=32"`
	R25PageSize      int    `yaml:"r25_page_size" validate:"min=1"`

	SyncCron         string `yaml:"sync_cron" validate:"required"`
	SyncTimezone     string `yaml:"sync_timezone" validate:"required"`
	SyncLookbackDays int    `yaml:"sync_lookback_days" validate:"min=0"`
	SyncAheadDays    int    `yaml:"sync_ahead_days" validate:"min=0"`
	SyncPruneMissing bool   `yaml:"sync_prune_missing"`
	SyncAutoExport   bool   `yaml:"sync_auto_export"`

	HTTPListen  string   `yaml:"http_listen" validate:"required"`
	CORSOrigins []string `yaml:"cors_origins"`

	NotifyProviders []string `yaml:"notify_providers" validate:"dive,oneof=redis gmail imap"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db" validate:"min=0"`
	RedisChannel  string `yaml:"redis_channel"`

	GmailClientID     string `yaml:"gmail_client_id"`
	GmailClientSecret string `yaml:"gmail_client_secret"`
	GmailRedirectURI  string `yaml:"gmail_redirect_uri"`
	GmailRefreshToken string `yaml:"gmail_refresh_token"`

	ReportFrom string   `yaml:"report_from"`
	ReportTo   []string `yaml:"report_to"`

	IMAPHost     string `yaml:"imap_host"`
	IMAPPort     int    `yaml:"imap_port"`
	IMAPSecure   bool   `yaml:"imap_secure"`
	IMAPUser     string `yaml:"imap_user"`
	IMAPPassword string `yaml:"imap_password"`
	IMAPMailbox  string `yaml:"imap_mailbox"`
}

func Defaults() Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return Config{
		DBPath:    filepath.Join(cwd, "data", "avsched.db"),
		OutputDir: filepath.Join(cwd, "out"),
		LogLevel:  "info",
		LogFormat: "json",

		R25BaseURL:       "https://25live.collegenet.com/25live/data/northwestern/run",
		R25TimeoutMs:     30000,
		R25RateLimitRPS:  4,
		R25DetailWorkers: 4,
		R25PageSize:      100,

		SyncCron:         "0 */2 * * *",
		SyncTimezone:     "America/Chicago",
		SyncLookbackDays: 1,
		SyncAheadDays:    14,
		SyncPruneMissing: true,
		SyncAutoExport:   false,

		HTTPListen: "127.0.0.1:8080",

		RedisDB:      0,
		RedisChannel: "avsched.events",

		GmailRedirectURI: "https://developers.google.com/oauthplayground",

		IMAPPort:    993,
		IMAPSecure:  true,
		IMAPMailbox: "AV Sync Reports",
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by CONFIG_FILE, then environment variables (a .env file is honoured).
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.OutputDir = getEnv("OUTPUT_DIR", cfg.OutputDir)
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", cfg.LogFormat))

	cfg.R25BaseURL = getEnv("R25_BASE_URL", cfg.R25BaseURL)
	cfg.R25Username = getEnv("R25_USERNAME", cfg.R25Username)
	cfg.R25Password = getEnv("R25_PASSWORD", cfg.R25Password)
	cfg.R25QueryID = getEnv("R25_QUERY_ID", cfg.R25QueryID)
	cfg.R25TimeoutMs = getEnvInt("R25_TIMEOUT_MS", cfg.R25TimeoutMs)
	cfg.R25RateLimitRPS = getEnvInt("R25_RATE_LIMIT_RPS", cfg.R25RateLimitRPS)
	cfg.R25DetailWorkers = getEnvInt("R25_DETAIL_WORKERS", cfg.R25DetailWorkers)
	cfg.R25PageSize = getEnvInt("R25_PAGE_SIZE", cfg.R25PageSize)

	cfg.SyncCron = getEnv("SYNC_CRON", cfg.SyncCron)
	cfg.SyncTimezone = getEnv("SYNC_TIMEZONE", cfg.SyncTimezone)
	cfg.SyncLookbackDays = getEnvInt("SYNC_LOOKBACK_DAYS", cfg.SyncLookbackDays)
	cfg.SyncAheadDays = getEnvInt("SYNC_AHEAD_DAYS", cfg.SyncAheadDays)
	cfg.SyncPruneMissing = getEnvBool("SYNC_PRUNE_MISSING", cfg.SyncPruneMissing)
	cfg.SyncAutoExport = getEnvBool("SYNC_AUTO_EXPORT", cfg.SyncAutoExport)

	cfg.HTTPListen = getEnv("HTTP_LISTEN", cfg.HTTPListen)
	cfg.CORSOrigins = getEnvList("CORS_ORIGINS", cfg.CORSOrigins)

	cfg.NotifyProviders = getEnvList("NOTIFY_PROVIDERS", cfg.NotifyProviders)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.RedisChannel = getEnv("REDIS_CHANNEL", cfg.RedisChannel)

	cfg.GmailClientID = getEnv("GMAIL_CLIENT_ID", cfg.GmailClientID)
	cfg.GmailClientSecret = getEnv("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret)
	cfg.GmailRedirectURI = getEnv("GMAIL_REDIRECT_URI", cfg.GmailRedirectURI)
	cfg.GmailRefreshToken = getEnv("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken)
	cfg.ReportFrom = getEnv("REPORT_FROM", cfg.ReportFrom)
	cfg.ReportTo = getEnvList("REPORT_TO", cfg.ReportTo)

	cfg.IMAPHost = getEnv("IMAP_HOST", cfg.IMAPHost)
	cfg.IMAPPort = getEnvInt("IMAP_PORT", cfg.IMAPPort)
	cfg.IMAPSecure = getEnvBool("IMAP_SECURE", cfg.IMAPSecure)
	cfg.IMAPUser = getEnv("IMAP_USER", cfg.IMAPUser)
	cfg.IMAPPassword = getEnv("IMAP_PASSWORD", cfg.IMAPPassword)
	cfg.IMAPMailbox = getEnv("IMAP_MAILBOX", cfg.IMAPMailbox)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config file not found: %s", path)
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

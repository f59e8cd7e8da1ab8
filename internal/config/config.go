package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "QUESTION_SCANNER_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DefaultTopics is the catalog a run picks its listing page from.
var DefaultTopics = []string{"python", "rust", "c#", "android", "html", "javascript"}

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Source        SourceConfig       `yaml:"source"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// DatabaseConfig describes the relational store.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"`
	DSN              string   `yaml:"dsn"`
	MaxOpenConns     int      `yaml:"maxOpenConns"`
	SkipMigrations   bool     `yaml:"skipMigrations"`
	StatementTimeout Duration `yaml:"statementTimeout"`
}

// SourceConfig describes the listing site and how much of it a run takes.
type SourceConfig struct {
	BaseURL      string   `yaml:"baseUrl"`
	Tab          string   `yaml:"tab"`
	Topics       []string `yaml:"topics"`
	MaxQuestions int      `yaml:"maxQuestions"`
	UserAgent    string   `yaml:"userAgent"`
	FetchTimeout Duration `yaml:"fetchTimeout"`
	MaxBodyBytes int64    `yaml:"maxBodyBytes"`
}

// SchedulerConfig defines when ingestion should run.
type SchedulerConfig struct {
	CronExpression string `yaml:"cronExpression"`
	Timezone       string `yaml:"timezone"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	tz := s.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
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

// Enabled reports whether both token and chat are configured.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads YAML configuration (if any), fills unset values from defaults
// and applies environment overrides. An empty path falls back to
// QUESTION_SCANNER_CONFIG, then to defaults only.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(configPathEnv)
	}

	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decodeYAML(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := mergo.Merge(&cfg, Default()); err != nil {
		return Config{}, fmt.Errorf("merge defaults: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.normalise()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(raw []byte, cfg *Config) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) normalise() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Source.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.Source.BaseURL), "/")

	topics := make([]string, 0, len(c.Source.Topics))
	seen := make(map[string]struct{}, len(c.Source.Topics))
	for _, t := range c.Source.Topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		topics = append(topics, t)
	}
	c.Source.Topics = topics
}

// Validate enforces the invariants the rest of the application relies on.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("database.driver must be %q or %q (got %q)", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn must be set")
	}
	if c.Database.StatementTimeout.Duration < 0 {
		return fmt.Errorf("database.statementTimeout must be >= 0 (got %s)", c.Database.StatementTimeout)
	}
	if _, err := url.ParseRequestURI(c.Source.BaseURL); err != nil {
		return fmt.Errorf("source.baseUrl is invalid: %w", err)
	}
	if len(c.Source.Topics) == 0 {
		return errors.New("source.topics must include at least one topic")
	}
	if c.Source.MaxQuestions <= 0 {
		return fmt.Errorf("source.maxQuestions must be > 0 (got %d)", c.Source.MaxQuestions)
	}
	if c.Source.FetchTimeout.Duration <= 0 {
		return fmt.Errorf("source.fetchTimeout must be > 0 (got %s)", c.Source.FetchTimeout)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone %q: %w", c.Scheduler.Timezone, err)
	}
	if c.Notifications.Telegram.BotToken != "" && c.Notifications.Telegram.ChatID == "" {
		return errors.New("notifications.telegram.chatId must be set when a bot token is configured")
	}
	return nil
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:           DriverSQLite,
			DSN:              "questions.db",
			MaxOpenConns:     4,
			StatementTimeout: DurationFrom(5 * time.Second),
		},
		Source: SourceConfig{
			BaseURL:      "https://stackoverflow.com",
			Tab:          "Votes",
			Topics:       append([]string(nil), DefaultTopics...),
			MaxQuestions: 10,
			UserAgent:    "QuestionScanner/1.0",
			FetchTimeout: DurationFrom(20 * time.Second),
			MaxBodyBytes: 5 * 1024 * 1024,
		},
		Scheduler: SchedulerConfig{CronExpression: "*/5 * * * *", Timezone: defaultTimezone},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}

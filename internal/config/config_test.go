package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{configPathEnv, databaseDSNEnv, databaseDriverEnv, telegramTokenEnv, telegramChatIDEnv, logLevelEnv} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, DriverSQLite, cfg.Database.Driver)
	require.Equal(t, 10, cfg.Source.MaxQuestions)
	require.Equal(t, DefaultTopics, cfg.Source.Topics)
	require.False(t, cfg.Notifications.Telegram.Enabled())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
database:
  driver: Postgres
  dsn: postgres://scanner@localhost/questions?sslmode=disable
  skipMigrations: true
  statementTimeout: 2s
source:
  baseUrl: https://stackoverflow.com/
  topics: [go, rust, go, " "]
  maxQuestions: 25
  fetchTimeout: 30
scheduler:
  cronExpression: "0 * * * *"
  timezone: UTC
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DriverPostgres, cfg.Database.Driver)
	require.True(t, cfg.Database.SkipMigrations)
	require.Equal(t, 2*time.Second, cfg.Database.StatementTimeout.Duration)
	require.Equal(t, 4, cfg.Database.MaxOpenConns)
	require.Equal(t, "https://stackoverflow.com", cfg.Source.BaseURL)
	require.Equal(t, []string{"go", "rust"}, cfg.Source.Topics)
	require.Equal(t, 25, cfg.Source.MaxQuestions)
	require.Equal(t, 30*time.Second, cfg.Source.FetchTimeout.Duration)
	require.Equal(t, "Votes", cfg.Source.Tab)
	require.Equal(t, "0 * * * *", cfg.Scheduler.CronExpression)
	require.Equal(t, time.UTC.String(), cfg.Scheduler.Location().String())
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "logging:\n  level: warn\n")
	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "/tmp/override.db")
	t.Setenv(telegramTokenEnv, "123:abc")
	t.Setenv(telegramChatIDEnv, "-100200")
	t.Setenv(logLevelEnv, "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "/tmp/override.db", cfg.Database.DSN)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.True(t, cfg.Notifications.Telegram.Enabled())
	require.Equal(t, "-100200", cfg.Notifications.Telegram.ChatID)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "database:\n  drvier: sqlite\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "drvier")
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"driver":          func(c *Config) { c.Database.Driver = "mysql" },
		"dsn":             func(c *Config) { c.Database.DSN = " " },
		"statement":       func(c *Config) { c.Database.StatementTimeout = DurationFrom(-time.Second) },
		"base url":        func(c *Config) { c.Source.BaseURL = "stackoverflow" },
		"topics":          func(c *Config) { c.Source.Topics = nil },
		"max questions":   func(c *Config) { c.Source.MaxQuestions = 0 },
		"fetch timeout":   func(c *Config) { c.Source.FetchTimeout = Duration{} },
		"timezone":        func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" },
		"telegram chatId": func(c *Config) { c.Notifications.Telegram.BotToken = "token" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	require.NoError(t, Default().Validate())
}

func TestDurationYAML(t *testing.T) {
	var v struct {
		A Duration `yaml:"a"`
		B Duration `yaml:"b"`
		C Duration `yaml:"c"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 1m30s\nb: 15\nc: 0.5\n"), &v))
	require.Equal(t, 90*time.Second, v.A.Duration)
	require.Equal(t, 15*time.Second, v.B.Duration)
	require.Equal(t, 500*time.Millisecond, v.C.Duration)

	require.Error(t, yaml.Unmarshal([]byte("a: soon\n"), &v))
	require.Error(t, yaml.Unmarshal([]byte("a: [1, 2]\n"), &v))

	out, err := yaml.Marshal(struct {
		A Duration `yaml:"a"`
	}{A: DurationFrom(2 * time.Minute)})
	require.NoError(t, err)
	require.Equal(t, "a: 2m0s\n", string(out))
	require.True(t, Duration{}.IsZero())
}

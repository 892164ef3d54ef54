package config

import (
	"os"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	ShelfCurrentlyReading = "currently-reading"
	ShelfRead             = "read"
	ShelfToRead           = "to-read"
)

type Config struct {
	DatabaseDebug       bool     `koanf:"database_debug"`
	DatabaseFilePath    string   `koanf:"database_file_path"`
	FrontendURL         string   `koanf:"frontend_url"`
	GoodreadsAPIKey     string   `koanf:"goodreads_api_key"`
	GoodreadsUserID     string   `koanf:"goodreads_user_id"`
	Hostname            string   `koanf:"hostname"`
	ServerHost          string   `koanf:"server_host"`
	ServerPort          int      `koanf:"server_port"`
	SyncIntervalMinutes int      `koanf:"sync_interval_minutes"`
	SyncMaxPages        int      `koanf:"sync_max_pages"`
	SyncPageSize        int      `koanf:"sync_page_size"`
	SyncShelves         []string `koanf:"sync_shelves"`

	// Tuning knobs that aren't exposed through the config file.
	DatabaseBusyTimeout       time.Duration `koanf:"-"`
	DatabaseConnectRetryCount int           `koanf:"-"`
	DatabaseConnectRetryDelay time.Duration `koanf:"-"`
	DatabaseMaxRetries        int           `koanf:"-"`
}

func defaultConfig() *Config {
	return &Config{
		ServerHost:          "0.0.0.0",
		ServerPort:          4380,
		SyncIntervalMinutes: 60,
		SyncMaxPages:        50,
		SyncPageSize:        200,
		SyncShelves: []string{
			ShelfCurrentlyReading,
			ShelfRead,
			ShelfToRead,
		},

		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseMaxRetries:        5,
	}
}

// New loads the config from an optional YAML file (CONFIG_FILE, defaulting to
// ./config.yaml) with plain environment variables layered on top, so e.g.
// DATABASE_FILE_PATH overrides database_file_path from the file.
func New() (*Config, error) {
	k := koanf.New(".")

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", configFile)
		}
	}

	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := defaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	if cfg.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		cfg.Hostname = hostname
	}

	if cfg.DatabaseFilePath == "" {
		return nil, missingRequired("DatabaseFilePath")
	}

	return cfg, nil
}

// NewForTest returns a config suitable for tests: an in-memory database and a
// loopback server address, no external credentials.
func NewForTest() *Config {
	cfg := defaultConfig()
	cfg.DatabaseFilePath = ":memory:"
	cfg.ServerHost = "127.0.0.1"
	cfg.ServerPort = 0
	cfg.Hostname = "test"
	return cfg
}

// RequireGoodreadsCredentials returns an error naming every missing credential.
// Syncing can't run without them; serving cached data can.
func (cfg *Config) RequireGoodreadsCredentials() error {
	missing := []string{}
	if cfg.GoodreadsUserID == "" {
		missing = append(missing, "GOODREADS_USER_ID")
	}
	if cfg.GoodreadsAPIKey == "" {
		missing = append(missing, "GOODREADS_API_KEY")
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func missingRequired(field string) error {
	snake := toSnakeCase(field)
	return errors.Errorf("missing required config: %s (%s)", strings.ToUpper(snake), snake)
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}

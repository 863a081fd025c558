// Package config loads tnll-dbtool settings from YAML, a Laravel-style .env
// file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ConfigVersionV1 = "v1"
)

// ErrNoDatabase is returned when neither the config nor the environment names a database
var ErrNoDatabase = errors.New("no database configured: set DATABASE_URL, DB_* variables or database in the config file")

// Config is the root of tnll-dbtool.yml
type Config struct {
	Version    string           `yaml:"version"`
	Database   DatabaseConfig   `yaml:"database"`
	Backup     BackupConfig     `yaml:"backup"`
	Import     ImportConfig     `yaml:"import"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Log        LogConfig        `yaml:"log"`
	Journal    JournalConfig    `yaml:"journal"`
}

type DatabaseConfig struct {
	URL            string        `yaml:"url"`
	Connection     string        `yaml:"connection"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Name           string        `yaml:"database"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
}

type BackupConfig struct {
	Dir       string `yaml:"dir"`
	Mysqldump string `yaml:"mysqldump"`
	Schedule  string `yaml:"schedule"`
	Keep      int    `yaml:"keep"`
}

type ImportConfig struct {
	MigrationsTable string   `yaml:"migrations_table"`
	SystemTables    []string `yaml:"system_tables"`
	MaxDumpSize     int64    `yaml:"max_dump_size"`
}

type MigrationsConfig struct {
	Dir        string `yaml:"dir"`
	Production bool   `yaml:"production"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type JournalConfig struct {
	RedisURL string `yaml:"redis_url"`
}

// Default returns the settings used when nothing overrides them
func Default() *Config {
	return &Config{
		Version: ConfigVersionV1,
		Database: DatabaseConfig{
			Connection:     "mysql",
			Port:           3306,
			MaxAttempts:    5,
			InitialBackoff: time.Second,
		},
		Backup: BackupConfig{
			Dir:       "storage/app/backups",
			Mysqldump: "mysqldump",
			Schedule:  "0 3 * * *",
			Keep:      14,
		},
		Import: ImportConfig{
			MigrationsTable: "migrations",
			SystemTables: []string{
				"migrations", "sessions", "cache", "cache_locks",
				"jobs", "job_batches", "failed_jobs", "password_reset_tokens",
			},
		},
		Migrations: MigrationsConfig{
			Dir: "database/migrations",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// Load reads the YAML file at path (skipped when empty) and the .env file at
// envFile (skipped when missing), then applies the process environment
func Load(path, envFile string) (*Config, error) {
	return load(path, envFile, os.LookupEnv)
}

func load(path, envFile string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		cfg.Version = ""
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		if err := validateVersion(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			dotenv = values
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version == "" {
		slog.Warn("No version specified in config, assuming " + ConfigVersionV1)
		cfg.Version = ConfigVersionV1
	}

	switch cfg.Version {
	case ConfigVersionV1:
		return nil
	default:
		return fmt.Errorf("unsupported config version: %s (supported: %s)", cfg.Version, ConfigVersionV1)
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("DATABASE_URL", &c.Database.URL)
	str("DB_CONNECTION", &c.Database.Connection)
	str("DB_HOST", &c.Database.Host)
	str("DB_DATABASE", &c.Database.Name)
	str("DB_USERNAME", &c.Database.Username)
	str("DB_PASSWORD", &c.Database.Password)
	str("REDIS_URL", &c.Journal.RedisURL)
	str("LOG_LEVEL", &c.Log.Level)
	str("BACKUP_DIR", &c.Backup.Dir)

	if v, ok := lookup("DB_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT %q: %w", v, err)
		}
		c.Database.Port = port
	}
	if v, ok := lookup("APP_ENV"); ok && strings.EqualFold(v, "production") {
		c.Migrations.Production = true
	}

	return nil
}

// ConnectionString returns the database URL, building one from the discrete
// DB_* fields when no URL is set
func (c *Config) ConnectionString() string {
	db := c.Database
	if db.URL != "" {
		return db.URL
	}

	switch strings.ToLower(db.Connection) {
	case "sqlite", "sqlite3":
		if db.Name == "" {
			return ""
		}
		return "sqlite://" + db.Name
	}

	if db.Host == "" || db.Name == "" {
		return ""
	}
	u := url.URL{
		Scheme: "mysql",
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   "/" + db.Name,
	}
	if db.Username != "" {
		if db.Password != "" {
			u.User = url.UserPassword(db.Username, db.Password)
		} else {
			u.User = url.User(db.Username)
		}
	}
	return u.String()
}

// Validate checks that a database target is present and numbers are sane
func (c *Config) Validate() error {
	if c.ConnectionString() == "" {
		return ErrNoDatabase
	}
	if c.Backup.Keep < 0 {
		return fmt.Errorf("backup.keep must not be negative, got %d", c.Backup.Keep)
	}
	if c.Database.MaxAttempts < 0 {
		return fmt.Errorf("database.max_attempts must not be negative, got %d", c.Database.MaxAttempts)
	}
	return nil
}

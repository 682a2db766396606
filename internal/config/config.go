package config

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	berrors "github.com/Aman-CERP/buscador/internal/errors"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config represents the complete buscador configuration.
type Config struct {
	Paths    PathsConfig    `yaml:"paths" json:"paths"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Index    IndexConfig    `yaml:"index" json:"index"`
	Search   SearchConfig   `yaml:"search" json:"search"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// PathsConfig locates the persisted index and the document root.
type PathsConfig struct {
	IndexDir     string `yaml:"index_dir" json:"index_dir"`
	DocumentsDir string `yaml:"documents_dir" json:"documents_dir"`
}

// DatabaseConfig configures the relational source.
// DSN, when set, wins over the individual connection fields.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Driver   string `yaml:"driver" json:"driver"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"-"`
	SSLMode  string `yaml:"sslmode" json:"sslmode"`
	Schema   string `yaml:"schema" json:"schema"`
	DSN      string `yaml:"dsn" json:"-"`
}

// IndexConfig tunes the index builder.
type IndexConfig struct {
	// BatchSize is the number of records per engine batch.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// Workers bounds concurrent file extraction. 0 means runtime.NumCPU().
	Workers int `yaml:"workers" json:"workers"`
	// LockTimeout is how long a build waits for the index lock.
	LockTimeout time.Duration `yaml:"lock_timeout" json:"lock_timeout"`
}

// SearchConfig tunes query execution and result shaping.
type SearchConfig struct {
	MaxResults           int `yaml:"max_results" json:"max_results"`
	MaxFragments         int `yaml:"max_fragments" json:"max_fragments"`
	FragmentSize         int `yaml:"fragment_size" json:"fragment_size"`
	FallbackSnippetChars int `yaml:"fallback_snippet_chars" json:"fallback_snippet_chars"`
	// CacheSize is the number of cached responses. 0 disables the cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr          string        `yaml:"addr" json:"addr"`
	WatchDebounce time.Duration `yaml:"watch_debounce" json:"watch_debounce"`
}

// LoggingConfig configures file logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	// File overrides the default log path (~/.buscador/logs/buscador.log).
	File string `yaml:"file" json:"file"`
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			IndexDir:     "../index",
			DocumentsDir: "../documents",
		},
		Database: DatabaseConfig{
			Enabled:  true,
			Driver:   DriverPostgres,
			Host:     "localhost",
			Port:     5432,
			Name:     "dbpostgrado3",
			User:     "postgres",
			Password: "postgres",
			SSLMode:  "disable",
			Schema:   "public",
		},
		Index: IndexConfig{
			BatchSize:   200,
			Workers:     runtime.NumCPU(),
			LockTimeout: 30 * time.Second,
		},
		Search: SearchConfig{
			MaxResults:           100,
			MaxFragments:         3,
			FragmentSize:         200,
			FallbackSnippetChars: 200,
			CacheSize:            256,
		},
		Server: ServerConfig{
			Addr:          ":3000",
			WatchDebounce: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// configFileNames are searched in order in the working directory.
var configFileNames = []string{"buscador.yaml", ".buscador.yaml", "buscador.yml", ".buscador.yml"}

// Load builds the configuration for a process started in dir.
//
// Precedence (lowest to highest):
//  1. Defaults
//  2. .env in dir (exported to the environment, never overriding it)
//  3. YAML file: explicit when non-empty, else the first of configFileNames in dir
//  4. Environment variables (INDEX_DIR, DB_HOST, BUSCADOR_LOG_LEVEL, ...)
func Load(dir, explicit string) (*Config, error) {
	cfg := NewConfig()

	envPath := filepath.Join(dir, ".env")
	if fileExists(envPath) {
		if err := godotenv.Load(envPath); err != nil {
			return nil, berrors.ConfigError("failed to load .env file", err).
				WithDetail("path", envPath)
		}
	}

	path, err := findConfigFile(dir, explicit)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile(dir, explicit string) (string, error) {
	if explicit != "" {
		if !fileExists(explicit) {
			return "", berrors.New(berrors.ErrCodeConfigNotFound, "config file not found", nil).
				WithDetail("path", explicit)
		}
		return explicit, nil
	}
	for _, name := range configFileNames {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p, nil
		}
	}
	return "", nil
}

// loadYAML decodes path over the current values, so absent keys keep theirs.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return berrors.ConfigError("failed to read config file", err).WithDetail("path", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return berrors.ConfigError("failed to parse config file", err).WithDetail("path", path)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
// Empty variables are ignored; malformed numbers keep the current value.
func (c *Config) applyEnvOverrides() {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	setString("INDEX_DIR", &c.Paths.IndexDir)
	setString("DOCUMENTS_DIR", &c.Paths.DocumentsDir)

	setString("DB_DRIVER", &c.Database.Driver)
	setString("DB_HOST", &c.Database.Host)
	setString("DB_NAME", &c.Database.Name)
	setString("DB_USER", &c.Database.User)
	setString("DB_PASSWORD", &c.Database.Password)
	setString("DB_SSLMODE", &c.Database.SSLMode)
	setString("DB_SCHEMA", &c.Database.Schema)
	setString("DB_DSN", &c.Database.DSN)
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.Database.Port = p
		}
	}
	if v := os.Getenv("DB_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Database.Enabled = b
		}
	}

	setString("BUSCADOR_LOG_LEVEL", &c.Logging.Level)
	setString("BUSCADOR_ADDR", &c.Server.Addr)
}

// Validate checks the configuration and returns a structured config error.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return berrors.ConfigError(fmt.Sprintf(format, args...), nil)
	}

	if strings.TrimSpace(c.Paths.IndexDir) == "" {
		return invalid("paths.index_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.DocumentsDir) == "" {
		return invalid("paths.documents_dir must not be empty")
	}

	if c.Database.Enabled {
		switch strings.ToLower(c.Database.Driver) {
		case DriverPostgres, DriverSQLite:
		default:
			return invalid("database.driver must be 'postgres' or 'sqlite', got %q", c.Database.Driver)
		}
		if c.Database.Port < 0 || c.Database.Port > 65535 {
			return invalid("database.port must be between 0 and 65535, got %d", c.Database.Port)
		}
	}

	if c.Index.BatchSize <= 0 {
		return invalid("index.batch_size must be positive, got %d", c.Index.BatchSize)
	}
	if c.Index.Workers < 0 {
		return invalid("index.workers must be non-negative, got %d", c.Index.Workers)
	}
	if c.Index.LockTimeout < 0 {
		return invalid("index.lock_timeout must be non-negative, got %s", c.Index.LockTimeout)
	}

	if c.Search.MaxResults <= 0 {
		return invalid("search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	if c.Search.MaxFragments < 0 {
		return invalid("search.max_fragments must be non-negative, got %d", c.Search.MaxFragments)
	}
	if c.Search.FragmentSize < 0 {
		return invalid("search.fragment_size must be non-negative, got %d", c.Search.FragmentSize)
	}
	if c.Search.FallbackSnippetChars <= 0 {
		return invalid("search.fallback_snippet_chars must be positive, got %d", c.Search.FallbackSnippetChars)
	}
	if c.Search.CacheSize < 0 {
		return invalid("search.cache_size must be non-negative, got %d", c.Search.CacheSize)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return invalid("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	return nil
}

// EffectiveWorkers returns the extraction worker count, resolving 0 to NumCPU.
func (c *IndexConfig) EffectiveWorkers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// ConnString returns the driver-specific connection string.
// For postgres it is a URL; for sqlite it is the database file path.
func (d *DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	if strings.ToLower(d.Driver) == DriverSQLite {
		return d.Name
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

// Redacted returns the connection target without credentials, for logs.
func (d *DatabaseConfig) Redacted() string {
	if strings.ToLower(d.Driver) == DriverSQLite {
		return d.ConnString()
	}
	if d.DSN != "" {
		if u, err := url.Parse(d.DSN); err == nil && u.Host != "" {
			return u.Redacted()
		}
		return "dsn"
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port)) + "/" + d.Name
}

// Redacted returns a copy with credentials masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Database.Password != "" {
		out.Database.Password = redactedValue
	}
	if out.Database.DSN != "" {
		out.Database.DSN = redactedValue
		if u, err := url.Parse(c.Database.DSN); err == nil && u.Host != "" {
			out.Database.DSN = u.Redacted()
		}
	}
	return &out
}

const redactedValue = "xxxxx"

// WriteYAML encodes the configuration as YAML to w.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

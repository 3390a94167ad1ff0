package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// this is a pointer so that if someone attempts to use it before loading it will
// panic and force them to load it first.
// it is also private so that it cannot be modified after loading.
var _loaded *Config

// Config is the main configuration structure
type Config struct {
	Common Common `yaml:"common"`
}

// Load loads the configuration following proper precedence: defaults → config file → environment variables
func Load() {
	// Start with defaults
	_loaded = &defaultConfig

	configFile := os.Getenv("FINWISE_CONFIG_FILE")
	if configFile == "" {
		configFile = "finwise.yaml"
	}

	if err := LoadFromFile(configFile); err != nil {
		log.Printf("Failed to load config file %s: %v, using defaults", configFile, err)
	}

	// Apply environment variable overrides (highest priority)
	ApplyEnvOverrides()
}

func LoadDefault() {
	config := defaultConfig
	_loaded = &config
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, merge YAML values over them
	cfg := defaultConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	_loaded = &cfg
	return nil
}

// set sane defaults for all of the config options. when loading the config from
// the file, any options that are not set will be set to these defaults.
var defaultConfig = Config{
	Common: Common{
		Log: logConfig{
			Level:  "info",
			Format: "json",
		},
		Http: httpConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Session: sessionConfig{
			DefaultTTLHours:        24,
			RememberMeTTLHours:     30 * 24,
			ExpiringSoonMinutes:    5,
			MonitorIntervalSeconds: 60,
		},
		Storage: storageConfig{
			Type: "file",
			File: fileConfig{
				Path: "finwise-session.json",
			},
			Postgres: postgresConfig{
				User:               "postgres",
				Password:           "postgres",
				Host:               "localhost",
				Port:               5432,
				Database:           "finwise",
				MaxOpenConnections: 10,
			},
		},
		Auth: authConfig{
			ReservedEmails: []string{
				"admin@example.com",
				"user@example.com",
				"test@example.com",
			},
		},
	},
}

type Common struct {
	Log     logConfig     `yaml:"log"`
	Http    httpConfig    `yaml:"http"`
	Session sessionConfig `yaml:"session"`
	Storage storageConfig `yaml:"storage"`
	Auth    authConfig    `yaml:"auth"`
}

type logConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type httpConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type sessionConfig struct {
	DefaultTTLHours        int `yaml:"default_ttl_hours"`        // session lifetime without remember-me
	RememberMeTTLHours     int `yaml:"remember_me_ttl_hours"`    // session lifetime with remember-me
	ExpiringSoonMinutes    int `yaml:"expiring_soon_minutes"`    // window for the expiry-proximity check
	MonitorIntervalSeconds int `yaml:"monitor_interval_seconds"` // background state re-derivation interval
}

func (c sessionConfig) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLHours) * time.Hour
}

func (c sessionConfig) RememberMeTTL() time.Duration {
	return time.Duration(c.RememberMeTTLHours) * time.Hour
}

func (c sessionConfig) ExpiringSoon() time.Duration {
	return time.Duration(c.ExpiringSoonMinutes) * time.Minute
}

func (c sessionConfig) MonitorInterval() time.Duration {
	return time.Duration(c.MonitorIntervalSeconds) * time.Second
}

type storageConfig struct {
	Type     string         `yaml:"type"` // "file", "postgres" or "memory"
	File     fileConfig     `yaml:"file"`
	Postgres postgresConfig `yaml:"postgres"`
}

type fileConfig struct {
	Path string `yaml:"path"`
}

type postgresConfig struct {
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Database           string `yaml:"database"`
	MaxOpenConnections int    `yaml:"max_open_connections"`
}

func (c postgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		url.QueryEscape(c.Database),
	)
}

type authConfig struct {
	ReservedEmails []string `yaml:"reserved_emails"` // emails the signup uniqueness check rejects
}

// there should be a getter for each top level field in the config struct.
// these getters will panic if the config has not been loaded.

func Logger() logConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Log
}

func Http() httpConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Http
}

func Session() sessionConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Session
}

func Storage() storageConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Storage
}

func Auth() authConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Auth
}

// Get returns the full configuration
func Get() *Config {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded
}

func ApplyEnvOverrides() {
	if _loaded == nil {
		return
	}

	if logLevel := os.Getenv("FINWISE_LOG_LEVEL"); logLevel != "" {
		_loaded.Common.Log.Level = logLevel
	}
	if logFormat := os.Getenv("FINWISE_LOG_FORMAT"); logFormat != "" {
		_loaded.Common.Log.Format = logFormat
	}

	if httpHost := os.Getenv("FINWISE_HTTP_HOST"); httpHost != "" {
		_loaded.Common.Http.Host = httpHost
	}
	if httpPort := os.Getenv("FINWISE_HTTP_PORT"); httpPort != "" {
		if port, err := strconv.Atoi(httpPort); err == nil {
			_loaded.Common.Http.Port = port
		}
	}

	if storageType := os.Getenv("FINWISE_STORAGE_TYPE"); storageType != "" {
		_loaded.Common.Storage.Type = storageType
	}
	if filePath := os.Getenv("FINWISE_SESSION_FILE"); filePath != "" {
		_loaded.Common.Storage.File.Path = filePath
	}

	if dbHost := os.Getenv("FINWISE_DB_HOST"); dbHost != "" {
		_loaded.Common.Storage.Postgres.Host = dbHost
	}
	if dbPort := os.Getenv("FINWISE_DB_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			_loaded.Common.Storage.Postgres.Port = port
		}
	}
	if dbUser := os.Getenv("FINWISE_DB_USER"); dbUser != "" {
		_loaded.Common.Storage.Postgres.User = dbUser
	}
	if dbPassword := os.Getenv("FINWISE_DB_PASSWORD"); dbPassword != "" {
		_loaded.Common.Storage.Postgres.Password = dbPassword
	}
	if dbName := os.Getenv("FINWISE_DB_NAME"); dbName != "" {
		_loaded.Common.Storage.Postgres.Database = dbName
	}

	if defaultTTL := os.Getenv("FINWISE_SESSION_DEFAULT_TTL_HOURS"); defaultTTL != "" {
		if hours, err := strconv.Atoi(defaultTTL); err == nil {
			_loaded.Common.Session.DefaultTTLHours = hours
		}
	}
	if rememberTTL := os.Getenv("FINWISE_SESSION_REMEMBER_ME_TTL_HOURS"); rememberTTL != "" {
		if hours, err := strconv.Atoi(rememberTTL); err == nil {
			_loaded.Common.Session.RememberMeTTLHours = hours
		}
	}
	if interval := os.Getenv("FINWISE_SESSION_MONITOR_INTERVAL_SECONDS"); interval != "" {
		if seconds, err := strconv.Atoi(interval); err == nil {
			_loaded.Common.Session.MonitorIntervalSeconds = seconds
		}
	}
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// DefaultAllowedOrigins are the front-end origins accepted when
// CORS_ALLOWED_ORIGINS is not set
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:8080",
	"http://127.0.0.1:5173",
	"https://asmswebtech.netlify.app",
}

type Config struct {
	Port string

	// DatabaseURL overrides the individual DB_* settings when set
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBName      string
	DBUser      string
	DBPassword  string
	DBSSLMode   string
	DBMaxConns  int32

	AllowedOrigins []string

	EnableMetrics  bool
	EnableSwagger  bool
	LogLevel       string
	Environment    string
	ImportMaxBytes int64
}

// Load reads configuration from the environment and an optional
// appsettings.yaml found in CONFIG_PATH (default ".").
func Load() *Config {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("db_dsn", "")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_name", "")
	v.SetDefault("db_user", "")
	v.SetDefault("db_password", "")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_max_conns", 10)
	v.SetDefault("cors_allowed_origins", strings.Join(DefaultAllowedOrigins, ","))
	v.SetDefault("enable_metrics", false)
	v.SetDefault("enable_swagger", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("environment", "development")
	v.SetDefault("import_max_bytes", 20<<20)
	v.AutomaticEnv()

	v.SetConfigName("appsettings")
	v.SetConfigType("yaml")
	v.AddConfigPath(getEnv("CONFIG_PATH", "."))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			logrus.WithError(err).Warn("ignoring unreadable appsettings file")
		}
	}

	return &Config{
		Port:           v.GetString("port"),
		DatabaseURL:    v.GetString("db_dsn"),
		DBHost:         v.GetString("db_host"),
		DBPort:         v.GetString("db_port"),
		DBName:         v.GetString("db_name"),
		DBUser:         v.GetString("db_user"),
		DBPassword:     v.GetString("db_password"),
		DBSSLMode:      v.GetString("db_sslmode"),
		DBMaxConns:     v.GetInt32("db_max_conns"),
		AllowedOrigins: originList(v, "cors_allowed_origins"),
		EnableMetrics:  v.GetBool("enable_metrics"),
		EnableSwagger:  v.GetBool("enable_swagger"),
		LogLevel:       v.GetString("log_level"),
		Environment:    v.GetString("environment"),
		ImportMaxBytes: v.GetInt64("import_max_bytes"),
	}
}

// Validate checks that the configuration can start a server
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		if c.DBHost == "" {
			return errors.New("DB_HOST is required when DB_DSN is not set")
		}
		if c.DBName == "" {
			return errors.New("DB_NAME is required when DB_DSN is not set")
		}
		if c.DBUser == "" {
			return errors.New("DB_USER is required when DB_DSN is not set")
		}
		if _, err := strconv.Atoi(c.DBPort); err != nil {
			return fmt.Errorf("DB_PORT must be numeric, got %q", c.DBPort)
		}
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %q", c.Port)
	}

	if c.DBMaxConns <= 0 {
		return errors.New("DB_MAX_CONNS must be positive")
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if len(c.AllowedOrigins) == 0 {
		return errors.New("CORS_ALLOWED_ORIGINS must list at least one origin")
	}
	for _, origin := range c.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("CORS_ALLOWED_ORIGINS: %q is not an http(s) origin", origin)
		}
	}

	if c.ImportMaxBytes <= 0 {
		return errors.New("IMPORT_MAX_BYTES must be positive")
	}

	if c.Environment == "production" && c.DatabaseURL == "" && c.DBPassword == "" {
		return errors.New("DB_PASSWORD must be set in production")
	}

	return nil
}

// LoadAndValidate loads the configuration and validates it
func LoadAndValidate() (*Config, error) {
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DSN returns the connection string used to open the pool
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   c.DBHost + ":" + c.DBPort,
		Path:   "/" + c.DBName,
	}
	q := url.Values{}
	q.Set("sslmode", c.DBSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// originList accepts either a comma separated string (environment) or a
// YAML sequence (appsettings)
func originList(v *viper.Viper, key string) []string {
	if raw, ok := v.Get(key).(string); ok {
		return splitList(raw)
	}
	return splitList(strings.Join(v.GetStringSlice(key), ","))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

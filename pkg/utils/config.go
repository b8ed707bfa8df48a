package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"shiori/pkg/database"
)

type Config struct {
	Server   ServerConfig    `toml:"server"`
	Database database.Config `toml:"database"`
	MangaDex MangaDexConfig  `toml:"mangadex"`
	Auth     AuthConfig      `toml:"auth"`
	Events   EventsConfig    `toml:"events"`
	Logging  LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr" validate:"required"`
	TrustedProxies []string `toml:"trusted_proxies"`
}

type MangaDexConfig struct {
	BaseURL   string `toml:"base_url" validate:"required,url"`
	UserAgent string `toml:"user_agent" validate:"required"`
	Timeout   string `toml:"timeout" validate:"required"` // e.g. "12s"
}

type AuthConfig struct {
	JWTSecret   string `toml:"jwt_secret" validate:"required,min=16"`
	JWTIssuer   string `toml:"jwt_issuer" validate:"required"`
	JWTTTLHours int    `toml:"jwt_ttl_hours" validate:"min=1,max=720"`
	// both empty disables the write guard
	AdminUsername     string `toml:"admin_username" validate:"required_with=AdminPasswordHash"`
	AdminPasswordHash string `toml:"admin_password_hash" validate:"required_with=AdminUsername"`
}

type EventsConfig struct {
	// empty disables the TCP event feed; /ws is always served
	TCPAddr string `toml:"tcp_addr"`
}

type LoggingConfig struct {
	Level  string `toml:"level" validate:"oneof=trace debug info warn error"`
	Format string `toml:"format" validate:"oneof=console json"`
}

func (c MangaDexConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 12 * time.Second
	}
	return d
}

func (c AuthConfig) JWTDuration() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			TrustedProxies: []string{"127.0.0.1"},
		},
		Database: database.DefaultConfig(),
		MangaDex: MangaDexConfig{
			BaseURL:   "https://api.mangadex.org",
			UserAgent: "shiori/1.0",
			Timeout:   "12s",
		},
		Auth: AuthConfig{
			// dev default (change for production)
			JWTSecret:   "dev-secret-change-me",
			JWTIssuer:   "shiori",
			JWTTTLHours: 24,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads defaults, then the TOML file at path (a missing file is not an
// error), then SHIORI_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SHIORI_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SHIORI_TRUSTED_PROXIES"); v != "" {
		cfg.Server.TrustedProxies = splitList(v)
	}
	if v := os.Getenv("SHIORI_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SHIORI_MANGADEX_BASE_URL"); v != "" {
		cfg.MangaDex.BaseURL = v
	}
	if v := os.Getenv("SHIORI_MANGADEX_USER_AGENT"); v != "" {
		cfg.MangaDex.UserAgent = v
	}
	if v := os.Getenv("SHIORI_MANGADEX_TIMEOUT"); v != "" {
		cfg.MangaDex.Timeout = v
	}
	if v := os.Getenv("SHIORI_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("SHIORI_JWT_ISSUER"); v != "" {
		cfg.Auth.JWTIssuer = v
	}
	if v := os.Getenv("SHIORI_JWT_TTL_HOURS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse SHIORI_JWT_TTL_HOURS: %w", err)
		}
		cfg.Auth.JWTTTLHours = n
	}
	if v := os.Getenv("SHIORI_ADMIN_USERNAME"); v != "" {
		cfg.Auth.AdminUsername = v
	}
	if v := os.Getenv("SHIORI_ADMIN_PASSWORD_HASH"); v != "" {
		cfg.Auth.AdminPasswordHash = v
	}
	if v, ok := os.LookupEnv("SHIORI_EVENTS_TCP_ADDR"); ok {
		cfg.Events.TCPAddr = v
	}
	if v := os.Getenv("SHIORI_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("SHIORI_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"github.com/phuslu/log"
)

type Config struct {
	Path string `toml:"path" validate:"required"`
	// milliseconds a writer waits on a locked database; 0 means 5000
	BusyTimeoutMS int `toml:"busy_timeout_ms" validate:"min=0"`
}

func (c Config) busyTimeout() int {
	if c.BusyTimeoutMS <= 0 {
		return 5000
	}
	return c.BusyTimeoutMS
}

func DefaultConfig() Config {
	// local default: ~/.shiori/data.db
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{
		Path: filepath.Join(home, ".shiori", "data.db"),
	}
}

func EnsureDataDir(cfg Config) error {
	if cfg.Path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(cfg.Path), 0o755)
}

func Open(cfg Config) (*sql.DB, error) {
	if err := EnsureDataDir(cfg); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if cfg.Path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

// dsn applies the connection pragmas through go-sqlite3 DSN parameters so
// that every pooled connection gets them, not just the first.
func dsn(cfg Config) string {
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	q.Set("_busy_timeout", strconv.Itoa(cfg.busyTimeout()))
	if cfg.Path != ":memory:" {
		q.Set("_journal_mode", "WAL")
	}
	return cfg.Path + "?" + q.Encode()
}

func MustOpen(cfg Config) *sql.DB {
	db, err := Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Path).Msg("failed to open db")
	}
	return db
}

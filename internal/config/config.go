package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFS     = "fs"
	BackendMemory = "memory"
)

var ErrUnknownBackend = errors.New("unknown storage backend")

// Config is read from HUNT_* environment variables; command-line flags
// override individual fields.
type Config struct {
	Addr            string        `env:"HUNT_ADDR" envDefault:":8080"`
	DataDir         string        `env:"HUNT_DATA_DIR" envDefault:"./data"`
	Backend         string        `env:"HUNT_BACKEND" envDefault:"sqlite"`
	CatalogPath     string        `env:"HUNT_CATALOG"`
	LogLevel        string        `env:"HUNT_LOG_LEVEL" envDefault:"info"`
	StrictAnswers   bool          `env:"HUNT_STRICT_ANSWERS" envDefault:"false"`
	SessionCookie   string        `env:"HUNT_SESSION_COOKIE" envDefault:"hunt_session"`
	ShutdownTimeout time.Duration `env:"HUNT_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case BackendSQLite, BackendFS, BackendMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level maps LogLevel onto a zap level: debug|info|warn|error.
func (c Config) Level() (zapcore.Level, error) {
	return zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(c.LogLevel)))
}

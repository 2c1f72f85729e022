package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"tradejournal/src/database"
)

// DefaultSessionSecret is the placeholder shipped in the env defaults.
const DefaultSessionSecret = "change-me"

var (
	ErrEmptySessionSecret   = errors.New("SESSION_SECRET is empty")
	ErrDefaultSessionSecret = errors.New("SESSION_SECRET is the default value; set it or enable DEV_MODE")
)

type Config struct {
	Port               string        `envconfig:"PORT" default:"9898"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"debug"` // "debug", "info", "warn", "error"
	LogFormat          string        `envconfig:"LOG_FORMAT" default:"text"` // "json" or "text"
	SessionSecret      string        `envconfig:"SESSION_SECRET" default:"change-me"`
	DevMode            bool          `envconfig:"DEV_MODE" default:"false"`
	SessionTTL         time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	CookieSecure       bool          `envconfig:"COOKIE_SECURE" default:"false"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}

// CheckSessionSecret refuses the placeholder secret unless the server runs in
// dev mode or on the local sqlite driver.
func (c *Config) CheckSessionSecret(dbDriver string) error {
	if c.SessionSecret == "" {
		return ErrEmptySessionSecret
	}
	if c.SessionSecret != DefaultSessionSecret || c.DevMode || dbDriver == database.DriverSQLite {
		return nil
	}
	return ErrDefaultSessionSecret
}

// Package config selects and constructs the database driver at runtime.
//
// Backend selection is a configuration concern, not a build variant: the
// same binary opens sqlite, mysql or postgres depending on the loaded
// configuration, and tests point the sqlite backend at ":memory:".
package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	// Registered database/sql backends.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/relic"
	"github.com/syssam/relic/dialect"
	"github.com/syssam/relic/dialect/sql"
)

// Config describes how to open the database.
type Config struct {
	// Dialect is one of sqlite, mysql or postgres. Defaults to sqlite.
	Dialect string `yaml:"dialect"`
	// DSN is the backend-specific data source name. Defaults to
	// ":memory:" for sqlite.
	DSN string `yaml:"dsn"`
	// Debug wraps the driver so every statement is logged through slog.
	Debug bool `yaml:"debug"`
	// SlowQueryThreshold enables statistics collection with slow-query
	// logging above the given duration.
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
}

// Load reads a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Dialect == "" {
		c.Dialect = dialect.SQLite
	}
	if c.DSN == "" && c.Dialect == dialect.SQLite {
		c.DSN = ":memory:"
	}
}

func (c *Config) validate() error {
	switch c.Dialect {
	case dialect.SQLite, dialect.MySQL, dialect.Postgres:
	default:
		return fmt.Errorf("%w: unknown dialect %q", relic.ErrConfiguration, c.Dialect)
	}
	if c.DSN == "" {
		return fmt.Errorf("%w: dsn is required for dialect %q", relic.ErrConfiguration, c.Dialect)
	}
	return nil
}

// Open opens the configured driver and verifies the connection is
// reachable.
func (c *Config) Open(ctx context.Context) (dialect.Driver, error) {
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	drv, err := sql.Open(c.Dialect, c.DSN)
	if err != nil {
		return nil, &relic.ConnectionError{Dialect: c.Dialect, Err: err}
	}
	if err := drv.Ping(ctx); err != nil {
		_ = drv.Close()
		return nil, &relic.ConnectionError{Dialect: c.Dialect, Err: err}
	}
	var out dialect.Driver = drv
	if c.SlowQueryThreshold > 0 {
		out = dialect.NewStatsDriver(out,
			dialect.WithSlowThreshold(c.SlowQueryThreshold),
			dialect.WithSlowQueryLog(),
		)
	}
	if c.Debug {
		out = dialect.Debug(out)
	}
	return out, nil
}

// Package config defines the connection and server configuration for
// pgtestkit, plus the functional options used to customize a kit instance.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/viper"
)

// Config describes the PostgreSQL server that ephemeral test databases are
// provisioned on. By default this is an externally managed server reachable
// at Host:Port; with WithEmbeddedServer a dedicated embedded instance is
// started instead and the same fields describe it.
type Config struct {
	Host     string // Server host. Defaults to "localhost".
	Port     uint32 // Server port. 0 means pick a random free port (embedded mode only).
	Database string // Administrative database used for CREATE/DROP DATABASE. Must not be empty.
	Username string // Privileged user able to create and drop databases. Must not be empty.
	Password string // Password for Username. May be empty for trust/peer auth.

	// Embedded server settings, ignored unless WithEmbeddedServer is used.
	Version       PostgresVersion   // PostgreSQL version to run. Defaults to V16_4.
	BinariesPath  string            // Optional path to existing postgres binaries. If empty, downloads.
	StartTimeout  time.Duration     // How long to wait for the server to start. Default 15s.
	RawLog        *os.File          // Where to write raw postgres output. Default os.Stderr. Nil discards.
	StartupParams map[string]string // Additional server parameters for postgresql.conf.

	DSNParams    map[string]string // Additional parameters appended to every DSN (e.g. "search_path=public").
	KeepDatabase bool              // If true, the ephemeral database is not dropped on teardown.
	TxOptions    pgx.TxOptions     // Transaction options for the per-test isolation boundary.
}

// Validate checks that the fields required to reach a server are set.
func (c *Config) Validate() error {
	var errs []string
	if c.Database == "" {
		errs = append(errs, "Database must not be empty")
	}
	if c.Username == "" {
		errs = append(errs, "Username must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, ", "))
	}
	return nil
}

// DefaultConfig returns a configuration pointing at a conventional local
// PostgreSQL server.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         5432,
		Database:     "postgres",
		Username:     "postgres",
		Password:     "postgres",
		Version:      V16_4,
		StartTimeout: 15 * time.Second,
		RawLog:       os.Stderr,
	}
}

// FromEnv builds a Config from the standard PG* environment variables
// (PGHOST, PGPORT, PGUSER, PGPASSWORD, PGDATABASE), falling back to the
// usual local defaults for anything unset. The result is an explicit value;
// nothing reads the environment after this call.
func FromEnv() (Config, error) {
	v := viper.New()
	v.SetDefault("PGHOST", "localhost")
	v.SetDefault("PGPORT", 5432)
	v.SetDefault("PGUSER", "postgres")
	v.SetDefault("PGPASSWORD", "")
	v.SetDefault("PGDATABASE", "postgres")
	for _, key := range []string{"PGHOST", "PGPORT", "PGUSER", "PGPASSWORD", "PGDATABASE"} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("failed to bind environment variable %s: %w", key, err)
		}
	}

	port := v.GetInt("PGPORT")
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid PGPORT value %d", port)
	}

	cfg := DefaultConfig()
	cfg.Host = v.GetString("PGHOST")
	cfg.Port = uint32(port)
	cfg.Username = v.GetString("PGUSER")
	cfg.Password = v.GetString("PGPASSWORD")
	cfg.Database = v.GetString("PGDATABASE")
	return cfg, nil
}

// DSN constructs a connection string for the database named in the Config.
// Note: assumes Port has been assigned (either initially or randomly).
func (c *Config) DSN() string {
	return c.DSNFor(c.Database)
}

// DSNFor constructs a connection string for an arbitrary database on the
// configured server, carrying over credentials and DSNParams.
func (c *Config) DSNFor(database string) string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	baseDSN := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Username,
		c.Password,
		host,
		c.Port,
		database,
	)

	if len(c.DSNParams) > 0 {
		var params []string
		for k, v := range c.DSNParams {
			params = append(params, fmt.Sprintf("%s=%s", k, v))
		}
		return baseDSN + "&" + strings.Join(params, "&")
	}

	return baseDSN
}

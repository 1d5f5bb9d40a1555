// Package persistence provides an opt-in SQL-backed snapshot store that
// tails a team store's subscription feed and writes deterministic snapshots
// without ever owning scheduling: one schema, three drivers, dialect-specific
// placeholders only where the driver demands it.
package persistence

import "fmt"

// Config describes how to open a SnapshotStore's backing database.
type Config struct {
	Driver   string // "postgres", "mysql", or "sqlite"
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// SetDefaults fills in unset fields with sane values for local development.
func (c *Config) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.Database == "" && c.Driver == "sqlite" {
		c.Database = "flowteam.db"
	}
	if c.MaxConns <= 0 {
		c.MaxConns = 10
	}
	if c.MaxIdle <= 0 {
		c.MaxIdle = 5
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
}

// Validate checks that the configuration names a supported dialect and
// carries the fields that dialect requires.
func (c *Config) Validate() error {
	switch c.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("persistence: unsupported driver %q (supported: postgres, mysql, sqlite)", c.Driver)
	}
	if c.Driver != "sqlite" && c.Database == "" {
		return fmt.Errorf("persistence: database name is required for %s", c.Driver)
	}
	return nil
}

// ConnectionString builds the DSN database/sql expects for the configured
// dialect.
func (c *Config) ConnectionString() string {
	switch c.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
			c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", c.Username, c.Password, c.Host, c.Port, c.Database)
	default: // sqlite
		return c.Database
	}
}

package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "DB_DRIVER", "MYSQL_HOST", "REDIS_DB", "IDEMPOTENCY_TTL_SECONDS", "VOTE_SWEEP_CRON"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.AppPort != "8080" || c.DBDriver != DriverMySQL || c.MySQLHost != "mysql" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.IdempotencyTTL() != 5*time.Minute {
		t.Fatalf("idempotency ttl = %v", c.IdempotencyTTL())
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("WORKER_CONCURRENCY", "not-a-number")

	c := Load()
	if c.DSN() != "/tmp/x.db" {
		t.Fatalf("sqlite dsn = %q", c.DSN())
	}
	if c.RedisDB != 3 {
		t.Fatalf("redis db = %d", c.RedisDB)
	}
	if c.WorkerConcurrency != 10 {
		t.Fatalf("bad int must keep default, got %d", c.WorkerConcurrency)
	}
}

func TestMySQLDSN(t *testing.T) {
	c := &Config{MySQLUser: "u", MySQLPass: "p", MySQLHost: "db", MySQLPort: "3307", MySQLDB: "vsla", DBDriver: DriverMySQL}
	got := c.DSN()
	if !strings.HasPrefix(got, "u:p@tcp(db:3307)/vsla?") || !strings.Contains(got, "parseTime=true") {
		t.Fatalf("dsn = %q", got)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			AppPort: "8080", DBDriver: DriverMySQL,
			MySQLHost: "mysql", MySQLPort: "3306", MySQLDB: "vsla", MySQLUser: "vsla",
			RedisAddr: "redis:6379", IdempTTLSecs: 300, WorkerConcurrency: 4,
			VoteSweepCron: "@every 1m", OverdueSweepCron: "0 1 * * *",
		}
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"ok", func(c *Config) {}, ""},
		{"no port", func(c *Config) { c.AppPort = "" }, "APP_PORT"},
		{"bad driver", func(c *Config) { c.DBDriver = "postgres" }, "DB_DRIVER"},
		{"missing mysql host", func(c *Config) { c.MySQLHost = "" }, "MySQL"},
		{"bad mysql port", func(c *Config) { c.MySQLPort = "abc" }, "MYSQL_PORT"},
		{"sqlite without path", func(c *Config) { c.DBDriver = DriverSQLite; c.SQLitePath = "" }, "SQLITE_PATH"},
		{"sqlite ignores mysql", func(c *Config) { c.DBDriver = DriverSQLite; c.SQLitePath = "x.db"; c.MySQLHost = "" }, ""},
		{"no redis", func(c *Config) { c.RedisAddr = "" }, "REDIS_ADDR"},
		{"zero ttl", func(c *Config) { c.IdempTTLSecs = 0 }, "IDEMPOTENCY_TTL_SECONDS"},
		{"zero workers", func(c *Config) { c.WorkerConcurrency = 0 }, "WORKER_CONCURRENCY"},
		{"bad cron", func(c *Config) { c.VoteSweepCron = "every minute" }, "VOTE_SWEEP_CRON"},
		{"disabled sweep", func(c *Config) { c.OverdueSweepCron = "" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("want error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

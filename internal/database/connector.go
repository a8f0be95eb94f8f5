package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type ConnConfig struct {
	Driver        string
	DSN           string
	LogLevel      logger.LogLevel
	SlowThreshold time.Duration
}

func DefaultConnConfig() *ConnConfig {
	return &ConnConfig{
		Driver:        DriverSQLite,
		DSN:           "todolist.db?_busy_timeout=10000",
		LogLevel:      logger.Warn,
		SlowThreshold: 200 * time.Millisecond,
	}
}

// Connector hands out one short-lived connection per storage operation.
// Nothing is pooled between operations: every Open dials the engine and the
// caller must Release the handle when done.
type Connector struct {
	config *ConnConfig
	log    *zap.Logger

	opened   int64
	released int64
	failures int64
}

func NewConnector(config *ConnConfig, log *zap.Logger) (*Connector, error) {
	if config == nil {
		return nil, errors.New("connection config is required")
	}
	if config.DSN == "" {
		return nil, errors.New("database DSN is empty")
	}
	if config.Driver != DriverSQLite && config.Driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Connector{config: config, log: log}, nil
}

func (c *Connector) Driver() string {
	return c.config.Driver
}

// Open dials a new connection limited to a single underlying session.
func (c *Connector) Open(ctx context.Context) (*gorm.DB, error) {
	dialector, err := c.dialector()
	if err != nil {
		atomic.AddInt64(&c.failures, 1)
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(c.log, c.config.LogLevel, c.config.SlowThreshold),
	})
	if err != nil {
		atomic.AddInt64(&c.failures, 1)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		atomic.AddInt64(&c.failures, 1)
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		atomic.AddInt64(&c.failures, 1)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	atomic.AddInt64(&c.opened, 1)
	return db.WithContext(ctx), nil
}

// Release closes a handle returned by Open.
func (c *Connector) Release(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	atomic.AddInt64(&c.released, 1)
	return sqlDB.Close()
}

func (c *Connector) Health(ctx context.Context) error {
	db, err := c.Open(ctx)
	if err != nil {
		return err
	}
	return c.Release(db)
}

func (c *Connector) Stats() map[string]interface{} {
	return map[string]interface{}{
		"driver":   c.config.Driver,
		"opened":   atomic.LoadInt64(&c.opened),
		"released": atomic.LoadInt64(&c.released),
		"failures": atomic.LoadInt64(&c.failures),
	}
}

func (c *Connector) dialector() (gorm.Dialector, error) {
	switch c.config.Driver {
	case DriverPostgres:
		return postgres.Open(c.config.DSN), nil
	default:
		if err := ensureSQLiteDir(c.config.DSN); err != nil {
			return nil, fmt.Errorf("failed to prepare database directory: %w", err)
		}
		return sqlite.Open(c.config.DSN), nil
	}
}

func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0755)
}

// ParseLogLevel maps config strings onto gorm log levels. Unknown values
// fall back to Warn.
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

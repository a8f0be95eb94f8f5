package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Redis     RedisConfig     `json:"redis" yaml:"redis"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

type ServerConfig struct {
	Host         string        `json:"host" yaml:"host"`
	Port         string        `json:"port" yaml:"port"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	Environment  string        `json:"environment" yaml:"environment"`
	CORSOrigins  []string      `json:"cors_origins" yaml:"cors_origins"`
}

// DatabaseConfig describes where tasks are stored. For sqlite, Path is the
// database file; for postgres, DSN is used as-is.
type DatabaseConfig struct {
	Driver      string        `json:"driver" yaml:"driver"`
	Path        string        `json:"path" yaml:"path"`
	DSN         string        `json:"dsn" yaml:"dsn"`
	BusyTimeout time.Duration `json:"busy_timeout" yaml:"busy_timeout"`
	LogLevel    string        `json:"log_level" yaml:"log_level"`
}

// CacheConfig controls the read cache. The in-process level is not
// invalidated by other processes writing the same database; with Redis its
// entries live at most LocalTTL.
type CacheConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	TTL      time.Duration `json:"ttl" yaml:"ttl"`
	LocalTTL time.Duration `json:"local_ttl" yaml:"local_ttl"`
}

type RedisConfig struct {
	Enabled      bool          `json:"enabled" yaml:"enabled"`
	Host         string        `json:"host" yaml:"host"`
	Port         string        `json:"port" yaml:"port"`
	Password     string        `json:"password" yaml:"password"`
	DB           int           `json:"db" yaml:"db"`
	PoolSize     int           `json:"pool_size" yaml:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns"`
	MaxRetries   int           `json:"max_retries" yaml:"max_retries"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
}

type RateLimitConfig struct {
	Enabled        bool `json:"enabled" yaml:"enabled"`
	RequestsPerMin int  `json:"requests_per_minute" yaml:"requests_per_minute"`
	BurstSize      int  `json:"burst_size" yaml:"burst_size"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// Defaults returns the configuration used when neither a config file nor
// environment variables say otherwise.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "localhost",
			Port:         "8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			Environment:  "development",
			CORSOrigins:  []string{"*"},
		},
		Database: DatabaseConfig{
			Driver:      "sqlite",
			Path:        "todolist.db",
			BusyTimeout: 10 * time.Second,
			LogLevel:    "warn",
		},
		Cache: CacheConfig{
			Enabled:  false,
			TTL:      10 * time.Minute,
			LocalTTL: 5 * time.Second,
		},
		Redis: RedisConfig{
			Enabled:      false,
			Host:         "localhost",
			Port:         "6379",
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 5,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 600,
			BurstSize:      50,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file named
// by CONFIG_FILE (if any), then environment variables.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(os.Getenv("CONFIG_FILE"))
}

// LoadConfigFrom is LoadConfig with an explicit config file path. An empty
// path skips the file.
func LoadConfigFrom(path string) (*Config, error) {
	config := Defaults()

	if path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	s := &config.Server
	s.Host = getEnv("HOST", s.Host)
	s.Port = getEnv("PORT", s.Port)
	s.ReadTimeout = getEnvAsDuration("READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvAsDuration("WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvAsDuration("IDLE_TIMEOUT", s.IdleTimeout)
	s.Environment = getEnv("ENVIRONMENT", s.Environment)

	d := &config.Database
	d.Driver = getEnv("DB_DRIVER", d.Driver)
	d.Path = getEnv("DB_PATH", d.Path)
	d.DSN = getEnv("DB_DSN", d.DSN)
	d.BusyTimeout = getEnvAsDuration("DB_BUSY_TIMEOUT", d.BusyTimeout)
	d.LogLevel = getEnv("DB_LOG_LEVEL", d.LogLevel)

	c := &config.Cache
	c.Enabled = getEnvAsBool("CACHE_ENABLED", c.Enabled)
	c.TTL = getEnvAsDuration("CACHE_TTL", c.TTL)
	c.LocalTTL = getEnvAsDuration("CACHE_LOCAL_TTL", c.LocalTTL)

	r := &config.Redis
	r.Enabled = getEnvAsBool("REDIS_ENABLED", r.Enabled)
	r.Host = getEnv("REDIS_HOST", r.Host)
	r.Port = getEnv("REDIS_PORT", r.Port)
	r.Password = getEnv("REDIS_PASSWORD", r.Password)
	r.DB = getEnvAsInt("REDIS_DB", r.DB)
	r.PoolSize = getEnvAsInt("REDIS_POOL_SIZE", r.PoolSize)
	r.MinIdleConns = getEnvAsInt("REDIS_MIN_IDLE_CONNS", r.MinIdleConns)
	r.MaxRetries = getEnvAsInt("REDIS_MAX_RETRIES", r.MaxRetries)
	r.DialTimeout = getEnvAsDuration("REDIS_DIAL_TIMEOUT", r.DialTimeout)
	r.ReadTimeout = getEnvAsDuration("REDIS_READ_TIMEOUT", r.ReadTimeout)
	r.WriteTimeout = getEnvAsDuration("REDIS_WRITE_TIMEOUT", r.WriteTimeout)

	rl := &config.RateLimit
	rl.Enabled = getEnvAsBool("RATE_LIMIT_ENABLED", rl.Enabled)
	rl.RequestsPerMin = getEnvAsInt("RATE_LIMIT_RPM", rl.RequestsPerMin)
	rl.BurstSize = getEnvAsInt("RATE_LIMIT_BURST", rl.BurstSize)

	config.Log.Level = getEnv("LOG_LEVEL", config.Log.Level)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database busy timeout must not be negative")
	}

	if c.Cache.TTL < 0 || c.Cache.LocalTTL < 0 {
		return fmt.Errorf("cache TTLs must not be negative")
	}

	return nil
}

// GetDatabaseDSN returns the DSN handed to the gorm dialector.
func (c *Config) GetDatabaseDSN() string {
	if c.Database.Driver == "postgres" {
		return c.Database.DSN
	}
	path := c.Database.Path
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return fmt.Sprintf("%s?_busy_timeout=%d", path, c.Database.BusyTimeout.Milliseconds())
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, config)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

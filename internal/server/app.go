package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tugasku/internal/cache"
	"tugasku/internal/config"
	"tugasku/internal/database"
	"tugasku/internal/monitoring"
	"tugasku/internal/repositories"
	"tugasku/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// App is the fully wired task tracker.
type App struct {
	Config    *config.Config
	Connector *database.Connector
	Store     *repositories.Store
	Gate      *services.SchemaGate
	Tasks     services.TaskService
	Router    *gin.Engine

	cache *cache.MultiLevelCache
	log   *zap.Logger
}

func NewConnector(cfg *config.Config, log *zap.Logger) (*database.Connector, error) {
	connConfig := database.DefaultConnConfig()
	connConfig.Driver = cfg.Database.Driver
	connConfig.DSN = cfg.GetDatabaseDSN()
	connConfig.LogLevel = database.ParseLogLevel(cfg.Database.LogLevel)
	return database.NewConnector(connConfig, log)
}

func NewApp(cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	connector, err := NewConnector(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("database connector: %w", err)
	}

	store := repositories.NewStore(connector, log)
	gate := services.NewSchemaGate(store)
	var tasks services.TaskService = services.NewTaskService(store, gate, log)

	health := monitoring.NewHealthChecker()
	health.Register("database", connector.Health)
	health.Register("schema", func(ctx context.Context) error {
		return gate.Ready(ctx)
	})

	app := &App{
		Config:    cfg,
		Connector: connector,
		Store:     store,
		Gate:      gate,
		log:       log,
	}

	if cfg.Cache.Enabled {
		app.cache = newCache(cfg, log)
		tasks = services.NewCachedTaskService(tasks, app.cache, cfg.Cache.TTL, log)
		if cfg.Redis.Enabled {
			health.Register("cache", app.cache.Health)
		}
	}
	app.Tasks = tasks

	app.Router = NewRouter(RouterDeps{
		Config: cfg,
		Tasks:  tasks,
		Health: health,
		Stats:  app.stats,
		Log:    log,
	})
	return app, nil
}

func newCache(cfg *config.Config, log *zap.Logger) *cache.MultiLevelCache {
	var l2 cache.Cache
	if cfg.Redis.Enabled {
		redisConfig := cache.DefaultRedisConfig()
		redisConfig.Addr = cfg.GetRedisAddr()
		redisConfig.Password = cfg.Redis.Password
		redisConfig.DB = cfg.Redis.DB
		redisConfig.PoolSize = cfg.Redis.PoolSize
		redisConfig.MinIdleConns = cfg.Redis.MinIdleConns
		redisConfig.MaxRetries = cfg.Redis.MaxRetries
		redisConfig.DialTimeout = cfg.Redis.DialTimeout
		redisConfig.ReadTimeout = cfg.Redis.ReadTimeout
		redisConfig.WriteTimeout = cfg.Redis.WriteTimeout
		l2 = cache.NewRedisCache(redisConfig)
		log.Info("redis cache enabled", zap.String("addr", redisConfig.Addr))
	}
	return cache.NewMultiLevelCache(cache.NewMemoryCache(localTTL(cfg)), l2, nil, log)
}

// localTTL bounds in-process entries. With Redis the shared level is the one
// other instances invalidate, so local copies are kept short.
func localTTL(cfg *config.Config) time.Duration {
	if !cfg.Redis.Enabled || cfg.Cache.LocalTTL <= 0 {
		return cfg.Cache.TTL
	}
	if cfg.Cache.TTL > 0 && cfg.Cache.TTL < cfg.Cache.LocalTTL {
		return cfg.Cache.TTL
	}
	return cfg.Cache.LocalTTL
}

func (a *App) stats() gin.H {
	stats := gin.H{
		"database": a.Connector.Stats(),
		"schema":   gin.H{"ready": a.Gate.IsReady()},
	}
	if a.cache != nil {
		stats["cache"] = a.cache.Stats()
	}
	return stats
}

func (a *App) Close() error {
	if a.cache != nil {
		return a.cache.Close()
	}
	return nil
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests for up to the write timeout.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.Config.GetServerAddr(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server listening", zap.String("addr", srv.Addr), zap.String("environment", a.Config.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(a.Config.Server.WriteTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func shutdownTimeout(write time.Duration) time.Duration {
	if write <= 0 {
		return 10 * time.Second
	}
	return write
}

package server

import (
	"tugasku/internal/config"
	"tugasku/internal/handlers"
	"tugasku/internal/middleware"
	"tugasku/internal/monitoring"
	"tugasku/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Config *config.Config
	Tasks  services.TaskService
	Health *monitoring.HealthChecker
	// Stats contributes extra sections to the JSON metrics view.
	Stats func() gin.H
	Log   *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.RecoveryWithLog(deps.Log),
		middleware.RequestLogger(deps.Log),
		middleware.CORS(deps.Config.Server.CORSOrigins),
		monitoring.MetricsMiddleware(),
	)
	if deps.Config.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(deps.Config.RateLimit.RequestsPerMin, deps.Config.RateLimit.BurstSize)
		router.Use(limiter.Middleware())
	}

	router.GET("/health", deps.Health.HealthHandler())
	router.GET("/ready", deps.Health.ReadinessHandler())
	router.GET("/live", deps.Health.LivenessHandler())
	router.GET("/metrics", monitoring.MetricsHandler(deps.Stats))
	router.GET("/metrics/prometheus", monitoring.PrometheusHandler())

	tasks := handlers.NewTaskHandler(deps.Tasks, deps.Log)
	group := router.Group("/tasks")
	{
		group.POST("", tasks.CreateTask)
		group.GET("", tasks.GetTasks)
		group.GET("/table", tasks.GetTaskTable)
		group.GET("/count", tasks.CountTasks)
		group.GET("/summary", tasks.Summary)
		group.GET("/options", tasks.Options)
		group.GET("/:id", tasks.GetTaskByID)
		group.PUT("/:id", tasks.UpdateTask)
		group.DELETE("/:id", tasks.DeleteTask)
		group.POST("/:id/complete", tasks.MarkComplete)
	}

	return router
}

// Package router wires the HTTP routes to their handlers.
package router

import (
	"shopops/internal/handler"
	"shopops/internal/i18n"
	"shopops/internal/middleware"
	"shopops/internal/types"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with the full middleware chain.
func NewRouter(
	serverHandler *handler.Server,
	configManager types.ConfigManager,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Logger(configManager.GetLogConfig()))
	router.Use(middleware.CORS(configManager.GetCORSConfig()))
	router.Use(middleware.RateLimiter(configManager.GetPerformanceConfig()))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerSystemRoutes(router, serverHandler)
	registerAPIRoutes(router, serverHandler, configManager)

	return router
}

func registerSystemRoutes(router *gin.Engine, serverHandler *handler.Server) {
	router.GET("/health", serverHandler.Health)
}

func registerAPIRoutes(
	router *gin.Engine,
	serverHandler *handler.Server,
	configManager types.ConfigManager,
) {
	api := router.Group("/api")
	api.Use(i18n.Middleware())
	api.Use(middleware.Auth(configManager.GetAuthConfig()))

	rules := api.Group("/rules")
	{
		rules.POST("", serverHandler.CreateRule)
		rules.POST("/bulk", serverHandler.BulkCreateRules)
		rules.GET("", serverHandler.ListRules)
		rules.PUT("/:id/budget", serverHandler.UpdateRuleBudget)
		rules.DELETE("/:id", serverHandler.DeactivateRule)
	}

	jobs := api.Group("/clone-jobs")
	{
		jobs.POST("", serverHandler.ScheduleCloneJob)
		jobs.GET("", serverHandler.ListCloneJobs)
		jobs.POST("/:id/run", serverHandler.RunCloneJob)
		jobs.POST("/:id/requeue", serverHandler.RequeueCloneJob)
		jobs.PUT("/:id/schedule", serverHandler.UpdateCloneJobSchedule)
		jobs.DELETE("/:id", serverHandler.CancelCloneJob)
	}

	sync := api.Group("/sync")
	{
		sync.GET("/status", serverHandler.GetSyncStatus)
		sync.GET("/progress", serverHandler.GetSyncProgress)
		sync.POST("/ensure-fresh", serverHandler.EnsureFresh)
		sync.POST("/trigger", serverHandler.TriggerSync)
	}

	logs := api.Group("/logs")
	{
		logs.GET("", serverHandler.ListLogs)
		logs.GET("/export", serverHandler.ExportLogs)
	}

	api.POST("/scheduler/process-due", serverHandler.ProcessDue)
}

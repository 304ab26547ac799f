package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"fairshare/internal/handler"
	"fairshare/pkg/otel"
)

// Pinger reports store readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(
	projectHandler *handler.ProjectHandler,
	moduleHandler *handler.ModuleHandler,
	store Pinger,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), RequestLogger(logger))

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			logger.Warn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	projects := r.Group("/projects")
	{
		projects.GET("", projectHandler.ListProjects)
		projects.POST("", projectHandler.CreateProject)
		projects.GET("/:id", projectHandler.GetProject)
		projects.DELETE("/:id", projectHandler.DeleteProject)
		projects.POST("/:id/members", projectHandler.AddMember)
		projects.POST("/:id/modules", projectHandler.AddModule)
		projects.DELETE("/:id/modules/:moduleID", projectHandler.DeleteModule)
		projects.GET("/:id/report", projectHandler.GetReport)
	}

	modules := r.Group("/modules")
	{
		modules.GET("/:id", moduleHandler.GetModule)
		modules.PATCH("/:id", moduleHandler.EditModule)
		modules.POST("/:id/complete", moduleHandler.CompleteModule)
		modules.POST("/:id/updates", moduleHandler.AddUpdate)
	}

	return r
}

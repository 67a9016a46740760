package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"profiler-pipeline/internal/pkg/logger"
)

// Dependencies bundles everything the HTTP surface needs.
type Dependencies struct {
	Agent    *AgentHandler
	FollowUp *FollowUpHandler
	Logo     *LogoHandler
	Session  *SessionHandler
	Logger   *logger.Logger
}

// SetupRouter builds the gin engine with the full API surface.
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(deps.Logger))

	router.GET("/health", deps.Session.HandleHealth)

	api := router.Group("/api")
	{
		api.POST("/agent", deps.Agent.HandleTurn)
		api.POST("/agent/service-lines", deps.FollowUp.HandleGenerate)
		api.POST("/logo", deps.Logo.HandleResolve)
		api.DELETE("/session/:id", deps.Session.HandleClear)
		api.POST("/contact", deps.Session.HandleSaveContact)
		api.GET("/contact/:email", deps.Session.HandleGetContact)
	}

	return router
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()

		log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(startTime).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

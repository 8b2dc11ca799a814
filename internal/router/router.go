package router

import (
	"time"

	"github.com/blues/escrow/internal/escrow"
	"github.com/blues/escrow/internal/handler"
	"github.com/blues/escrow/internal/logger"
	"github.com/gin-gonic/gin"
)

func Setup(engine *escrow.Engine, clock escrow.Clock) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(requestLogger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "escrow-service",
		})
	})

	v1 := r.Group("/api/v1")
	{
		projectHandler := handler.NewProjectHandler(engine.Registry, clock)
		ledgerHandler := handler.NewLedgerHandler(engine.Ledger)

		projects := v1.Group("/projects")
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.GetProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.GET("/:id/contributions", ledgerHandler.GetContributions)
			projects.GET("/:id/contributions/:donor", ledgerHandler.GetContribution)
			projects.GET("/:id/events", ledgerHandler.GetEvents)
			projects.POST("/:id/donations", ledgerHandler.Donate)
			projects.POST("/:id/settlement", ledgerHandler.Settle)
			projects.POST("/:id/refunds", ledgerHandler.Refund)
		}
	}

	return r
}

// requestLogger writes one line per request through the service logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

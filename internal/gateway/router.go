package gateway

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/knet-ai/research-client/internal/logger"
)

// requestIDMiddleware tags every request with an id for log correlation.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = logger.GenerateRequestID()
		}
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// NewRouter builds the gin router serving the presentation layer.
func NewRouter(handler *Handler, corsAllowedOrigins string) *gin.Engine {
	router := gin.Default()

	router.Use(requestIDMiddleware())

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", corsAllowedOrigins)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/session", handler.GetSession)

		api.GET("/conversations", handler.ListConversations)
		api.POST("/conversations", handler.NewConversation)
		api.POST("/conversations/:id/select", handler.SelectConversation)
		api.DELETE("/conversations/:id", handler.DeleteConversation)
		api.DELETE("/conversations", handler.DeleteAllConversations)

		api.POST("/messages", handler.SendMessage)
		api.GET("/messages/:id/sources", handler.GetSources)
		api.GET("/messages/:id/graph", handler.GetGraph)

		api.POST("/research/abort", handler.AbortResearch)
		api.GET("/research/options", handler.GetOptions)
		api.PUT("/research/options", handler.PutOptions)
	}

	return router
}

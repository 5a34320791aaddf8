package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dianabombi/student-advisor-sub002/internal/chat"
)

// SetupMetricsRoutes exposes the chat quality counters for dashboards.
func SetupMetricsRoutes(router *gin.Engine, metrics *chat.Metrics) {
	group := router.Group("/metrics")

	group.GET("/chat", func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.Snapshot())
	})

	group.POST("/chat/reset", func(c *gin.Context) {
		metrics.Reset()
		c.JSON(http.StatusOK, gin.H{"message": "metrics reset"})
	})
}

package routes

import (
	"github.com/gin-gonic/gin"

	"civicsync/controllers"
	"civicsync/middlewares"
	"civicsync/models"
)

// AnalyticsRoutes exposes the policy dashboard to think tank users.
func AnalyticsRoutes(r *gin.Engine, ac *controllers.AnalyticsController, authenticated gin.HandlerFunc) {
	analytics := r.Group("/api/analytics",
		authenticated,
		middlewares.RequireRole(string(models.RoleThinkTank)))
	{
		analytics.GET("/summary", ac.GetSummary)
		analytics.GET("/export.csv", ac.ExportCSV)
		analytics.POST("/report", ac.GenerateReport)
		analytics.GET("/ws", ac.Stream)
	}
}

package routes

import (
	"github.com/gin-gonic/gin"

	"civicsync/controllers"
	"civicsync/middlewares"
	"civicsync/models"
)

// IssueRoutes sets up the issue routes. Creation is rate limited by limiter;
// responses are restricted to municipality staff.
func IssueRoutes(r *gin.Engine, ic *controllers.IssueController, authenticated, limiter gin.HandlerFunc) {
	issues := r.Group("/api/issues", authenticated)
	{
		issues.GET("", ic.GetAllIssues)
		issues.POST("", limiter, ic.CreateIssue)
		issues.GET("/mine", ic.GetIssuesByUser)
		issues.POST("/media", ic.UploadIssueMedia)
		issues.GET("/:id", ic.GetIssue)
		issues.PUT("/:id", ic.UpdateIssue)
		issues.DELETE("/:id", ic.DeleteIssue)
		issues.POST("/:id/upvote", ic.ToggleUpvote)
		issues.POST("/:id/response",
			middlewares.RequireRole(string(models.RoleMunicipality)),
			ic.RespondToIssue)
	}
}

package routes

import (
	"github.com/gin-gonic/gin"

	"civicsync/controllers"
)

// UserRoutes serves the signed-in user's profile.
func UserRoutes(r *gin.Engine, uc *controllers.UserController, authenticated gin.HandlerFunc) {
	users := r.Group("/api/users", authenticated)
	{
		users.GET("/me", uc.GetMe)
		users.PUT("/me", uc.UpdateProfile)
	}
}

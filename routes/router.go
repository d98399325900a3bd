package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"civicsync/config"
	"civicsync/controllers"
	"civicsync/middlewares"
)

// Controllers bundles every handler group mounted by NewRouter.
type Controllers struct {
	Auth      *controllers.AuthController
	Users     *controllers.UserController
	Issues    *controllers.IssueController
	Analytics *controllers.AnalyticsController
}

// NewRouter builds the HTTP surface. counter backs the per-user issue limit.
func NewRouter(cfg *config.Config, ctrl Controllers, counter middlewares.LimitCounter) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	}
	r.Use(cors.New(corsConfig))

	authenticated := middlewares.AuthMiddleware(cfg.JWTSecret)
	limiter := middlewares.IssueRateLimiter(counter, cfg.IssueLimitQueue, cfg.IssueDailyLimit)

	AuthRoutes(r, ctrl.Auth)
	UserRoutes(r, ctrl.Users, authenticated)
	IssueRoutes(r, ctrl.Issues, authenticated, limiter)
	AnalyticsRoutes(r, ctrl.Analytics, authenticated)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

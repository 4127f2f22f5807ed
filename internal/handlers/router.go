package handlers

import (
	"time"

	"taskie/backend/internal/config"
	"taskie/backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterDeps collects everything the HTTP surface needs. Optional pieces
// (cache stats, job queue) may be nil; the handlers degrade accordingly.
type RouterDeps struct {
	Config      *config.Config
	Auth        *AuthHandler
	Tasks       *TaskHandler
	Members     *MemberHandler
	Status      *StatusHandler
	Metrics     gin.HandlerFunc
	RateLimiter *middleware.RateLimiter
}

// NewRouter builds the gin engine with the full middleware chain and all
// routes mounted.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.RecoveryWithLog())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if deps.Metrics != nil {
		router.Use(deps.Metrics)
	}
	if deps.Config.RateLimit.Enabled {
		limiter := deps.RateLimiter
		if limiter == nil {
			limiter = middleware.NewRateLimiter(deps.Config.RateLimit.RequestsPerSec, deps.Config.RateLimit.BurstSize)
		}
		router.Use(limiter.Middleware())
	}

	api := router.Group("/api")
	api.POST("/auth/login", deps.Auth.Login)
	api.GET("/health", deps.Status.GetHealth)

	authorized := api.Group("/")
	authorized.Use(middleware.Authz(deps.Config.Auth.JWTSecret))
	{
		authorized.GET("/tasks", deps.Tasks.GetTasks)
		authorized.POST("/tasks", deps.Tasks.CreateTask)
		authorized.PUT("/tasks/:id", deps.Tasks.UpdateTask)
		authorized.DELETE("/tasks/:id", deps.Tasks.DeleteTask)
		authorized.POST("/tasks/:id/move", deps.Tasks.MoveTask)
		authorized.GET("/tasks/board", deps.Tasks.GetBoard)
		authorized.GET("/analytics/summary", deps.Tasks.GetAnalytics)

		authorized.GET("/members", deps.Members.GetMembers)
		authorized.POST("/members", deps.Members.CreateMember)
		authorized.PUT("/members/:id", deps.Members.UpdateMember)
		authorized.DELETE("/members/:id", deps.Members.DeleteMember)

		authorized.POST("/reports/email", deps.Status.EmailReport)
		authorized.GET("/status", deps.Status.GetStatus)
	}

	return router
}

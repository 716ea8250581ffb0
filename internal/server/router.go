package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gracepointe/growthtrack-backend/internal/handlers"
	"github.com/gracepointe/growthtrack-backend/internal/middleware"
)

type RouterConfig struct {
	AllowOrigins      []string
	AuthHandler       *handlers.AuthHandler
	AuthMiddleware    *middleware.AuthMiddleware
	PersonHandler     *handlers.PersonHandler
	GroupHandler      *handlers.GroupHandler
	MilestoneHandler  *handlers.MilestoneHandler
	ProgressHandler   *handlers.ProgressHandler
	AttendanceHandler *handlers.AttendanceHandler
	AdminHandler      *handlers.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	api := router.Group("/api")
	api.POST("/login", cfg.AuthHandler.Login)

	// Protected
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	// Operators
	protected.POST("/users", cfg.AuthHandler.CreateOperator)

	// People
	protected.POST("/people", cfg.PersonHandler.Register)
	protected.GET("/people", cfg.PersonHandler.List)
	protected.GET("/people/:id", cfg.PersonHandler.Get)
	protected.PATCH("/people/:id", cfg.PersonHandler.Update)
	protected.DELETE("/people/:id", cfg.PersonHandler.Delete)

	// Progress ledger
	protected.GET("/people/:id/progress", cfg.ProgressHandler.Get)
	protected.GET("/people/:id/progress/rate", cfg.ProgressHandler.CompletionRate)
	protected.PUT("/people/:id/progress", cfg.ProgressHandler.Upsert)
	protected.POST("/people/:id/progress/ensure", cfg.ProgressHandler.EnsureComplete)

	// Attendance
	protected.POST("/people/:id/attendance", cfg.AttendanceHandler.Record)
	protected.GET("/people/:id/attendance", cfg.AttendanceHandler.List)
	protected.POST("/people/:id/attendance/recompute", cfg.AttendanceHandler.Recompute)
	protected.DELETE("/attendance/:record_id", cfg.AttendanceHandler.Delete)

	// Groups
	protected.POST("/groups", cfg.GroupHandler.Create)
	protected.GET("/groups", cfg.GroupHandler.List)
	protected.GET("/groups/:id", cfg.GroupHandler.Get)
	protected.PATCH("/groups/:id", cfg.GroupHandler.Update)
	protected.DELETE("/groups/:id", cfg.GroupHandler.Delete)

	// Milestone catalog
	protected.GET("/milestones", cfg.MilestoneHandler.List)
	protected.POST("/milestones", cfg.MilestoneHandler.Create)
	protected.PATCH("/milestones/:id", cfg.MilestoneHandler.Update)
	protected.DELETE("/milestones/:id", cfg.MilestoneHandler.Delete)

	// Reconciliation jobs
	protected.POST("/admin/reconcile/backfill", cfg.AdminHandler.Backfill)
	protected.POST("/admin/reconcile/attendance-sync", cfg.AdminHandler.AttendanceSync)
	protected.POST("/admin/reconcile/group-rollover", cfg.AdminHandler.GroupRollover)
	protected.POST("/admin/reconcile/orphan-repair", cfg.AdminHandler.OrphanRepair)

	return router
}

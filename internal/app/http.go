package app

import (
	"github.com/gin-gonic/gin"

	"github.com/gracepointe/growthtrack-backend/internal/handlers"
	"github.com/gracepointe/growthtrack-backend/internal/middleware"
	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
	"github.com/gracepointe/growthtrack-backend/internal/server"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

type Handlers struct {
	Auth       *handlers.AuthHandler
	Person     *handlers.PersonHandler
	Group      *handlers.GroupHandler
	Milestone  *handlers.MilestoneHandler
	Progress   *handlers.ProgressHandler
	Attendance *handlers.AttendanceHandler
	Admin      *handlers.AdminHandler
}

func wireHandlers(log *logger.Logger, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:       handlers.NewAuthHandler(s.Auth),
		Person:     handlers.NewPersonHandler(s.Person),
		Group:      handlers.NewGroupHandler(s.Group),
		Milestone:  handlers.NewMilestoneHandler(s.Catalog),
		Progress:   handlers.NewProgressHandler(s.Ledger),
		Attendance: handlers.NewAttendanceHandler(s.Attendance),
		Admin:      handlers.NewAdminHandler(s.Reconcile),
	}
}

func wireMiddleware(log *logger.Logger, s Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log, s.Auth),
	}
}

func wireRouter(cfg Config, h Handlers, mw Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AllowOrigins:      cfg.AllowOrigins,
		AuthHandler:       h.Auth,
		AuthMiddleware:    mw.Auth,
		PersonHandler:     h.Person,
		GroupHandler:      h.Group,
		MilestoneHandler:  h.Milestone,
		ProgressHandler:   h.Progress,
		AttendanceHandler: h.Attendance,
		AdminHandler:      h.Admin,
	})
}

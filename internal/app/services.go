package app

import (
	"gorm.io/gorm"

	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
	"github.com/gracepointe/growthtrack-backend/internal/services"
)

type Services struct {
	Auth       services.AuthService
	Catalog    services.CatalogService
	Ledger     services.LedgerService
	Attendance services.AttendanceService
	Person     services.PersonService
	Group      services.GroupService
	Reconcile  services.ReconcileService
	Notifier   services.Notifier
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients) Services {
	log.Info("Wiring services...")

	notifier := services.NewNotifier(log, c.SMS)
	ledger := services.NewLedgerService(db, log, r.Person, r.Progress, r.Milestone, notifier)

	return Services{
		Auth:     services.NewAuthService(db, log, r.User, r.Group, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		Catalog:  services.NewCatalogService(db, log, r.Milestone, r.Progress, c.CatalogCache),
		Ledger:   ledger,
		Notifier: notifier,
		Attendance: services.NewAttendanceService(
			db, log, r.Person, r.Attendance, r.Progress, r.Milestone, ledger, notifier, cfg.AttendanceGoal),
		Person: services.NewPersonService(
			db, log, r.Person, r.Group, r.Progress, r.Attendance, r.Audit, ledger, notifier),
		Group: services.NewGroupService(db, log, r.Group, r.Person, r.User),
		Reconcile: services.NewReconcileService(
			db, log, r.Person, r.Group, r.Milestone, r.Progress, r.Attendance, r.Audit, ledger, cfg.AttendanceGoal),
	}
}

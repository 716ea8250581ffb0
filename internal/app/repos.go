package app

import (
	"gorm.io/gorm"

	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
	"github.com/gracepointe/growthtrack-backend/internal/repos"
)

type Repos struct {
	Person     repos.PersonRepo
	Group      repos.GroupRepo
	Milestone  repos.MilestoneRepo
	Progress   repos.ProgressRepo
	Attendance repos.AttendanceRepo
	User       repos.UserRepo
	Audit      repos.AuditRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Person:     repos.NewPersonRepo(db, log),
		Group:      repos.NewGroupRepo(db, log),
		Milestone:  repos.NewMilestoneRepo(db, log),
		Progress:   repos.NewProgressRepo(db, log),
		Attendance: repos.NewAttendanceRepo(db, log),
		User:       repos.NewUserRepo(db, log),
		Audit:      repos.NewAuditRepo(db, log),
	}
}

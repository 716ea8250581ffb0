package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gracepointe/growthtrack-backend/internal/clients/twilio"
	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
	"github.com/gracepointe/growthtrack-backend/internal/repos"
	"github.com/gracepointe/growthtrack-backend/internal/requestdata"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

func newTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s-%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// one connection: concurrent tests block on the pool instead of tripping
	// sqlite's table locks
	if sqlDB, err := gdb.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := gdb.AutoMigrate(
		&types.User{},
		&types.Group{},
		&types.Person{},
		&types.MilestoneDefinition{},
		&types.ProgressRecord{},
		&types.AttendanceRecord{},
		&types.AuditLog{},
	); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

// fakeGateway records every SMS instead of sending it.
type fakeGateway struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeGateway) SendSMS(ctx context.Context, to, body string) (*twilio.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, body)
	return &twilio.Message{SID: "SM-test", To: to, Body: body, Status: "queued"}, nil
}

func (f *fakeGateway) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// smsCount waits for in-flight dispatches, then reports how many messages the
// fake gateway saw.
func (env *testEnv) smsCount() int {
	env.notifier.Flush()
	return env.gateway.count()
}

type testEnv struct {
	db             *gorm.DB
	personRepo     repos.PersonRepo
	groupRepo      repos.GroupRepo
	milestoneRepo  repos.MilestoneRepo
	progressRepo   repos.ProgressRepo
	attendanceRepo repos.AttendanceRepo
	userRepo       repos.UserRepo
	auditRepo      repos.AuditRepo

	gateway    *fakeGateway
	notifier   Notifier
	catalog    CatalogService
	ledger     LedgerService
	attendance AttendanceService
	person     PersonService
	group      GroupService
	reconcile  ReconcileService
	auth       AuthService
}

func newTestEnv(t *testing.T, name string, goal int) *testEnv {
	t.Helper()

	gdb := newTestDB(t, name)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}

	env := &testEnv{
		db:             gdb,
		personRepo:     repos.NewPersonRepo(gdb, log),
		groupRepo:      repos.NewGroupRepo(gdb, log),
		milestoneRepo:  repos.NewMilestoneRepo(gdb, log),
		progressRepo:   repos.NewProgressRepo(gdb, log),
		attendanceRepo: repos.NewAttendanceRepo(gdb, log),
		userRepo:       repos.NewUserRepo(gdb, log),
		auditRepo:      repos.NewAuditRepo(gdb, log),
		gateway:        &fakeGateway{},
	}

	notifier := NewNotifier(log, env.gateway)
	env.notifier = notifier
	env.catalog = NewCatalogService(gdb, log, env.milestoneRepo, env.progressRepo, nil)
	env.ledger = NewLedgerService(gdb, log, env.personRepo, env.progressRepo, env.milestoneRepo, notifier)
	env.attendance = NewAttendanceService(
		gdb, log, env.personRepo, env.attendanceRepo, env.progressRepo, env.milestoneRepo, env.ledger, notifier, goal)
	env.person = NewPersonService(
		gdb, log, env.personRepo, env.groupRepo, env.progressRepo, env.attendanceRepo, env.auditRepo, env.ledger, notifier)
	env.group = NewGroupService(gdb, log, env.groupRepo, env.personRepo, env.userRepo)
	env.reconcile = NewReconcileService(
		gdb, log, env.personRepo, env.groupRepo, env.milestoneRepo, env.progressRepo, env.attendanceRepo,
		env.auditRepo, env.ledger, goal)
	env.auth = NewAuthService(gdb, log, env.userRepo, env.groupRepo, "test-secret", time.Hour)
	return env
}

// seedCatalog inserts stages 1..n with the last one attendance-derived when
// withAuto is set.
func (env *testEnv) seedCatalog(t *testing.T, n int, withAuto bool) []*types.MilestoneDefinition {
	t.Helper()
	defs := make([]*types.MilestoneDefinition, 0, n)
	for i := 1; i <= n; i++ {
		def := &types.MilestoneDefinition{
			StageNumber: i,
			Name:        fmt.Sprintf("Stage %d", i),
			AutoDerived: withAuto && i == n,
			Active:      true,
		}
		if err := env.db.Create(def).Error; err != nil {
			t.Fatalf("failed to seed milestone %d: %v", i, err)
		}
		defs = append(defs, def)
	}
	return defs
}

func (env *testEnv) seedGroup(t *testing.T, name string, year int) *types.Group {
	t.Helper()
	group := &types.Group{Name: name, Year: year}
	if err := env.db.Create(group).Error; err != nil {
		t.Fatalf("failed to seed group %q: %v", name, err)
	}
	return group
}

func (env *testEnv) seedPerson(t *testing.T, firstName string, groupID *uuid.UUID) *types.Person {
	t.Helper()
	person := &types.Person{FirstName: firstName, LastName: "Doe", GroupID: groupID}
	if err := env.db.Create(person).Error; err != nil {
		t.Fatalf("failed to seed person %q: %v", firstName, err)
	}
	return person
}

func superadminCtx() context.Context {
	return requestdata.WithPrincipal(context.Background(), &requestdata.Principal{
		UserID: uuid.New(),
		Role:   types.RoleSuperAdmin,
	})
}

func leadPastorCtx() context.Context {
	return requestdata.WithPrincipal(context.Background(), &requestdata.Principal{
		UserID: uuid.New(),
		Role:   types.RoleLeadPastor,
	})
}

func adminCtx(groupID *uuid.UUID) context.Context {
	return requestdata.WithPrincipal(context.Background(), &requestdata.Principal{
		UserID:  uuid.New(),
		Role:    types.RoleAdmin,
		GroupID: groupID,
	})
}

func leaderCtx(groupID *uuid.UUID) context.Context {
	return requestdata.WithPrincipal(context.Background(), &requestdata.Principal{
		UserID:  uuid.New(),
		Role:    types.RoleLeader,
		GroupID: groupID,
	})
}

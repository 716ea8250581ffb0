package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/gracepointe/growthtrack-backend/internal/platform/envutil"
	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := envutil.String("POSTGRES_HOST", "localhost")
	postgresPort := envutil.String("POSTGRES_PORT", "5432")
	postgresUser := envutil.String("POSTGRES_USER", "postgres")
	postgresPassword := envutil.String("POSTGRES_PASSWORD", "")
	postgresName := envutil.String("POSTGRES_NAME", "growthtrack")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...", "host", postgresHost, "database", postgresName)
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		log.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := conn.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: conn, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.Group{},
		&types.Person{},
		&types.MilestoneDefinition{},
		&types.ProgressRecord{},
		&types.AttendanceRecord{},
		&types.AuditLog{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	constraints := []struct {
		table, name, sql string
	}{
		{"person", "fk_person_group_id",
			`FOREIGN KEY ("group_id") REFERENCES "group"("id") ON DELETE SET NULL`},
		{"app_user", "fk_app_user_group_id",
			`FOREIGN KEY ("group_id") REFERENCES "group"("id") ON DELETE SET NULL`},
		{"group", "fk_group_leader_id",
			`FOREIGN KEY ("leader_id") REFERENCES "app_user"("id") ON DELETE SET NULL`},
		{"progress_record", "fk_progress_record_person_id",
			`FOREIGN KEY ("person_id") REFERENCES "person"("id") ON DELETE CASCADE`},
		{"attendance_record", "fk_attendance_record_person_id",
			`FOREIGN KEY ("person_id") REFERENCES "person"("id") ON DELETE CASCADE`},
	}
	for _, c := range constraints {
		drop := fmt.Sprintf(`ALTER TABLE %q DROP CONSTRAINT IF EXISTS %q`, c.table, c.name)
		if err := s.db.Exec(drop).Error; err != nil {
			return fmt.Errorf("failed to drop %s: %w", c.name, err)
		}
		add := fmt.Sprintf(`ALTER TABLE %q ADD CONSTRAINT %q %s`, c.table, c.name, c.sql)
		if err := s.db.Exec(add).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", c.name, err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}

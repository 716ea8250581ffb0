package db

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm/clause"

	"github.com/gracepointe/growthtrack-backend/internal/platform/envutil"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

type milestoneSeed struct {
	StageNumber int    `yaml:"stage_number"`
	Name        string `yaml:"name"`
	ShortName   string `yaml:"short_name"`
	AutoDerived bool   `yaml:"auto_derived"`
}

type seedFile struct {
	Milestones []milestoneSeed `yaml:"milestones"`
}

// SeedMilestones loads the catalog seed named by MILESTONES_FILE and inserts
// any stage not already present. Existing stages are never overwritten, so
// the seed can run on every boot.
func (s *PostgresService) SeedMilestones() error {
	path := envutil.String("MILESTONES_FILE", "")
	if path == "" {
		s.log.Debug("MILESTONES_FILE not set, skipping milestone seed")
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read milestone seed file: %w", err)
	}
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("failed to parse milestone seed file: %w", err)
	}

	var inserted int
	for _, seed := range file.Milestones {
		if seed.StageNumber <= 0 || strings.TrimSpace(seed.Name) == "" {
			return fmt.Errorf("invalid milestone seed entry: stage=%d name=%q", seed.StageNumber, seed.Name)
		}
		row := &types.MilestoneDefinition{
			StageNumber: seed.StageNumber,
			Name:        strings.TrimSpace(seed.Name),
			ShortName:   seed.ShortName,
			AutoDerived: seed.AutoDerived,
			Active:      true,
		}
		res := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stage_number"}},
			DoNothing: true,
		}).Create(row)
		if res.Error != nil {
			return fmt.Errorf("failed to seed milestone stage %d: %w", seed.StageNumber, res.Error)
		}
		inserted += int(res.RowsAffected)
	}
	s.log.Info("Milestone seed applied", "file", path, "defined", len(file.Milestones), "inserted", inserted)
	return nil
}

// SeedSuperadmin bootstraps the first operator account from SUPERADMIN_EMAIL
// and SUPERADMIN_PASSWORD. A no-op when the email already exists or the vars
// are unset.
func (s *PostgresService) SeedSuperadmin() error {
	email := strings.ToLower(strings.TrimSpace(envutil.String("SUPERADMIN_EMAIL", "")))
	password := envutil.String("SUPERADMIN_PASSWORD", "")
	if email == "" || password == "" {
		s.log.Debug("SUPERADMIN_EMAIL/SUPERADMIN_PASSWORD not set, skipping operator seed")
		return nil
	}

	var n int64
	if err := s.db.Model(&types.User{}).Where("lower(email) = ?", email).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check for existing superadmin: %w", err)
	}
	if n > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash superadmin password: %w", err)
	}
	user := &types.User{
		Email:     email,
		Password:  string(hash),
		FirstName: "Super",
		LastName:  "Admin",
		Role:      types.RoleSuperAdmin,
	}
	if err := s.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create superadmin: %w", err)
	}
	s.log.Info("Superadmin seeded", "email", email)
	return nil
}

package repos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
	"github.com/gracepointe/growthtrack-backend/internal/scope"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

type PersonRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.Person) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Person, error)
	List(ctx context.Context, tx *gorm.DB, f scope.Filters) ([]*types.Person, error)
	ListIDsPage(ctx context.Context, tx *gorm.DB, offset, limit int) ([]uuid.UUID, error)
	ListOrphaned(ctx context.Context, tx *gorm.DB) ([]*types.Person, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.Person) error
	Lock(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	CountByGroupID(ctx context.Context, tx *gorm.DB, groupID uuid.UUID) (int64, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
	HardDelete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type personRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPersonRepo(db *gorm.DB, baseLog *logger.Logger) PersonRepo {
	repoLog := baseLog.With("repo", "PersonRepo")
	return &personRepo{db: db, log: repoLog}
}

func (r *personRepo) Create(ctx context.Context, tx *gorm.DB, row *types.Person) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (r *personRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Person, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Person
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *personRepo) List(ctx context.Context, tx *gorm.DB, f scope.Filters) ([]*types.Person, error) {
	results := []*types.Person{}
	if f.Empty {
		return results, nil
	}
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.Person{})
	if f.GroupID != nil {
		q = q.Where("group_id = ?", *f.GroupID)
	}
	if f.Year != 0 {
		q = q.Where(`group_id IN (SELECT id FROM "group" WHERE year = ?)`, f.Year)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		q = q.Where("lower(first_name) LIKE ? OR lower(last_name) LIKE ?", pattern, pattern)
	}
	if err := q.Order("last_name, first_name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *personRepo) ListIDsPage(ctx context.Context, tx *gorm.DB, offset, limit int) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.Person{}).
		Order("id").
		Offset(offset).
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *personRepo) ListOrphaned(ctx context.Context, tx *gorm.DB) ([]*types.Person, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Person
	if err := transaction.WithContext(ctx).
		Where("group_id IS NULL AND group_name <> ''").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *personRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Person) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(row).Error
}

// Lock takes a row lock on the person inside tx so writers that derive state
// from the person's event rows serialize. Written as a self-update rather
// than SELECT FOR UPDATE so the same statement locks on Postgres and sqlite.
func (r *personRepo) Lock(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Exec("UPDATE person SET id = id WHERE id = ?", id).Error
}

func (r *personRepo) CountByGroupID(ctx context.Context, tx *gorm.DB, groupID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(ctx).
		Model(&types.Person{}).
		Where("group_id = ?", groupID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *personRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(ctx).Model(&types.Person{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// HardDelete removes the person row permanently. Progress and attendance rows
// are deleted in the same transaction by the owning service, not left to
// store-level cascades, so sqlite test databases behave like production.
func (r *personRepo) HardDelete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Unscoped().
		Where("id = ?", id).
		Delete(&types.Person{}).Error
}

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

type GroupRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.Group) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Group, error)
	GetByNameYear(ctx context.Context, tx *gorm.DB, name string, year int) (*types.Group, error)
	GetByNameLoose(ctx context.Context, tx *gorm.DB, name string) (*types.Group, error)
	List(ctx context.Context, tx *gorm.DB, f scope.Filters) ([]*types.Group, error)
	ListActiveByYear(ctx context.Context, tx *gorm.DB, year int) ([]*types.Group, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.Group) error
	HardDelete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type groupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGroupRepo(db *gorm.DB, baseLog *logger.Logger) GroupRepo {
	repoLog := baseLog.With("repo", "GroupRepo")
	return &groupRepo{db: db, log: repoLog}
}

func (r *groupRepo) Create(ctx context.Context, tx *gorm.DB, row *types.Group) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (r *groupRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Group, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Group
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *groupRepo) GetByNameYear(ctx context.Context, tx *gorm.DB, name string, year int) (*types.Group, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Group
	if err := transaction.WithContext(ctx).
		Where("name = ? AND year = ?", name, year).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByNameLoose matches a legacy denormalized group-name string against live
// groups, tolerating surrounding whitespace and a "Group "/"Grup " prefix left
// by older imports. Newest year wins when several years share the name.
func (r *groupRepo) GetByNameLoose(ctx context.Context, tx *gorm.DB, name string) (*types.Group, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	cleaned := strings.TrimSpace(name)
	for _, prefix := range []string{"Group ", "Grup "} {
		cleaned = strings.TrimPrefix(cleaned, prefix)
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var row types.Group
	if err := transaction.WithContext(ctx).
		Where("lower(name) = ?", strings.ToLower(cleaned)).
		Order("year DESC").
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *groupRepo) List(ctx context.Context, tx *gorm.DB, f scope.Filters) ([]*types.Group, error) {
	results := []*types.Group{}
	if f.Empty {
		return results, nil
	}
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.Group{})
	if f.GroupID != nil {
		q = q.Where("id = ?", *f.GroupID)
	}
	if f.Year != 0 {
		q = q.Where("year = ?", f.Year)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q = q.Where("lower(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if err := q.Order("year DESC, name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *groupRepo) ListActiveByYear(ctx context.Context, tx *gorm.DB, year int) ([]*types.Group, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Group
	if err := transaction.WithContext(ctx).
		Where("year = ? AND archived = ?", year, false).
		Order("name").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *groupRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Group) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(row).Error
}

func (r *groupRepo) HardDelete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Unscoped().
		Where("id = ?", id).
		Delete(&types.Group{}).Error
}

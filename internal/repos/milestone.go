package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

type MilestoneRepo interface {
	ListActive(ctx context.Context, tx *gorm.DB) ([]*types.MilestoneDefinition, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.MilestoneDefinition, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.MilestoneDefinition, error)
	GetByStageNumber(ctx context.Context, tx *gorm.DB, stage int) (*types.MilestoneDefinition, error)
	GetAutoDerived(ctx context.Context, tx *gorm.DB) (*types.MilestoneDefinition, error)
	StageNumberTaken(ctx context.Context, tx *gorm.DB, stage int, excludeID uuid.UUID) (bool, error)
	AutoDerivedTaken(ctx context.Context, tx *gorm.DB, excludeID uuid.UUID) (bool, error)
	Create(ctx context.Context, tx *gorm.DB, row *types.MilestoneDefinition) error
	Update(ctx context.Context, tx *gorm.DB, row *types.MilestoneDefinition) error
	HardDelete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type milestoneRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMilestoneRepo(db *gorm.DB, baseLog *logger.Logger) MilestoneRepo {
	repoLog := baseLog.With("repo", "MilestoneRepo")
	return &milestoneRepo{db: db, log: repoLog}
}

func (r *milestoneRepo) ListActive(ctx context.Context, tx *gorm.DB) ([]*types.MilestoneDefinition, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.MilestoneDefinition
	if err := transaction.WithContext(ctx).
		Where("active = ?", true).
		Order("stage_number").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *milestoneRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.MilestoneDefinition, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.MilestoneDefinition
	if err := transaction.WithContext(ctx).
		Order("stage_number").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *milestoneRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.MilestoneDefinition, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.MilestoneDefinition
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *milestoneRepo) GetByStageNumber(ctx context.Context, tx *gorm.DB, stage int) (*types.MilestoneDefinition, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.MilestoneDefinition
	if err := transaction.WithContext(ctx).
		Where("stage_number = ?", stage).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *milestoneRepo) GetAutoDerived(ctx context.Context, tx *gorm.DB) (*types.MilestoneDefinition, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.MilestoneDefinition
	if err := transaction.WithContext(ctx).
		Where("auto_derived = ? AND active = ?", true, true).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *milestoneRepo) StageNumberTaken(ctx context.Context, tx *gorm.DB, stage int, excludeID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Model(&types.MilestoneDefinition{}).
		Where("stage_number = ?", stage)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *milestoneRepo) AutoDerivedTaken(ctx context.Context, tx *gorm.DB, excludeID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Model(&types.MilestoneDefinition{}).
		Where("auto_derived = ?", true)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *milestoneRepo) Create(ctx context.Context, tx *gorm.DB, row *types.MilestoneDefinition) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (r *milestoneRepo) Update(ctx context.Context, tx *gorm.DB, row *types.MilestoneDefinition) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(row).Error
}

// HardDelete removes the definition permanently so its stage number is free
// for reuse; a soft-deleted row would keep holding the unique index slot.
func (r *milestoneRepo) HardDelete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Unscoped().
		Where("id = ?", id).
		Delete(&types.MilestoneDefinition{}).Error
}

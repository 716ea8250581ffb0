package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

type ProgressRepo interface {
	ListByPersonID(ctx context.Context, tx *gorm.DB, personID uuid.UUID) ([]*types.ProgressRecord, error)
	GetByPersonStage(ctx context.Context, tx *gorm.DB, personID uuid.UUID, stage int) (*types.ProgressRecord, error)
	InsertMissing(ctx context.Context, tx *gorm.DB, rows []*types.ProgressRecord) (int64, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.ProgressRecord) error
	CountCompletedByStage(ctx context.Context, tx *gorm.DB, stage int) (int64, error)
	CountByPerson(ctx context.Context, tx *gorm.DB, personID uuid.UUID) (int64, int64, error)
	HardDeleteByPersonID(ctx context.Context, tx *gorm.DB, personID uuid.UUID) error
}

type progressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	repoLog := baseLog.With("repo", "ProgressRepo")
	return &progressRepo{db: db, log: repoLog}
}

func (r *progressRepo) ListByPersonID(ctx context.Context, tx *gorm.DB, personID uuid.UUID) ([]*types.ProgressRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ProgressRecord
	if err := transaction.WithContext(ctx).
		Where("person_id = ?", personID).
		Order("stage_number").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *progressRepo) GetByPersonStage(ctx context.Context, tx *gorm.DB, personID uuid.UUID, stage int) (*types.ProgressRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.ProgressRecord
	if err := transaction.WithContext(ctx).
		Where("person_id = ? AND stage_number = ?", personID, stage).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// InsertMissing inserts the given rows with insert-if-absent semantics on the
// (person, stage) key, so two concurrent repairs of the same person never
// create duplicates. Returns the number of rows actually inserted.
func (r *progressRepo) InsertMissing(ctx context.Context, tx *gorm.DB, rows []*types.ProgressRecord) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "person_id"}, {Name: "stage_number"}},
			DoNothing: true,
		}).
		Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *progressRepo) Save(ctx context.Context, tx *gorm.DB, row *types.ProgressRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(row).Error
}

func (r *progressRepo) CountCompletedByStage(ctx context.Context, tx *gorm.DB, stage int) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(ctx).
		Model(&types.ProgressRecord{}).
		Where("stage_number = ? AND completed = ?", stage, true).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// CountByPerson returns (total, completed) for one person's records.
func (r *progressRepo) CountByPerson(ctx context.Context, tx *gorm.DB, personID uuid.UUID) (int64, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var total int64
	if err := transaction.WithContext(ctx).
		Model(&types.ProgressRecord{}).
		Where("person_id = ?", personID).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}
	var completed int64
	if err := transaction.WithContext(ctx).
		Model(&types.ProgressRecord{}).
		Where("person_id = ? AND completed = ?", personID, true).
		Count(&completed).Error; err != nil {
		return 0, 0, err
	}
	return total, completed, nil
}

func (r *progressRepo) HardDeleteByPersonID(ctx context.Context, tx *gorm.DB, personID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("person_id = ?", personID).
		Delete(&types.ProgressRecord{}).Error
}

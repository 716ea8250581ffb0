package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

type AttendanceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.AttendanceRecord) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AttendanceRecord, error)
	ListByPersonID(ctx context.Context, tx *gorm.DB, personID uuid.UUID) ([]*types.AttendanceRecord, error)
	CountByPersonID(ctx context.Context, tx *gorm.DB, personID uuid.UUID) (int64, error)
	HardDelete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	HardDeleteByPersonID(ctx context.Context, tx *gorm.DB, personID uuid.UUID) error
}

type attendanceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttendanceRepo(db *gorm.DB, baseLog *logger.Logger) AttendanceRepo {
	repoLog := baseLog.With("repo", "AttendanceRepo")
	return &attendanceRepo{db: db, log: repoLog}
}

func (r *attendanceRepo) Create(ctx context.Context, tx *gorm.DB, row *types.AttendanceRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (r *attendanceRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AttendanceRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.AttendanceRecord
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *attendanceRepo) ListByPersonID(ctx context.Context, tx *gorm.DB, personID uuid.UUID) ([]*types.AttendanceRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.AttendanceRecord
	if err := transaction.WithContext(ctx).
		Where("person_id = ?", personID).
		Order("date_attended").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *attendanceRepo) CountByPersonID(ctx context.Context, tx *gorm.DB, personID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(ctx).
		Model(&types.AttendanceRecord{}).
		Where("person_id = ?", personID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *attendanceRepo) HardDelete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.AttendanceRecord{}).Error
}

func (r *attendanceRepo) HardDeleteByPersonID(ctx context.Context, tx *gorm.DB, personID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("person_id = ?", personID).
		Delete(&types.AttendanceRecord{}).Error
}

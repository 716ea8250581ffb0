package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

type AuditRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.AuditLog) error
	ListByAction(ctx context.Context, tx *gorm.DB, action string, limit int) ([]*types.AuditLog, error)
}

type auditRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditRepo(db *gorm.DB, baseLog *logger.Logger) AuditRepo {
	repoLog := baseLog.With("repo", "AuditRepo")
	return &auditRepo{db: db, log: repoLog}
}

func (r *auditRepo) Create(ctx context.Context, tx *gorm.DB, row *types.AuditLog) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (r *auditRepo) ListByAction(ctx context.Context, tx *gorm.DB, action string, limit int) ([]*types.AuditLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var results []*types.AuditLog
	if err := transaction.WithContext(ctx).
		Where("action = ?", action).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

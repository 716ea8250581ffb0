package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AuditGroupRollover = "group_rollover"
	AuditReconcileRun  = "reconcile_run"
	AuditPersonDelete  = "person_delete"
)

type AuditLog struct {
	ID      uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Action  string         `gorm:"column:action;not null;index" json:"action"`
	ActorID *uuid.UUID     `gorm:"type:uuid" json:"actor_id,omitempty"`
	Detail  datatypes.JSON `gorm:"type:jsonb;column:detail" json:"detail"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_log" }

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

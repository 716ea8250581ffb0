package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProgressRecord tracks one person against one stage. Every person holds
// exactly one row per active stage; the unique (person, stage) index is the
// store-level backstop for that invariant.
type ProgressRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PersonID    uuid.UUID `gorm:"type:uuid;not null;index:idx_person_stage,unique" json:"person_id"`
	Person      *Person   `gorm:"constraint:OnDelete:CASCADE;foreignKey:PersonID;references:ID" json:"person,omitempty"`
	StageNumber int       `gorm:"column:stage_number;not null;index:idx_person_stage,unique" json:"stage_number"`

	Completed      bool       `gorm:"column:completed;not null;default:false" json:"completed"`
	CompletionDate *time.Time `gorm:"column:completion_date" json:"completion_date,omitempty"`
	UpdatedByID    *uuid.UUID `gorm:"type:uuid" json:"updated_by_id,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ProgressRecord) TableName() string { return "progress_record" }

func (r *ProgressRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

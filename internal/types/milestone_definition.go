package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MilestoneDefinition is one step of the growth track. StageNumber is the
// ordering key. At most one live definition carries AutoDerived, marking the
// stage whose completion is computed from attendance instead of set by hand.
type MilestoneDefinition struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StageNumber int       `gorm:"column:stage_number;not null;uniqueIndex" json:"stage_number"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	ShortName   string    `gorm:"column:short_name" json:"short_name"`
	AutoDerived bool      `gorm:"column:auto_derived;not null;default:false" json:"auto_derived"`
	Active      bool      `gorm:"column:active;not null;default:true" json:"active"`

	// definitions hard-delete (see milestoneRepo.HardDelete); a soft-deleted
	// row would keep occupying its stage number in the unique index
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (MilestoneDefinition) TableName() string { return "milestone_definition" }

func (m *MilestoneDefinition) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

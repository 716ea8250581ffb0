package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttendanceRecord is one service attended by one person. DateAttended is
// normalized to midnight UTC so the unique (person, date) index enforces
// at most one record per person per day.
type AttendanceRecord struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PersonID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_person_date,unique" json:"person_id"`
	Person       *Person    `gorm:"constraint:OnDelete:CASCADE;foreignKey:PersonID;references:ID" json:"person,omitempty"`
	DateAttended time.Time  `gorm:"column:date_attended;not null;index:idx_person_date,unique" json:"date_attended"`
	RecordedByID *uuid.UUID `gorm:"type:uuid" json:"recorded_by_id,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (AttendanceRecord) TableName() string { return "attendance_record" }

func (a *AttendanceRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

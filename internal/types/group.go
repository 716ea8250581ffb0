package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Group struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string     `gorm:"column:name;not null;index:idx_group_name_year,unique" json:"name"`
	Year        int        `gorm:"column:year;not null;index:idx_group_name_year,unique" json:"year"`
	Description string     `gorm:"column:description" json:"description"`
	LeaderID    *uuid.UUID `gorm:"type:uuid;index" json:"leader_id,omitempty"`
	Leader      *User      `gorm:"foreignKey:LeaderID;references:ID" json:"leader,omitempty"`
	Archived    bool       `gorm:"column:archived;not null;default:false" json:"archived"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Group) TableName() string { return "group" }

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

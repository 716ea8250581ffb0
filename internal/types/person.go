package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Person struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName string     `gorm:"column:first_name;not null" json:"first_name"`
	LastName  string     `gorm:"column:last_name;not null" json:"last_name"`
	Phone     string     `gorm:"column:phone" json:"phone"`
	Email     string     `gorm:"column:email" json:"email"`
	Gender    string     `gorm:"column:gender" json:"gender"`
	BirthDate *time.Time `gorm:"column:birth_date" json:"birth_date,omitempty"`
	Address   string     `gorm:"column:address" json:"address"`

	GroupID *uuid.UUID `gorm:"type:uuid;index" json:"group_id,omitempty"`
	Group   *Group     `gorm:"foreignKey:GroupID;references:ID" json:"group,omitempty"`
	// Legacy denormalized copy of the group name. Canonical membership is
	// GroupID; reconciliation repairs rows where only this string survives.
	GroupName string `gorm:"column:group_name" json:"group_name,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Person) TableName() string { return "person" }

func (p *Person) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleSuperAdmin = "superadmin"
	RoleLeadPastor = "leadpastor"
	RoleAdmin      = "admin"
	RoleLeader     = "leader"
)

// User is an operator account. Role plus the optional group reference is what
// the scope resolver works from; tracked members live in Person, not here.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName string    `gorm:"column:first_name;not null" json:"first_name"`
	LastName  string    `gorm:"column:last_name;not null" json:"last_name"`
	Email     string    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Phone     string    `gorm:"column:phone" json:"phone"`
	Password  string    `gorm:"column:password;not null" json:"-"`

	Role    string     `gorm:"column:role;not null;default:'leader'" json:"role"`
	GroupID *uuid.UUID `gorm:"type:uuid;index" json:"group_id,omitempty"`
	// Legacy shim, same story as Person.GroupName.
	GroupName string `gorm:"column:group_name" json:"group_name,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "app_user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

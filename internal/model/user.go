package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is a registered account; Roles holds acl role names (ADMIN, USER)
type User struct {
	ID                uint                        `gorm:"primaryKey" json:"id"`
	Username          string                      `gorm:"type:varchar(200);uniqueIndex;not null" json:"username"`
	Password          string                      `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash, never serialized
	Age               int                         `gorm:"not null" json:"age"`
	Roles             datatypes.JSONSlice[string] `gorm:"not null" json:"roles"`
	IsAccountDisabled bool                        `gorm:"default:false;not null" json:"is_account_disabled"`
	CreatedAt         time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt              `gorm:"index" json:"-"` // GORM soft delete
}

// HasRole reports whether the user carries role
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

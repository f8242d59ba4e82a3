package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ActionCreateMovie   = "CREATE_MOVIE"
	ActionUpdateMovie   = "UPDATE_MOVIE"
	ActionDeleteMovie   = "DELETE_MOVIE"
	ActionBuyTickets    = "BUY_TICKETS"
	ActionRedeemTicket  = "REDEEM_TICKET"
	ActionRegisterUser  = "REGISTER_USER"
	ActionUpdateUser    = "UPDATE_USER"
	ActionBootstrapUser = "BOOTSTRAP_ADMIN"
)

// AuditLog tracks Who, What, and When for state changes
type AuditLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	RequestID  string         `gorm:"type:varchar(64);index" json:"request_id"`
	UserID     *uint          `gorm:"index" json:"user_id"` // Nullable for system actions
	User       *User          `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL;" json:"user,omitempty"`
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string         `gorm:"type:varchar(255);index" json:"entity_id"`
	EntityName string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    datatypes.JSON `json:"details"` // Serialized JSON payload of the action
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

// ExceptionLog records internal failures that surfaced to a caller
type ExceptionLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RequestID string    `gorm:"type:varchar(64);index" json:"request_id"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

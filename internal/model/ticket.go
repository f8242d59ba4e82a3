package model

import "time"

// Ticket is one seat of a session. UserID (the owner) is set once by
// allocation and IsUsed flips to true once on redemption.
type Ticket struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	IsUsed    bool      `gorm:"not null;default:false;index:idx_tickets_user_used,priority:2" json:"is_used"`
	UserID    *uint     `gorm:"index:idx_tickets_user_used,priority:1" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"-"`
	SessionID uint      `gorm:"not null;index" json:"session_id"`
	Session   *Session  `gorm:"foreignKey:SessionID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t Ticket) OwnerID() (uint, bool) {
	if t.UserID == nil {
		return 0, false
	}
	return *t.UserID, true
}
